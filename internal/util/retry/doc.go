// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max attempts,
// initial delay, and maximum delay. It is used when a cloud deletion is
// blocked by a dependent resource that is still being torn down, and when
// polling for a LoadBalancer address after installation.
package retry
