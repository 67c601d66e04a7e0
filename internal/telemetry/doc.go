// Package telemetry registers installations with the Hopsworks
// installation service.
//
// Registration is best effort: a failed request never aborts an install,
// the caller just records the installation id as "unknown".
package telemetry
