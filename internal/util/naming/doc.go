// Package naming provides the names of cloud and Kubernetes resources the
// installer creates.
//
// Teardown relies on the same functions to find what an install left
// behind, so every name derived from a cluster lives here. Names that must
// be unique per run carry a Unix timestamp suffix.
package naming
