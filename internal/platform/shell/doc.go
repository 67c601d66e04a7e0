// Package shell runs the provider command line tools (gcloud, az, aws,
// eksctl, kubectl) and captures their output.
//
// Provider packages depend on the Runner interface only; tests use Fake to
// script CLI responses and assert on the recorded command lines.
package shell
