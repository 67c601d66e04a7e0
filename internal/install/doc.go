// Package install runs the hopsctl flows against a cluster: provisioning
// a managed cluster or reusing a kubeconfig, preparing its image registry,
// installing the Hopsworks chart and waiting for it, plus the ingress,
// uninstall and diagnose flows.
//
// Every flow is a list of phases run by RunPhases. Phases share a Context
// holding the configuration, the dependencies and what earlier phases
// learned. Progress is reported through an Observer.
package install
