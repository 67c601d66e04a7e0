// Package hopsworks knows the Hopsworks Helm chart: where it lives, how its
// services are exposed and which values each environment needs.
package hopsworks

import "fmt"

// Chart coordinates.
const (
	RepoName    = "hopsworks"
	RepoURL     = "https://nexus.hops.works/repository/hopsworks-helm"
	ChartRef    = RepoName + "/hopsworks"
	ReleaseName = "hopsworks-release"
)

// Runtime facts about a deployed release.
const (
	// CorePodSelector matches the pod whose readiness marks the install done.
	CorePodSelector = "app=hopsworks-instance"
	// LoadBalancerService is the service exposing the UI and API.
	LoadBalancerService = ReleaseName
	// HTTPService and HTTPPort are the plain HTTP backend used by ingresses.
	HTTPService = ReleaseName + "-http"
	HTTPPort    = 28080
	IngressName = "hopsworks-ingress"

	UIPort  = 28181
	APIPort = 8182

	DefaultUser     = "admin@hopsworks.ai"
	DefaultPassword = "admin"
)

// Image registry used on clusters without a cloud credential helper.
const (
	RegistryServer = "docker.hops.works"
	RegistryEmail  = "noreply@hopsworks.ai"
)

// UIURL is the address of the web UI behind a load balancer address.
func UIURL(addr string) string {
	return fmt.Sprintf("https://%s:%d", addr, UIPort)
}

// APIURL is the address of the REST API behind a load balancer address.
func APIURL(addr string) string {
	return fmt.Sprintf("https://%s:%d", addr, APIPort)
}
