package config

import (
	"fmt"
	"strings"
)

// Provider identifies the environment Hopsworks is installed into.
type Provider string

const (
	// ProviderAWS installs on a new EKS cluster.
	ProviderAWS Provider = "aws"
	// ProviderAzure installs on a new AKS cluster.
	ProviderAzure Provider = "azure"
	// ProviderGCP installs on a new GKE cluster.
	ProviderGCP Provider = "gcp"
	// ProviderOVH installs on an existing cluster reached through a kubeconfig file.
	ProviderOVH Provider = "ovh"
)

// Providers lists the supported environments in menu order.
var Providers = []Provider{ProviderAWS, ProviderAzure, ProviderGCP, ProviderOVH}

// DisplayName returns the name shown in prompts and banners.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderAWS:
		return "AWS"
	case ProviderAzure:
		return "Azure"
	case ProviderGCP:
		return "GCP"
	case ProviderOVH:
		return "OVH"
	}
	return string(p)
}

// ParseProvider accepts provider names case-insensitively, including the
// display names used by the interactive menu.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aws", "eks":
		return ProviderAWS, nil
	case "azure", "aks":
		return ProviderAzure, nil
	case "gcp", "gke", "google":
		return ProviderGCP, nil
	case "ovh", "other":
		return ProviderOVH, nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Config is the complete installer configuration.
type Config struct {
	Provider    Provider `mapstructure:"provider"`
	Namespace   string   `mapstructure:"namespace"`
	ClusterName string   `mapstructure:"cluster_name"`
	Region      string   `mapstructure:"region"`
	Zone        string   `mapstructure:"zone"`

	// Kubeconfig is the path used for existing clusters and written by
	// the provider CLIs for new ones.
	Kubeconfig  string `mapstructure:"kubeconfig"`
	KubeContext string `mapstructure:"kube_context"`

	Nodes     NodeConfig     `mapstructure:"nodes"`
	GCP       GCPConfig      `mapstructure:"gcp"`
	Azure     AzureConfig    `mapstructure:"azure"`
	AWS       AWSConfig      `mapstructure:"aws"`
	Registry  RegistryConfig `mapstructure:"registry"`
	Install   InstallOptions `mapstructure:"install"`
	Telemetry Telemetry      `mapstructure:"telemetry"`
}

// NodeConfig sizes the node pool of a newly created cluster.
type NodeConfig struct {
	Count       int    `mapstructure:"count"`
	MachineType string `mapstructure:"machine_type"`
}

// GCPConfig holds Google Cloud specific settings.
type GCPConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

// AzureConfig holds Azure specific settings.
type AzureConfig struct {
	ResourceGroup string `mapstructure:"resource_group"`
	Location      string `mapstructure:"location"`
}

// AWSConfig holds AWS specific settings.
type AWSConfig struct {
	Profile           string `mapstructure:"profile"`
	AccountID         string `mapstructure:"account_id"`
	BucketName        string `mapstructure:"bucket_name"`
	KubernetesVersion string `mapstructure:"kubernetes_version"`
}

// RegistryConfig holds the credentials for docker.hops.works. Only the
// Azure flow needs them because it cannot use a cloud credential helper.
type RegistryConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// InstallOptions are the behavioural switches of the install command.
type InstallOptions struct {
	LoadBalancerOnly bool   `mapstructure:"loadbalancer_only"`
	NoUserData       bool   `mapstructure:"no_user_data"`
	SkipLicense      bool   `mapstructure:"skip_license"`
	ValuesFile       string `mapstructure:"values_file"`
	LogFile          string `mapstructure:"log_file"`
}

// Telemetry configures where installation registrations are sent.
type Telemetry struct {
	Endpoint string `mapstructure:"endpoint"`
}

// RegionFromZone derives a region from a zone by dropping the last
// dash-separated segment (europe-west1-b -> europe-west1). A value without
// a zone suffix is returned unchanged.
func RegionFromZone(zone string) string {
	parts := strings.Split(zone, "-")
	if len(parts) < 3 {
		return zone
	}
	return strings.Join(parts[:len(parts)-1], "-")
}

// ApplyProviderDefaults fills node sizing and versions left empty with the
// defaults for the selected provider.
func (c *Config) ApplyProviderDefaults() {
	d, ok := providerDefaults[c.Provider]
	if !ok {
		return
	}
	if c.Nodes.Count == 0 {
		c.Nodes.Count = d.Nodes.Count
	}
	if c.Nodes.MachineType == "" {
		c.Nodes.MachineType = d.Nodes.MachineType
	}
	if c.Provider == ProviderAWS && c.AWS.KubernetesVersion == "" {
		c.AWS.KubernetesVersion = DefaultEKSVersion
	}
	if c.Provider == ProviderAzure && c.Azure.Location == "" {
		c.Azure.Location = DefaultAzureLocation
	}
	if c.Provider == ProviderAWS && c.AWS.Profile == "" {
		c.AWS.Profile = DefaultAWSProfile
	}
}
