package config

// Defaults shared by the installer and the teardown commands.
const (
	DefaultNamespace      = "hopsworks"
	DefaultEKSVersion     = "1.29"
	DefaultAzureLocation  = "eastus"
	DefaultAWSProfile     = "default"
	DefaultInstallLogFile = "hopsworks-install.log"
	DefaultCleanupLogFile = "hopsworks-cleanup.log"
	DefaultClusterPrefix  = "hopsworks"

	// DefaultTelemetryEndpoint receives installation registrations.
	DefaultTelemetryEndpoint = "https://magiclex--hopsworks-installation-hopsworks-installation.modal.run/"
)

var providerDefaults = map[Provider]Config{
	ProviderGCP:   {Nodes: NodeConfig{Count: 5, MachineType: "n2-standard-8"}},
	ProviderAWS:   {Nodes: NodeConfig{Count: 4, MachineType: "m6i.2xlarge"}},
	ProviderAzure: {Nodes: NodeConfig{Count: 5, MachineType: "Standard_D8_v4"}},
}

// DefaultNodes returns the default node sizing for a provider. Providers
// that do not create clusters return the zero value.
func DefaultNodes(p Provider) NodeConfig {
	return providerDefaults[p].Nodes
}
