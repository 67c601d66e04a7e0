package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"
)

// EnvPrefix is the prefix of environment variables read by Load.
// Nested keys use underscores, e.g. HOPSWORKS_GCP_PROJECT_ID.
const EnvPrefix = "HOPSWORKS"

// Load builds a Config from defaults, the optional answers file at path and
// HOPSWORKS_* environment variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	provider, err := ParseProvider(string(cfg.Provider))
	if err != nil {
		return nil, err
	}
	cfg.Provider = provider

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"provider":                  "",
		"namespace":                 DefaultNamespace,
		"cluster_name":              "",
		"region":                    "",
		"zone":                      "",
		"kubeconfig":                "",
		"kube_context":              "",
		"nodes.count":               0,
		"nodes.machine_type":        "",
		"gcp.project_id":            "",
		"azure.resource_group":      "",
		"azure.location":            "",
		"aws.profile":               "",
		"aws.account_id":            "",
		"aws.bucket_name":           "",
		"aws.kubernetes_version":    "",
		"registry.username":         "",
		"registry.password":         "",
		"install.loadbalancer_only": false,
		"install.no_user_data":      false,
		"install.skip_license":      false,
		"install.values_file":       "",
		"install.log_file":          DefaultInstallLogFile,
		"telemetry.endpoint":        DefaultTelemetryEndpoint,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// LoadValuesFile reads a user supplied Helm values file. Values in this
// file are merged on top of the generated values, so anything set here
// wins.
func LoadValuesFile(path string) (map[string]any, error) {
	// #nosec G304 - path is supplied by the operator running the installer
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse values file %s: %w", path, err)
	}
	if values == nil && len(strings.TrimSpace(string(data))) > 0 {
		return nil, ErrValuesFileNotObject
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}
