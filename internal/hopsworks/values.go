package hopsworks

import (
	"strings"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/helm"
)

// Setting is one `--set` style chart value.
type Setting struct {
	Key   string
	Value string
}

// ManagedRegistry is the cloud registry Hopsworks pushes user images to.
type ManagedRegistry struct {
	Domain    string
	Namespace string
}

// ValuesInput is everything the chart values depend on.
type ValuesInput struct {
	Provider config.Provider
	// Registry is set once the managed registry exists (AWS and GCP).
	Registry *ManagedRegistry
	// GCPServiceAccount is bound to the hopsworks-sa workload identity.
	GCPServiceAccount string
}

var baseSettings = []Setting{
	{"hopsworks.service.worker.external.https.type", "LoadBalancer"},
	{"global._hopsworks.externalLoadBalancers.enabled", "true"},
	{"global._hopsworks.imagePullPolicy", "Always"},
	{"hopsworks.replicaCount.worker", "1"},
	{"rondb.clusterSize.activeDataReplicas", "1"},
	{"hopsfs.datanode.count", "2"},
}

var cloudSettings = map[config.Provider][]Setting{
	config.ProviderAWS: {
		{"global._hopsworks.cloudProvider", "AWS"},
		{"global._hopsworks.ingressController.type", "none"},
		{"global._hopsworks.managedDockerRegistery.enabled", "true"},
		{"global._hopsworks.managedDockerRegistery.credHelper.enabled", "true"},
		{"global._hopsworks.managedDockerRegistery.credHelper.secretName", "awsregcred"},
		{"global._hopsworks.storageClassName", "ebs-gp3"},
		{"hopsworks.variables.docker_operations_managed_docker_secrets", "awsregcred"},
		{"hopsworks.variables.docker_operations_image_pull_secrets", "awsregcred"},
		{"hopsworks.dockerRegistry.preset.secrets[0]", "awsregcred"},
		{"externalLoadBalancers.enabled", "true"},
		{"externalLoadBalancers.class", "null"},
		{`externalLoadBalancers.annotations.service\.beta\.kubernetes\.io/aws-load-balancer-scheme`, "internet-facing"},
	},
	config.ProviderGCP: {
		{"global._hopsworks.cloudProvider", "GCP"},
		{"global._hopsworks.managedDockerRegistery.enabled", "true"},
		{"global._hopsworks.managedDockerRegistery.credHelper.enabled", "true"},
		{"global._hopsworks.managedDockerRegistery.credHelper.configMap", "docker-config"},
		{"global._hopsworks.managedDockerRegistery.credHelper.secretName", "gcrregcred"},
		{"hopsworks.variables.docker_operations_managed_docker_secrets", "gcrregcred"},
		{"hopsworks.variables.docker_operations_image_pull_secrets", "gcrregcred"},
		{"hopsworks.dockerRegistry.preset.secrets[0]", "gcrregcred"},
		{"serviceAccount.name", "hopsworks-sa"},
	},
	config.ProviderAzure: {
		{"global._hopsworks.cloudProvider", "AZURE"},
		{"global._hopsworks.managedDockerRegistery.enabled", "true"},
		{"global._hopsworks.ingressController.type", "none"},
		{"global._hopsworks.imagePullSecretName", "regcred"},
		{"global._hopsworks.minio.enabled", "true"},
		{"serviceAccount.name", "hopsworks-sa"},
		{"serviceAccount.create", "false"},
		{"hopsworks.service.worker.external.https.type", "LoadBalancer"},
		{`hopsworks.service.worker.external.https.annotations.service\.beta\.kubernetes\.io/azure-load-balancer-internal`, "false"},
	},
	config.ProviderOVH: {
		{"global._hopsworks.cloudProvider", "OVH"},
	},
}

// Settings returns the chart values for in, base values first. A key set
// again by a later layer keeps its original position with the new value.
func Settings(in ValuesInput) []Setting {
	var out []Setting
	index := map[string]int{}
	set := func(key, value string) {
		if i, ok := index[key]; ok {
			out[i].Value = value
			return
		}
		index[key] = len(out)
		out = append(out, Setting{Key: key, Value: value})
	}

	for _, s := range baseSettings {
		set(s.Key, s.Value)
	}
	for _, s := range cloudSettings[in.Provider] {
		set(s.Key, s.Value)
	}

	switch in.Provider {
	case config.ProviderAWS, config.ProviderGCP:
		if in.Registry != nil {
			set("global._hopsworks.managedDockerRegistery.domain", in.Registry.Domain)
			set("global._hopsworks.managedDockerRegistery.namespace", in.Registry.Namespace)
		}
	}
	if in.Provider == config.ProviderGCP && in.GCPServiceAccount != "" {
		set(`serviceAccount.annotations.iam\.gke\.io/gcp-service-account`, in.GCPServiceAccount)
	}
	return out
}

// SetArgs renders Settings as key=value pairs in order.
func SetArgs(in ValuesInput) []string {
	settings := Settings(in)
	args := make([]string, 0, len(settings))
	for _, s := range settings {
		args = append(args, s.Key+"="+escapeValue(s.Value))
	}
	return args
}

// escapeValue protects commas, which strvals treats as pair separators.
func escapeValue(v string) string {
	return strings.ReplaceAll(v, ",", `\,`)
}

// Values returns the nested chart values for in.
func Values(in ValuesInput) (helm.Values, error) {
	return helm.ParseSetArgs(SetArgs(in))
}
