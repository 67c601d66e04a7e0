package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
)

func TestValidateName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateName("Al"))
	assert.ErrorIs(t, validateName(" A "), errNameTooShort)
	assert.ErrorIs(t, validateName(""), errNameTooShort)
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		valid bool
	}{
		{"ada@example.com", true},
		{"a@b.c", true},
		{"a@b", false},
		{"ada.example.com", false},
		{"a@.", false},
		{"", false},
	}
	for _, tt := range tests {
		err := validateEmail(tt.in)
		if tt.valid {
			assert.NoError(t, err, tt.in)
		} else {
			assert.ErrorIs(t, err, errEmailInvalid, tt.in)
		}
	}
}

func TestValidateNodeCount(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateNodeCount("4"))
	assert.NoError(t, validateNodeCount(" 12 "))
	assert.ErrorIs(t, validateNodeCount("0"), errNodeCount)
	assert.ErrorIs(t, validateNodeCount("-1"), errNodeCount)
	assert.ErrorIs(t, validateNodeCount("four"), errNodeCount)
}

func TestValidateClusterName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateClusterName("hopsworks-cluster"))
	assert.ErrorIs(t, validateClusterName(""), errRequired)
	assert.ErrorIs(t, validateClusterName("Bad_Name"), config.ErrInvalidClusterName)
}

func TestValidateKubeconfigPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("apiVersion: v1\n"), 0o600))
	assert.NoError(t, validateKubeconfigPath(path))
	assert.ErrorIs(t, validateKubeconfigPath(path+".missing"), errKubeconfigPath)
}

func TestExpandHome(t *testing.T) {
	t.Parallel()
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".kube/config"), ExpandHome("~/.kube/config"))
	assert.Equal(t, "/etc/kubeconfig", ExpandHome("/etc/kubeconfig"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestSizing(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Provider: config.ProviderAWS}
	s := newSizing(cfg)
	assert.Equal(t, "4", s.count)
	assert.Equal(t, "m6i.2xlarge", s.machineType)

	s.count = " 6 "
	s.machineType = "m6i.4xlarge "
	s.apply(cfg)
	assert.Equal(t, 6, cfg.Nodes.Count)
	assert.Equal(t, "m6i.4xlarge", cfg.Nodes.MachineType)

	preset := &config.Config{Provider: config.ProviderGCP, Nodes: config.NodeConfig{Count: 2}}
	s = newSizing(preset)
	assert.Equal(t, "2", s.count)
	assert.Equal(t, "n2-standard-8", s.machineType)
	assert.Len(t, s.fields(), 2)
}

func TestProviderFieldsOnlyAskMissing(t *testing.T) {
	t.Parallel()

	gcp := &config.Config{Provider: config.ProviderGCP}
	assert.Len(t, gcpFields(gcp), 3)
	assert.Equal(t, "hopsworks-cluster", gcp.ClusterName, "cluster name is prefilled")

	gcpDone := &config.Config{Provider: config.ProviderGCP, ClusterName: "c", Zone: "z", GCP: config.GCPConfig{ProjectID: "p"}}
	assert.Empty(t, gcpFields(gcpDone))

	aws := &config.Config{Provider: config.ProviderAWS, Region: "us-east-2"}
	assert.Len(t, awsFields(aws), 2)
	assert.Equal(t, config.DefaultAWSProfile, aws.AWS.Profile)

	az := &config.Config{Provider: config.ProviderAzure, ClusterName: "c"}
	assert.Len(t, azureFields(az, true), 2)
	assert.Equal(t, config.DefaultAzureLocation, az.Azure.Location)
	azExisting := &config.Config{Provider: config.ProviderAzure}
	assert.Len(t, azureFields(azExisting, false), 2)

	ovh := &config.Config{Provider: config.ProviderOVH, Kubeconfig: "/tmp/kc"}
	assert.Empty(t, ovhFields(ovh))
}

func TestProviderOptions(t *testing.T) {
	t.Parallel()
	opts := ProviderOptions()
	require.Len(t, opts, len(config.Providers))
	assert.Equal(t, "AWS", opts[0].Key)
	assert.Equal(t, config.ProviderAWS, opts[0].Value)
	assert.Equal(t, "OVH", opts[3].Key)
}
