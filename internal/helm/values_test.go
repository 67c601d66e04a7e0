package helm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetArgs(t *testing.T) {
	t.Parallel()
	values, err := ParseSetArgs([]string{
		"global._hopsworks.cloudProvider=AWS",
		"global._hopsworks.managedDockerRegistery.enabled=true",
		`serviceAccount.annotations.iam\.gke\.io/gcp-service-account=sa@p.iam.gserviceaccount.com`,
		"hopsworks.dockerRegistry.preset.secrets[0]=awsregcred",
		"global._hopsworks.cloudProvider=GCP",
	})
	require.NoError(t, err)

	global := values["global"].(map[string]any)["_hopsworks"].(map[string]any)
	assert.Equal(t, "GCP", global["cloudProvider"])
	assert.Equal(t, true, global["managedDockerRegistery"].(map[string]any)["enabled"])

	annotations := values["serviceAccount"].(map[string]any)["annotations"].(map[string]any)
	assert.Equal(t, "sa@p.iam.gserviceaccount.com", annotations["iam.gke.io/gcp-service-account"])

	secrets := values["hopsworks"].(map[string]any)["dockerRegistry"].(map[string]any)["preset"].(map[string]any)["secrets"].([]any)
	assert.Equal(t, []any{"awsregcred"}, secrets)
}

func TestParseSetArgs_Invalid(t *testing.T) {
	t.Parallel()
	_, err := ParseSetArgs([]string{"list[x]=b"})
	assert.Error(t, err)
}

func TestMergeValues(t *testing.T) {
	t.Parallel()
	base := Values{
		"global": Values{"a": 1, "b": Values{"c": 2}},
		"keep":   "x",
	}
	override := Values{
		"global": Values{"b": Values{"d": 3}, "a": 9},
		"new":    true,
	}

	got := MergeValues(base, override)
	assert.Equal(t, Values{
		"global": Values{"a": 9, "b": Values{"c": 2, "d": 3}},
		"keep":   "x",
		"new":    true,
	}, got)

	// inputs untouched
	assert.Equal(t, Values{"c": 2}, base["global"].(Values)["b"])
}

func TestToYAML(t *testing.T) {
	t.Parallel()
	out, err := ToYAML(Values{"a": Values{"b": "c"}})
	require.NoError(t, err)
	assert.Equal(t, "a:\n  b: c\n", string(out))
}
