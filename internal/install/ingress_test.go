package install

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/helm"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/hopsworks"
)

var controllerLabels = map[string]string{"app.kubernetes.io/name": "ingress-nginx-controller"}

func TestRunIngress(t *testing.T) {
	t.Setenv("KUBECONFIG", "")
	hosts := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(hosts, []byte("127.0.0.1 localhost\n"), 0o600))

	cfg := &config.Config{Kubeconfig: writeKubeconfig(t, "kind")}
	h := newHarness(t, cfg, lbService(IngressNamespace, ingressService, "172.18.0.5"))
	h.helm.onInstall = func(opts helm.InstallOptions) {
		_, err := h.cs.CoreV1().Pods(IngressNamespace).Create(context.Background(),
			runningPod(IngressNamespace, "controller-0", controllerLabels), metav1.CreateOptions{})
		require.NoError(t, err)
	}

	opts := IngressOptions{UpdateHosts: true, HostsFile: hosts, AssumeYes: true}
	require.NoError(t, RunIngress(h.ctx, opts))

	ctrl := h.helm.installed(ingressRelease)
	require.NotNil(t, ctrl)
	assert.Equal(t, ingressChart, ctrl.Chart)
	assert.Equal(t, "ingress", h.ctx.Command)

	ing, err := h.cs.NetworkingV1().Ingresses("hopsworks").Get(context.Background(), hopsworks.IngressName, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultHostname, ing.Spec.Rules[0].Host)
	assert.Equal(t, "false", ing.Annotations["nginx.ingress.kubernetes.io/ssl-redirect"])

	data, err := os.ReadFile(hosts)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1 localhost\n172.18.0.5 hopsworks.ai.local\n", string(data))

	// A second run finds everything in place.
	h.events.events = nil
	require.NoError(t, RunIngress(h.ctx, opts))
	data, err = os.ReadFile(hosts)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "hopsworks.ai.local"))
	assert.Contains(t, h.events.types(), "resource.exists controller")
	assert.Contains(t, h.events.types(), "resource.exists hosts")
	assert.Len(t, h.helm.installs, 1)
}

func TestEnsureIngressController_Declined(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &config.Config{})
	prompter := &fakePrompter{confirm: false}
	h.ctx.Deps.Prompter = prompter

	assert.ErrorIs(t, ensureIngressController(h.ctx, false), ErrIngressControllerMissing)
	assert.Len(t, prompter.confirmed, 1)
	assert.Empty(t, h.helm.installs)
}

func TestApplyIngress_KeepsExisting(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &config.Config{}, lbService(IngressNamespace, ingressService, "10.0.0.9"))
	h.ctx.Deps.Prompter = &fakePrompter{confirm: false}

	opts := IngressOptions{Hostname: "first.example.com"}
	_, err := applyIngress(h.ctx, IngressOptions{Hostname: "first.example.com", AssumeYes: true})
	require.NoError(t, err)

	opts.Hostname = "second.example.com"
	addr, err := applyIngress(h.ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", addr)

	ing, err := h.cs.NetworkingV1().Ingresses("hopsworks").Get(context.Background(), hopsworks.IngressName, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "first.example.com", ing.Spec.Rules[0].Host)
}

func TestHostsEntry_Instructions(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &config.Config{})

	require.NoError(t, hostsEntry(h.ctx, IngressOptions{Hostname: "hops.local", HostsFile: "/etc/hosts"}, "10.0.0.9"))
	assert.Contains(t, h.out.String(), "echo '10.0.0.9 hops.local' | sudo tee -a /etc/hosts")
}

func TestHostsContains(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte("# comment\n10.0.0.9\thops.local alias\n"), 0o600))

	ok, err := hostsContains(path, "10.0.0.9 hops.local")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hostsContains(path, "10.0.0.8 hops.local")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hostsContains(filepath.Join(t.TempDir(), "missing"), "x y")
	assert.Error(t, err)
}
