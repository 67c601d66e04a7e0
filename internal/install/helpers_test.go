package install

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/helm"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/k8s"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/metrics"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/shell"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/telemetry"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui/tui"
)

var testNow = time.Unix(1700000000, 0)

// fakeHelm records helm calls.
type fakeHelm struct {
	mu           sync.Mutex
	namespaces   []string
	repos        []string
	installs     []helm.InstallOptions
	uninstalls   []string
	releases     []helm.Release
	installErr   error
	uninstallErr error
	// onInstall runs after a successful install, standing in for the
	// objects a chart would create.
	onInstall func(opts helm.InstallOptions)
}

func (f *fakeHelm) AddRepo(name, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos = append(f.repos, name)
	return nil
}

func (f *fakeHelm) UpdateRepos() error { return nil }

func (f *fakeHelm) InstallOrUpgrade(_ context.Context, opts helm.InstallOptions) (*helm.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs = append(f.installs, opts)
	if f.installErr != nil {
		return nil, f.installErr
	}
	if f.onInstall != nil {
		f.onInstall(opts)
	}
	return &helm.Release{Name: opts.ReleaseName, Revision: 1, Status: "deployed"}, nil
}

func (f *fakeHelm) Uninstall(name string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uninstalls = append(f.uninstalls, name)
	return f.uninstallErr
}

func (f *fakeHelm) List() ([]helm.Release, error) {
	return f.releases, nil
}

func (f *fakeHelm) installed(release string) *helm.InstallOptions {
	for i := range f.installs {
		if f.installs[i].ReleaseName == release {
			return &f.installs[i]
		}
	}
	return nil
}

// fakePrompter answers every question from its fields.
type fakePrompter struct {
	license   telemetry.License
	user      telemetry.UserInfo
	regUser   string
	regPass   string
	confirm   bool
	context   string
	confirmed []string
	err       error
}

func (p *fakePrompter) License(context.Context) (telemetry.License, error) {
	return p.license, p.err
}

func (p *fakePrompter) UserInfo(context.Context) (telemetry.UserInfo, error) {
	return p.user, p.err
}

func (p *fakePrompter) RegistryCredentials(context.Context) (string, string, error) {
	return p.regUser, p.regPass, p.err
}

func (p *fakePrompter) Confirm(_ context.Context, title, _ string) (bool, error) {
	p.confirmed = append(p.confirmed, title)
	return p.confirm, p.err
}

func (p *fakePrompter) SelectContext(_ context.Context, _ []string, current string) (string, error) {
	if p.context != "" {
		return p.context, p.err
	}
	return current, p.err
}

type fakeRegistrar struct {
	id   string
	err  error
	user telemetry.UserInfo
}

func (r *fakeRegistrar) Register(_ context.Context, user telemetry.UserInfo, _ telemetry.License) (string, error) {
	r.user = user
	return r.id, r.err
}

type fakeBuckets struct {
	name string
	tags map[string]string
}

func (b *fakeBuckets) CreateBucket(_ context.Context, name string, tags map[string]string) error {
	b.name, b.tags = name, tags
	return nil
}

// harness bundles a Context with the fakes behind it.
type harness struct {
	ctx      *Context
	out      *bytes.Buffer
	shell    *shell.Fake
	helm     *fakeHelm
	cs       *fake.Clientset
	events   *recordingObserver
	monitors int
}

func activeNamespace(name string) *corev1.Namespace {
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status:     corev1.NamespaceStatus{Phase: corev1.NamespaceActive},
	}
}

func newHarness(t *testing.T, cfg *config.Config, objects ...runtime.Object) *harness {
	t.Helper()
	h := &harness{
		out:    &bytes.Buffer{},
		shell:  shell.NewFake(),
		helm:   &fakeHelm{},
		events: &recordingObserver{},
	}

	//nolint:staticcheck // SA1019: NewSimpleClientset is sufficient for our testing needs
	h.cs = fake.NewSimpleClientset(objects...)
	h.cs.PrependReactor("create", "namespaces", func(action k8stesting.Action) (bool, runtime.Object, error) {
		ns := action.(k8stesting.CreateAction).GetObject().(*corev1.Namespace)
		ns.Status.Phase = corev1.NamespaceActive
		return false, nil, nil
	})

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultNamespace
	}
	out := ui.NewPrinter(h.out, logr.Discard())
	deps := Deps{
		Runner: h.shell,
		NewKube: func(string, string) (*k8s.Client, error) {
			return k8s.NewFromClientset(h.cs), nil
		},
		NewHelm: func(_, _, namespace string) (Helm, error) {
			h.helm.mu.Lock()
			defer h.helm.mu.Unlock()
			h.helm.namespaces = append(h.helm.namespaces, namespace)
			return h.helm, nil
		},
		Monitor: func(context.Context, tui.StatusFunc, tui.Options) (tui.Outcome, error) {
			h.monitors++
			return tui.OutcomeReady, nil
		},
		Sleep:   func(context.Context, time.Duration) error { return nil },
		Now:     func() time.Time { return testNow },
		WorkDir: t.TempDir(),
	}
	h.ctx = NewContext(context.Background(), cfg, out, deps)
	h.ctx.Observer = h.events
	h.ctx.Metrics = metrics.NewRecorder()
	h.ctx.Timeouts = &config.Timeouts{
		Deployment:      time.Second,
		LoadBalancer:    12 * time.Millisecond,
		AKSProvisioning: time.Second,
		Ingress:         50 * time.Millisecond,
		HelmInstall:     time.Second,
	}
	return h
}

// writeKubeconfig writes a kubeconfig with the given contexts, the first
// one current.
func writeKubeconfig(t *testing.T, contexts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubeconfig")
	cfg := clientcmdapi.NewConfig()
	cfg.Clusters["c"] = &clientcmdapi.Cluster{Server: "https://127.0.0.1:6443"}
	cfg.AuthInfos["u"] = &clientcmdapi.AuthInfo{Token: "t"}
	for _, name := range contexts {
		cfg.Contexts[name] = &clientcmdapi.Context{Cluster: "c", AuthInfo: "u"}
	}
	if len(contexts) > 0 {
		cfg.CurrentContext = contexts[0]
	}
	require.NoError(t, clientcmd.WriteToFile(*cfg, path))
	return path
}

func lbService(namespace, name, ip string) *corev1.Service {
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeLoadBalancer},
	}
	if ip != "" {
		svc.Status.LoadBalancer.Ingress = []corev1.LoadBalancerIngress{{IP: ip}}
	}
	return svc
}

func runningPod(namespace, name string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, Labels: labels},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

var errBoom = errors.New("boom")
