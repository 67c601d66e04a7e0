package install

import (
	"context"
	"fmt"
	"time"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/helm"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/hopsworks"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/k8s"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/metrics"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/aws"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/s3"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/shell"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/telemetry"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui/tui"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/naming"
)

// Prompter asks the user the questions the install flows need.
// wizard.Interactive implements it with huh forms.
type Prompter interface {
	License(ctx context.Context) (telemetry.License, error)
	UserInfo(ctx context.Context) (telemetry.UserInfo, error)
	RegistryCredentials(ctx context.Context) (string, string, error)
	Confirm(ctx context.Context, title, description string) (bool, error)
	SelectContext(ctx context.Context, contexts []string, current string) (string, error)
}

// Helm is the subset of the helm client the flows use.
type Helm interface {
	AddRepo(name, url string) error
	UpdateRepos() error
	InstallOrUpgrade(ctx context.Context, opts helm.InstallOptions) (*helm.Release, error)
	Uninstall(name string, timeout time.Duration) error
	List() ([]helm.Release, error)
}

// Registrar records an installation with the telemetry service.
type Registrar interface {
	Register(ctx context.Context, user telemetry.UserInfo, license telemetry.License) (string, error)
}

// BucketCreator creates the EKS data bucket.
type BucketCreator interface {
	CreateBucket(ctx context.Context, name string, tags map[string]string) error
}

// MonitorFunc waits for the chart to come up.
type MonitorFunc func(ctx context.Context, check tui.StatusFunc, opts tui.Options) (tui.Outcome, error)

// Deps are the external systems the flows talk to. Tests replace them.
type Deps struct {
	Runner    shell.Runner
	Prompter  Prompter
	Telemetry Registrar

	NewKube    func(kubeconfig, kubeContext string) (*k8s.Client, error)
	NewHelm    func(kubeconfig, kubeContext, namespace string) (Helm, error)
	NewAWS     func(ctx context.Context, run shell.Runner, profile, region string) (*aws.Client, error)
	NewBuckets func(ctx context.Context, profile, region string) (BucketCreator, error)

	// Monitor defaults to the Bubble Tea monitor on a terminal and a
	// polling loop otherwise.
	Monitor MonitorFunc

	// Sleep waits for eventually consistent cloud APIs.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time

	// WorkDir receives set_kubeconfig.sh.
	WorkDir string
	// ALBPolicyURL is where the load balancer controller policy is
	// downloaded from.
	ALBPolicyURL string
}

// State holds what earlier phases learned for later ones.
type State struct {
	// Timestamp suffixes the cloud resources created by this run.
	Timestamp string
	// Kubeconfig is the file every Kubernetes and Helm call uses.
	Kubeconfig string

	Registry          *hopsworks.ManagedRegistry
	GCPServiceAccount string

	License        telemetry.License
	InstallationID string

	Address string
	Outcome tui.Outcome

	kube      *k8s.Client
	awsClient *aws.Client
}

// Context carries the configuration, dependencies and state of one run.
type Context struct {
	context.Context
	Config   *config.Config
	State    *State
	Deps     Deps
	Observer Observer
	Out      *ui.Printer
	Metrics  *metrics.Recorder
	Timeouts *config.Timeouts

	// Command labels phase metrics.
	Command string
}

// NewContext creates a context with production dependencies filled in
// where deps leaves them empty.
func NewContext(ctx context.Context, cfg *config.Config, out *ui.Printer, deps Deps) *Context {
	c := &Context{
		Context:  ctx,
		Config:   cfg,
		State:    &State{},
		Deps:     withDefaults(deps, out),
		Observer: NewPrinterObserver(out),
		Out:      out,
		Timeouts: config.LoadTimeouts(),
		Command:  "install",
	}
	c.State.Timestamp = naming.Timestamp(c.Deps.Now())
	return c
}

func withDefaults(d Deps, out *ui.Printer) Deps {
	if d.Runner == nil {
		d.Runner = shell.NewExecRunner(out.Logger().WithName("exec"))
	}
	if d.NewKube == nil {
		d.NewKube = k8s.NewClient
	}
	if d.NewHelm == nil {
		log := out.Logger().WithName("helm")
		d.NewHelm = func(kubeconfig, kubeContext, namespace string) (Helm, error) {
			return helm.NewClient(kubeconfig, kubeContext, namespace, log)
		}
	}
	if d.NewAWS == nil {
		d.NewAWS = aws.NewClient
	}
	if d.NewBuckets == nil {
		d.NewBuckets = func(ctx context.Context, profile, region string) (BucketCreator, error) {
			return s3.NewClient(ctx, profile, region)
		}
	}
	if d.Monitor == nil {
		if out.Interactive() {
			d.Monitor = tui.Run
		} else {
			d.Monitor = pollMonitor(out)
		}
	}
	if d.Sleep == nil {
		d.Sleep = sleep
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.WorkDir == "" {
		d.WorkDir = "."
	}
	if d.ALBPolicyURL == "" {
		d.ALBPolicyURL = aws.ALBPolicyURL
	}
	return d
}

// Kube returns the Kubernetes client for the configured kubeconfig,
// creating it on first use.
func (c *Context) Kube() (*k8s.Client, error) {
	if c.State.kube != nil {
		return c.State.kube, nil
	}
	kube, err := c.Deps.NewKube(c.kubeconfig(), c.Config.KubeContext)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the cluster: %w", err)
	}
	c.State.kube = kube
	return kube, nil
}

// Helm returns a helm client for namespace.
func (c *Context) Helm(namespace string) (Helm, error) {
	h, err := c.Deps.NewHelm(c.kubeconfig(), c.Config.KubeContext, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create helm client: %w", err)
	}
	return h, nil
}

func (c *Context) kubeconfig() string {
	if c.State.Kubeconfig != "" {
		return c.State.Kubeconfig
	}
	return c.Config.Kubeconfig
}

// confirm asks a yes/no question. Without a terminal nobody can answer,
// so the question counts as declined.
func (c *Context) confirm(title, description string) (bool, error) {
	if c.Deps.Prompter == nil {
		return false, nil
	}
	return c.Deps.Prompter.Confirm(c, title, description)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
