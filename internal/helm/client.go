// Package helm drives the Helm SDK against a kubeconfig file: repository
// management, install-or-upgrade, uninstall and release listing.
package helm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/storage/driver"
)

// develVersion is the constraint helm uses for --devel without --version.
const develVersion = ">0.0.0-0"

// ErrReleaseNotFound is returned by Uninstall for unknown releases.
var ErrReleaseNotFound = errors.New("release not found")

// knownNonFatal lists install errors that leave a working release behind.
var knownNonFatal = []string{
	"invalid ingress class: IngressClass.networking.k8s.io",
}

// IsNonFatal reports whether an install error can be downgraded to a
// warning.
func IsNonFatal(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, known := range knownNonFatal {
		if strings.Contains(msg, known) {
			return true
		}
	}
	return false
}

// Client runs helm actions for one namespace.
type Client struct {
	settings  *cli.EnvSettings
	cfg       *action.Configuration
	namespace string
	log       logr.Logger
}

// NewClient creates a client for namespace using the given kubeconfig file
// and context. Empty values use helm's defaults. An empty namespace lets
// List see every namespace.
func NewClient(kubeconfig, kubeContext, namespace string, log logr.Logger) (*Client, error) {
	settings := cli.New()
	if kubeconfig != "" {
		settings.KubeConfig = kubeconfig
	}
	settings.KubeContext = kubeContext
	if namespace != "" {
		settings.SetNamespace(namespace)
	}

	c := &Client{settings: settings, namespace: namespace, log: log}

	cfg := new(action.Configuration)
	if err := cfg.Init(settings.RESTClientGetter(), namespace, os.Getenv("HELM_DRIVER"), c.debugf); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}
	c.cfg = cfg
	return c, nil
}

func (c *Client) debugf(format string, v ...interface{}) {
	c.log.V(1).Info(fmt.Sprintf(format, v...), "component", "helm")
}

// InstallOptions configure InstallOrUpgrade.
type InstallOptions struct {
	ReleaseName string
	// Chart is a repo/chart reference, a local path or a URL.
	Chart   string
	Version string
	// Devel accepts pre-release chart versions when Version is empty.
	Devel           bool
	CreateNamespace bool
	Wait            bool
	Timeout         time.Duration
	Values          map[string]any
}

func (o InstallOptions) version() string {
	if o.Version == "" && o.Devel {
		return develVersion
	}
	return o.Version
}

// InstallOrUpgrade installs the chart, or upgrades the release when it
// already exists.
func (c *Client) InstallOrUpgrade(ctx context.Context, opts InstallOptions) (*Release, error) {
	install := action.NewInstall(c.cfg)
	install.Version = opts.version()
	chartPath, err := install.LocateChart(opts.Chart, c.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to locate chart %s: %w", opts.Chart, err)
	}

	ch, err := loader.Load(chartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart %s: %w", chartPath, err)
	}

	return c.installChart(ctx, ch, opts)
}

func (c *Client) installChart(ctx context.Context, ch *chart.Chart, opts InstallOptions) (*Release, error) {
	values := opts.Values
	if values == nil {
		values = map[string]any{}
	}

	exists, err := c.releaseExists(opts.ReleaseName)
	if err != nil {
		return nil, err
	}

	var rel *release.Release
	if exists {
		c.log.Info("upgrading release", "release", opts.ReleaseName, "namespace", c.namespace)
		upgrade := action.NewUpgrade(c.cfg)
		upgrade.Namespace = c.namespace
		upgrade.Version = opts.version()
		upgrade.Wait = opts.Wait
		upgrade.Timeout = opts.Timeout
		rel, err = upgrade.RunWithContext(ctx, opts.ReleaseName, ch, values)
	} else {
		c.log.Info("installing release", "release", opts.ReleaseName, "namespace", c.namespace)
		install := action.NewInstall(c.cfg)
		install.ReleaseName = opts.ReleaseName
		install.Namespace = c.namespace
		install.CreateNamespace = opts.CreateNamespace
		install.Version = opts.version()
		install.Wait = opts.Wait
		install.Timeout = opts.Timeout
		rel, err = install.RunWithContext(ctx, ch, values)
	}
	if err != nil {
		return nil, fmt.Errorf("helm release %s failed: %w", opts.ReleaseName, err)
	}
	return fromRelease(rel), nil
}

func (c *Client) releaseExists(name string) (bool, error) {
	history := action.NewHistory(c.cfg)
	history.Max = 1
	_, err := history.Run(name)
	if errors.Is(err, driver.ErrReleaseNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read history of %s: %w", name, err)
	}
	return true, nil
}

// Uninstall removes a release and waits for its resources to go.
func (c *Client) Uninstall(name string, timeout time.Duration) error {
	uninstall := action.NewUninstall(c.cfg)
	uninstall.Wait = timeout > 0
	uninstall.Timeout = timeout

	if _, err := uninstall.Run(name); err != nil {
		if errors.Is(err, driver.ErrReleaseNotFound) {
			return ErrReleaseNotFound
		}
		return fmt.Errorf("failed to uninstall %s: %w", name, err)
	}
	return nil
}

// List returns every release the client can see, in any state.
func (c *Client) List() ([]Release, error) {
	list := action.NewList(c.cfg)
	list.All = true
	list.AllNamespaces = c.namespace == ""
	list.SetStateMask()

	rels, err := list.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}

	out := make([]Release, 0, len(rels))
	for _, r := range rels {
		out = append(out, *fromRelease(r))
	}
	return out, nil
}
