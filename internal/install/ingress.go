package install

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/helm"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/hopsworks"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/k8s"
)

// ingress-nginx coordinates.
const (
	IngressNamespace   = "ingress-nginx"
	ingressRepoName    = "ingress-nginx"
	ingressRepoURL     = "https://kubernetes.github.io/ingress-nginx"
	ingressChart       = "ingress-nginx/ingress-nginx"
	ingressRelease     = "ingress-nginx"
	ingressService     = "ingress-nginx-controller"
	ingressPodSelector = "app.kubernetes.io/name=ingress-nginx-controller"
	ingressClass       = "nginx"

	DefaultHostname  = "hopsworks.ai.local"
	DefaultHostsFile = "/etc/hosts"

	ingressPollInterval = 5 * time.Second
)

// ErrIngressControllerMissing is returned when ingress-nginx is not
// running and the user chose not to install it.
var ErrIngressControllerMissing = errors.New("ingress-nginx controller is not installed")

// IngressOptions configure the ingress flow.
type IngressOptions struct {
	Hostname string
	// UpdateHosts appends the address to HostsFile.
	UpdateHosts bool
	HostsFile   string
	// AssumeYes answers every confirmation with yes.
	AssumeYes bool
}

// IngressPhases exposes Hopsworks through ingress-nginx under a hostname.
func IngressPhases(opts IngressOptions) []Phase {
	if opts.Hostname == "" {
		opts.Hostname = DefaultHostname
	}
	if opts.HostsFile == "" {
		opts.HostsFile = DefaultHostsFile
	}
	var addr string
	return []Phase{
		kubeconfigPhase(),
		NewPhase("controller", "Ingress controller", func(ctx *Context) error {
			return ensureIngressController(ctx, opts.AssumeYes)
		}),
		NewPhase("ingress", "Ingress for Hopsworks", func(ctx *Context) error {
			var err error
			addr, err = applyIngress(ctx, opts)
			return err
		}),
		NewPhase("hosts", "Name resolution", func(ctx *Context) error {
			return hostsEntry(ctx, opts, addr)
		}),
	}
}

// RunIngress executes the ingress flow.
func RunIngress(ctx *Context, opts IngressOptions) error {
	ctx.Command = "ingress"
	return RunPhases(ctx, IngressPhases(opts))
}

func (c *Context) confirmOrYes(yes bool, title, description string) (bool, error) {
	if yes {
		return true, nil
	}
	return c.confirm(title, description)
}

func ensureIngressController(ctx *Context, yes bool) error {
	kube, err := ctx.Kube()
	if err != nil {
		return err
	}
	if _, err := kube.EnsureNamespace(ctx, IngressNamespace, namespaceTimeout); err != nil {
		return err
	}

	running, err := kube.PodsRunning(ctx, IngressNamespace, ingressPodSelector)
	if err != nil {
		return err
	}
	if running {
		exists(ctx.Observer, "controller", "ingress controller", ingressRelease)
		return nil
	}

	ok, err := ctx.confirmOrYes(yes, "Install the ingress-nginx controller?", "No running ingress-nginx controller was found")
	if err != nil {
		return err
	}
	if !ok {
		return ErrIngressControllerMissing
	}

	h, err := ctx.Helm(IngressNamespace)
	if err != nil {
		return err
	}
	if err := h.AddRepo(ingressRepoName, ingressRepoURL); err != nil {
		return err
	}
	if err := h.UpdateRepos(); err != nil {
		return err
	}
	creating(ctx.Observer, "controller", "helm release", ingressRelease)
	_, err = h.InstallOrUpgrade(ctx, helm.InstallOptions{
		ReleaseName: ingressRelease,
		Chart:       ingressChart,
		Timeout:     ctx.Timeouts.Ingress,
		Values: helm.Values{
			"controller": map[string]any{
				"service": map[string]any{"type": "LoadBalancer"},
			},
		},
	})
	if err != nil {
		return err
	}
	created(ctx.Observer, "controller", "helm release", ingressRelease)

	ctx.Out.Info("Waiting for the controller pods")
	return kube.WaitForPodsRunning(ctx, IngressNamespace, ingressPodSelector, ingressPollInterval, ctx.Timeouts.Ingress)
}

// applyIngress creates or, after confirmation, updates the Hopsworks
// ingress and returns the controller address.
func applyIngress(ctx *Context, opts IngressOptions) (string, error) {
	kube, err := ctx.Kube()
	if err != nil {
		return "", err
	}
	addr, err := kube.WaitForLoadBalancerAddress(ctx, IngressNamespace, ingressService, ingressPollInterval, ctx.Timeouts.Ingress)
	if err != nil {
		return "", err
	}
	ctx.Out.Success("Ingress controller address: %s", addr)

	ns := ctx.Config.Namespace
	present, err := kube.IngressExists(ctx, ns, hopsworks.IngressName)
	if err != nil {
		return "", err
	}
	if present {
		ok, err := ctx.confirmOrYes(opts.AssumeYes, fmt.Sprintf("Update the existing ingress %s?", hopsworks.IngressName), "")
		if err != nil {
			return "", err
		}
		if !ok {
			exists(ctx.Observer, "ingress", "ingress", hopsworks.IngressName)
			return addr, nil
		}
	}

	spec := k8s.IngressSpec{
		Namespace:   ns,
		Name:        hopsworks.IngressName,
		Host:        opts.Hostname,
		ClassName:   ingressClass,
		ServiceName: hopsworks.HTTPService,
		ServicePort: hopsworks.HTTPPort,
		Annotations: map[string]string{"nginx.ingress.kubernetes.io/ssl-redirect": "false"},
	}
	made, err := kube.ApplyIngress(ctx, spec)
	if err != nil {
		return "", err
	}
	if made {
		created(ctx.Observer, "ingress", "ingress", hopsworks.IngressName)
	} else {
		ctx.Out.Success("Ingress %s updated", hopsworks.IngressName)
	}
	return addr, nil
}

// hostsEntry makes the hostname resolve to the controller address, either
// by appending to the hosts file or by telling the user how to.
func hostsEntry(ctx *Context, opts IngressOptions, addr string) error {
	line := fmt.Sprintf("%s %s", addr, opts.Hostname)
	if !opts.UpdateHosts {
		ctx.Out.Info("Add this line to %s to reach Hopsworks at http://%s", opts.HostsFile, opts.Hostname)
		ctx.Out.Command("echo '%s' | sudo tee -a %s", line, opts.HostsFile)
		return nil
	}

	present, err := hostsContains(opts.HostsFile, line)
	if err != nil {
		return err
	}
	if present {
		exists(ctx.Observer, "hosts", "hosts entry", line)
		return nil
	}
	// #nosec G302 G304 - the hosts file is world readable by convention
	f, err := os.OpenFile(opts.HostsFile, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s, rerun with sudo or add the entry manually: %w", opts.HostsFile, err)
	}
	if _, err := fmt.Fprintln(f, line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", opts.HostsFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.HostsFile, err)
	}
	created(ctx.Observer, "hosts", "hosts entry", line)
	ctx.Out.Info("Hopsworks is reachable at http://%s", opts.Hostname)
	return nil
}

func hostsContains(path, line string) (bool, error) {
	// #nosec G304 - path is chosen by the operator
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	want := strings.Fields(line)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == want[0] && fields[1] == want[1] {
			return true, nil
		}
	}
	return false, scanner.Err()
}
