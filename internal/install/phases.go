package install

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config/wizard"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/helm"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/hopsworks"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/telemetry"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui/tui"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/prerequisites"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/retry"
)

const (
	namespaceTimeout = 2 * time.Minute

	monitorInterval = 5 * time.Second

	// The load balancer address is read up to addressAttempts times
	// spread over the load balancer timeout.
	addressAttempts = 12
)

// ErrNoAddress is returned when the Hopsworks service never got an
// external address.
var ErrNoAddress = errors.New("no load balancer address assigned yet")

// Phases returns the install flow for cfg. A load-balancer-only run
// connects to the cluster and prints the access details.
func Phases(cfg *config.Config) []Phase {
	if cfg.Install.LoadBalancerOnly {
		return []Phase{prerequisitesPhase(), kubeconfigPhase(), finalizePhase()}
	}
	return []Phase{
		prerequisitesPhase(),
		environmentPhase(),
		registryPhase(),
		licensePhase(),
		chartPhase(),
		finalizePhase(),
	}
}

// Run executes the install flow.
func Run(ctx *Context) error {
	ctx.Out.Banner()
	return RunPhases(ctx, Phases(ctx.Config))
}

func prerequisitesPhase() Phase {
	return NewPhase("prerequisites", "Checking required tools", func(ctx *Context) error {
		results := prerequisites.Check(ctx, prerequisites.ToolsFor(ctx.Config.Provider), false)
		for _, r := range results.Results {
			if r.Found {
				ctx.Out.Success("%s found at %s", r.Tool.Name, r.Path)
			}
		}
		return results.Error()
	})
}

func environmentPhase() Phase {
	return NewPhase("environment", "Preparing the cluster", func(ctx *Context) error {
		switch ctx.Config.Provider {
		case config.ProviderGCP:
			return setupGKE(ctx)
		case config.ProviderAWS:
			return setupEKS(ctx)
		case config.ProviderAzure:
			return setupAKS(ctx)
		default:
			return useKubeconfig(ctx, ctx.Config.Kubeconfig, true)
		}
	})
}

func registryPhase() Phase {
	return NewPhase("registry", "Setting up the image registry", func(ctx *Context) error {
		switch ctx.Config.Provider {
		case config.ProviderGCP:
			return gkeRegistry(ctx)
		case config.ProviderAWS:
			return eksRegistry(ctx)
		case config.ProviderAzure:
			return aksRegistry(ctx)
		default:
			ctx.Out.Info("No managed registry for %s", ctx.Config.Provider.DisplayName())
			return nil
		}
	})
}

func licensePhase() Phase {
	return NewPhase("license", "License agreement", func(ctx *Context) error {
		opts := ctx.Config.Install
		if opts.SkipLicense {
			ctx.Out.Info("Skipping license agreement")
		} else {
			if ctx.Deps.Prompter == nil {
				return fmt.Errorf("%w: run interactively or pass --skip-license", wizard.ErrLicenseDeclined)
			}
			lic, err := ctx.Deps.Prompter.License(ctx)
			if err != nil {
				return err
			}
			if !lic.Agreed {
				return wizard.ErrLicenseDeclined
			}
			ctx.State.License = lic
			ctx.Out.Success("%s license accepted", lic.Type)
		}

		if opts.NoUserData || ctx.Deps.Telemetry == nil || ctx.Deps.Prompter == nil {
			ctx.State.InstallationID = telemetry.DebugInstallationID
			ctx.Out.Info("Not sending user data")
			return nil
		}

		user, err := ctx.Deps.Prompter.UserInfo(ctx)
		if err != nil {
			return err
		}
		id, err := ctx.Deps.Telemetry.Register(ctx, user, ctx.State.License)
		if err != nil {
			ctx.Out.Warn("Could not send user data: %v", err)
			id = telemetry.UnknownInstallationID
		}
		ctx.State.InstallationID = id
		ctx.Out.Success("Installation ID: %s", id)
		return nil
	})
}

// chartValues layers the user's values file over the generated values.
func chartValues(ctx *Context) (helm.Values, error) {
	values, err := hopsworks.Values(hopsworks.ValuesInput{
		Provider:          ctx.Config.Provider,
		Registry:          ctx.State.Registry,
		GCPServiceAccount: ctx.State.GCPServiceAccount,
	})
	if err != nil {
		return nil, err
	}
	if path := ctx.Config.Install.ValuesFile; path != "" {
		extra, err := config.LoadValuesFile(path)
		if err != nil {
			return nil, err
		}
		values = helm.MergeValues(values, extra)
	}
	return values, nil
}

// logValues writes the rendered chart values to the log at V(1).
func logValues(log logr.Logger, values helm.Values) {
	v := log.V(1)
	if !v.Enabled() {
		return
	}
	rendered, err := helm.ToYAML(values)
	if err != nil {
		v.Info("could not render chart values", "error", err.Error())
		return
	}
	v.Info("chart values", "release", hopsworks.ReleaseName, "values", string(rendered))
}

func chartPhase() Phase {
	return NewPhase("chart", "Installing Hopsworks", func(ctx *Context) error {
		ns := ctx.Config.Namespace
		h, err := ctx.Helm(ns)
		if err != nil {
			return err
		}
		if err := h.AddRepo(hopsworks.RepoName, hopsworks.RepoURL); err != nil {
			return err
		}
		if err := h.UpdateRepos(); err != nil {
			return err
		}

		kube, err := ctx.Kube()
		if err != nil {
			return err
		}
		if _, err := kube.EnsureNamespace(ctx, ns, namespaceTimeout); err != nil {
			return err
		}

		values, err := chartValues(ctx)
		if err != nil {
			return err
		}
		logValues(ctx.Out.Logger(), values)

		creating(ctx.Observer, "chart", "helm release", hopsworks.ReleaseName)
		_, err = h.InstallOrUpgrade(ctx, helm.InstallOptions{
			ReleaseName:     hopsworks.ReleaseName,
			Chart:           hopsworks.ChartRef,
			Devel:           true,
			CreateNamespace: true,
			Timeout:         ctx.Timeouts.HelmInstall,
			Values:          values,
		})
		switch {
		case helm.IsNonFatal(err):
			ctx.Out.Warn("Helm reported a known issue, continuing: %v", err)
		case err != nil:
			return err
		default:
			created(ctx.Observer, "chart", "helm release", hopsworks.ReleaseName)
		}

		ctx.Out.Info("Waiting for Hopsworks to come up, this usually takes 20 to 30 minutes")
		outcome, err := ctx.Deps.Monitor(ctx, deploymentStatus(kube, ns), tui.Options{
			Namespace:    ns,
			Timeout:      ctx.Timeouts.Deployment,
			PollInterval: monitorInterval,
		})
		ctx.State.Outcome = outcome
		if err != nil {
			return err
		}
		switch outcome {
		case tui.OutcomeReady:
			ctx.Out.Success("Hopsworks is ready")
		case tui.OutcomeOverride:
			ctx.Out.Warn("Continuing before every job finished")
		case tui.OutcomeTimedOut:
			ctx.Out.Warn("Hopsworks is not ready after %s, it may still be starting", ctx.Timeouts.Deployment)
			ctx.Out.Command("kubectl get pods,jobs -n %s", ns)
		}
		return nil
	})
}

func finalizePhase() Phase {
	return NewPhase("finalize", "Access details", func(ctx *Context) error {
		ns := ctx.Config.Namespace
		kube, err := ctx.Kube()
		if err != nil {
			return err
		}

		err = retry.WithExponentialBackoff(ctx, func() error {
			addr, err := kube.LoadBalancerAddress(ctx, ns, hopsworks.LoadBalancerService)
			if apierrors.IsForbidden(err) {
				return retry.Fatal(err)
			}
			if err != nil {
				return err
			}
			if addr == "" {
				return ErrNoAddress
			}
			ctx.State.Address = addr
			return nil
		},
			retry.WithMaxRetries(addressAttempts-1),
			retry.WithInitialDelay(ctx.Timeouts.LoadBalancer/addressAttempts),
			retry.WithMultiplier(1),
		)
		if err != nil {
			ctx.Out.Warn("Could not read the load balancer address: %v", err)
			ctx.Out.Command("kubectl get svc -n %s %s", ns, hopsworks.LoadBalancerService)
		} else {
			ctx.Out.Section("Hopsworks is available")
			ctx.Out.Plain("UI:       %s", hopsworks.UIURL(ctx.State.Address))
			ctx.Out.Plain("API:      %s", hopsworks.APIURL(ctx.State.Address))
			ctx.Out.Plain("Login:    %s", hopsworks.DefaultUser)
			ctx.Out.Plain("Password: %s", hopsworks.DefaultPassword)
		}

		healthy, err := kube.Healthy(ctx, ns)
		switch {
		case err != nil:
			ctx.Out.Warn("Health check failed: %v", err)
		case healthy:
			ctx.Out.Success("Pods are running in %s", ns)
		default:
			ctx.Out.Warn("No running pods in %s yet", ns)
		}
		if id := ctx.State.InstallationID; id != "" {
			ctx.Out.Info("Installation ID: %s", id)
		}
		return nil
	})
}
