package install

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/helm"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/hopsworks"
)

const (
	uninstallTimeout       = 10 * time.Minute
	namespaceDeleteTimeout = 10 * time.Minute
)

// ErrUninstallCancelled is returned when the user declines the uninstall.
var ErrUninstallCancelled = errors.New("uninstall cancelled")

// UninstallOptions configure the uninstall flow.
type UninstallOptions struct {
	// DeletePVs also removes the persistent volumes bound in the namespace.
	DeletePVs bool
	AssumeYes bool
}

// UninstallPhases removes the Hopsworks release, its namespace and
// optionally its volumes.
func UninstallPhases(opts UninstallOptions) []Phase {
	return []Phase{
		kubeconfigPhase(),
		NewPhase("uninstall", "Removing Hopsworks", func(ctx *Context) error {
			return uninstall(ctx, opts)
		}),
	}
}

// RunUninstall executes the uninstall flow.
func RunUninstall(ctx *Context, opts UninstallOptions) error {
	ctx.Command = "uninstall"
	return RunPhases(ctx, UninstallPhases(opts))
}

func uninstall(ctx *Context, opts UninstallOptions) error {
	const phase = "uninstall"
	ns := ctx.Config.Namespace

	desc := fmt.Sprintf("Release %s and namespace %s will be deleted", hopsworks.ReleaseName, ns)
	if opts.DeletePVs {
		desc += " together with their persistent volumes"
	}
	ok, err := ctx.confirmOrYes(opts.AssumeYes, "Uninstall Hopsworks?", desc)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUninstallCancelled
	}

	kube, err := ctx.Kube()
	if err != nil {
		return err
	}
	// Claims disappear with the namespace, so the volumes are looked up first.
	var volumes []string
	if opts.DeletePVs {
		volumes, err = kube.VolumesClaimedBy(ctx, ns)
		if err != nil {
			return err
		}
	}

	var result *multierror.Error

	h, err := ctx.Helm(ns)
	if err != nil {
		return err
	}
	deleting(ctx.Observer, phase, "helm release", hopsworks.ReleaseName)
	switch err := h.Uninstall(hopsworks.ReleaseName, uninstallTimeout); {
	case errors.Is(err, helm.ErrReleaseNotFound):
		ctx.Out.Info("Release %s is not installed", hopsworks.ReleaseName)
	case err != nil:
		result = multierror.Append(result, err)
	default:
		deleted(ctx.Observer, phase, "helm release", hopsworks.ReleaseName)
	}

	deleting(ctx.Observer, phase, "namespace", ns)
	if err := kube.DeleteNamespace(ctx, ns, namespaceDeleteTimeout); err != nil {
		result = multierror.Append(result, err)
	} else {
		deleted(ctx.Observer, phase, "namespace", ns)
	}

	for _, pv := range volumes {
		deleting(ctx.Observer, phase, "persistent volume", pv)
		if err := kube.DeletePersistentVolume(ctx, pv); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		deleted(ctx.Observer, phase, "persistent volume", pv)
	}
	if !opts.DeletePVs {
		ctx.Out.Info("Persistent volumes were kept, rerun with --delete-pvs to remove them")
	}

	return result.ErrorOrNil()
}
