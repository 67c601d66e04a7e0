package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/install"
)

// IngressOptions are the flags of the ingress command.
type IngressOptions struct {
	Globals
	Hostname    string
	HostsFile   string
	UpdateHosts bool
	AssumeYes   bool
}

// UninstallOptions are the flags of the uninstall command.
type UninstallOptions struct {
	Globals
	DeletePVs bool
	AssumeYes bool
}

// Factory function variables for the existing-cluster commands - can be
// replaced in tests.
var (
	runIngress   = install.RunIngress
	runUninstall = install.RunUninstall
	runDiagnose  = install.RunDiagnose
)

// Ingress handles the ingress command.
func Ingress(ctx context.Context, opts IngressOptions) error {
	return withCluster(ctx, opts.Globals, func(ictx *install.Context) error {
		return runIngress(ictx, install.IngressOptions{
			Hostname:    opts.Hostname,
			UpdateHosts: opts.UpdateHosts,
			HostsFile:   opts.HostsFile,
			AssumeYes:   opts.AssumeYes,
		})
	})
}

// Uninstall handles the uninstall command. Without a terminal it only runs
// with --yes.
func Uninstall(ctx context.Context, opts UninstallOptions) error {
	if !opts.AssumeYes && !isInteractive() {
		return fmt.Errorf("%w: pass --yes to uninstall", ErrNotInteractive)
	}
	err := withCluster(ctx, opts.Globals, func(ictx *install.Context) error {
		return runUninstall(ictx, install.UninstallOptions{
			DeletePVs: opts.DeletePVs,
			AssumeYes: opts.AssumeYes,
		})
	})
	if errors.Is(err, install.ErrUninstallCancelled) {
		return nil
	}
	return err
}

// Diagnose handles the diagnose command.
func Diagnose(ctx context.Context, g Globals) error {
	return withCluster(ctx, g, runDiagnose)
}

// withCluster resolves the configuration, opens the install log and runs
// fn against the configured cluster.
func withCluster(ctx context.Context, g Globals, fn func(*install.Context) error) error {
	cfg, err := resolveConfig(g)
	if err != nil {
		return err
	}
	s, err := openSession(cfg.Install.LogFile, g.Verbosity)
	if err != nil {
		return err
	}
	defer s.close()

	if err := fn(newInstallContext(ctx, cfg, s)); err != nil {
		s.out.Error("%v", err)
		return err
	}
	return nil
}
