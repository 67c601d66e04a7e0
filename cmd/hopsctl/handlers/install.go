package handlers

import (
	"context"
	"fmt"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config/wizard"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/install"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/metrics"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/telemetry"
)

// InstallOptions are the flags of the install command.
type InstallOptions struct {
	Globals
	Provider         string
	ValuesFile       string
	LogFile          string
	LoadBalancerOnly bool
	NoUserData       bool
	SkipLicense      bool
}

// Factory function variables for install - can be replaced in tests.
var (
	newTelemetry = func(endpoint string) install.Registrar {
		return telemetry.NewClient(endpoint)
	}

	runInstall = install.Run
)

// Install handles the install command.
//
// Answers come from the answers file, HOPSWORKS_* variables and flags, in
// that order of precedence from lowest to highest. Anything still missing is
// asked for when a terminal is attached.
func Install(ctx context.Context, opts InstallOptions) error {
	cfg, err := resolveConfig(opts.Globals)
	if err != nil {
		return err
	}
	if err := applyInstallFlags(cfg, opts); err != nil {
		return err
	}

	if isInteractive() {
		mode := wizard.ModeCreate
		if cfg.Install.LoadBalancerOnly {
			mode = wizard.ModeExisting
		}
		if err := completeConfig(ctx, cfg, mode); err != nil {
			return err
		}
	} else {
		cfg.ApplyProviderDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	s, err := openSession(cfg.Install.LogFile, opts.Verbosity)
	if err != nil {
		return err
	}
	defer s.close()
	s.out.Logger().Info("install started", "provider", cfg.Provider, "namespace", cfg.Namespace, "cluster", cfg.ClusterName)

	deps := install.Deps{}
	if isInteractive() {
		deps.Prompter = newPrompter()
	}
	if !cfg.Install.NoUserData {
		deps.Telemetry = newTelemetry(cfg.Telemetry.Endpoint)
	}
	ictx := newContext(ctx, cfg, s.out, deps)
	ictx.Metrics = metrics.NewRecorder()

	if err := runInstall(ictx); err != nil {
		s.out.Error("Installation failed: %v", err)
		return err
	}
	return nil
}

func applyInstallFlags(cfg *config.Config, opts InstallOptions) error {
	if opts.Provider != "" {
		p, err := config.ParseProvider(opts.Provider)
		if err != nil {
			return err
		}
		cfg.Provider = p
	}
	if opts.ValuesFile != "" {
		cfg.Install.ValuesFile = wizard.ExpandHome(opts.ValuesFile)
	}
	if opts.LogFile != "" {
		cfg.Install.LogFile = opts.LogFile
	}
	cfg.Install.LoadBalancerOnly = cfg.Install.LoadBalancerOnly || opts.LoadBalancerOnly
	cfg.Install.NoUserData = cfg.Install.NoUserData || opts.NoUserData
	cfg.Install.SkipLicense = cfg.Install.SkipLicense || opts.SkipLicense
	if cfg.Install.LogFile == "" {
		cfg.Install.LogFile = config.DefaultInstallLogFile
	}
	// A load-balancer-only run targets a cluster that already exists.
	if cfg.Install.LoadBalancerOnly && cfg.Provider == "" {
		cfg.Provider = config.ProviderOVH
	}
	return nil
}
