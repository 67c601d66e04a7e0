// Package main is the entry point for the hopsctl CLI.
//
// hopsctl installs Hopsworks on a managed Kubernetes cluster (GKE, EKS or
// AKS) or on any existing cluster reachable through a kubeconfig, and
// removes the cloud resources an installation left behind.
//
// Commands: install, ingress, uninstall, diagnose, cleanup.
//
// For detailed usage information, run:
//
//	hopsctl --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/logicalclocks/hopsworks-k8s-installer/cmd/hopsctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
