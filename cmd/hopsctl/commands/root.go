// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/logicalclocks/hopsworks-k8s-installer/cmd/hopsctl/handlers"
)

// Root returns the root command for the hopsctl CLI.
//
// Flags shared by the cluster commands are persistent on the root so they
// can be given before or after the subcommand.
func Root() *cobra.Command {
	g := &handlers.Globals{}

	cmd := &cobra.Command{
		Use:   "hopsctl",
		Short: "Install Hopsworks on Kubernetes",
		Long: heredoc.Doc(`
			hopsctl installs Hopsworks on Kubernetes.

			It can create a GKE, EKS or AKS cluster with the registry, storage and
			IAM setup Hopsworks needs, or install into any cluster reachable through
			a kubeconfig. Answers can come from a YAML file, HOPSWORKS_* environment
			variables or flags; anything missing is asked for interactively.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.ConfigPath, "config", "c", "", "Path to an answers file")
	flags.StringVarP(&g.Namespace, "namespace", "n", "", "Namespace Hopsworks is installed in (default \"hopsworks\")")
	flags.StringVar(&g.Kubeconfig, "kubeconfig", "", "Path to the kubeconfig of an existing cluster")
	flags.StringVar(&g.KubeContext, "context", "", "Kubeconfig context to use")
	flags.CountVarP(&g.Verbosity, "verbose", "v", "Log more detail to the log file (repeatable)")

	// Cluster commands
	cmd.AddCommand(Install(g))
	cmd.AddCommand(Ingress(g))
	cmd.AddCommand(Uninstall(g))
	cmd.AddCommand(Diagnose(g))

	// Cloud commands
	cmd.AddCommand(Cleanup(g))

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
