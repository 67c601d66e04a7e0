package commands

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/logicalclocks/hopsworks-k8s-installer/cmd/hopsctl/handlers"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
)

// Install returns the install command.
//
// The install command prepares the cluster for the chosen provider and
// installs the Hopsworks chart, then prints how to reach it.
func Install(g *handlers.Globals) *cobra.Command {
	opts := handlers.InstallOptions{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install Hopsworks",
		Long: heredoc.Doc(`
			Install Hopsworks on a new managed cluster or an existing one.

			For gcp, aws and azure the cluster is created with the provider CLI
			together with the image registry, service accounts and storage the
			chart needs. For other, the cluster in the kubeconfig is used as is.

			Progress is printed to the terminal and every line and command is
			mirrored to the log file.

			Examples:
			  hopsctl install
			  hopsctl install --provider gcp -c answers.yaml
			  hopsctl install --provider other --kubeconfig ~/.kube/config --skip-license --no-user-data
			  hopsctl install --loadbalancer-only
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Globals = *g
			return handlers.Install(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Provider, "provider", "p", "", "Cloud provider: aws, gcp, azure or other")
	f.StringVar(&opts.ValuesFile, "values", "", "Extra Helm values file merged over the generated values")
	f.StringVar(&opts.LogFile, "log-file", "", "Log file (default \""+config.DefaultInstallLogFile+"\")")
	f.BoolVar(&opts.LoadBalancerOnly, "loadbalancer-only", false, "Only print the access details of an existing installation")
	f.BoolVar(&opts.NoUserData, "no-user-data", false, "Do not register the installation")
	f.BoolVar(&opts.SkipLicense, "skip-license", false, "Skip the license agreement")

	return cmd
}
