package commands

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/logicalclocks/hopsworks-k8s-installer/cmd/hopsctl/handlers"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/install"
)

// Ingress returns the ingress command.
func Ingress(g *handlers.Globals) *cobra.Command {
	opts := handlers.IngressOptions{}

	cmd := &cobra.Command{
		Use:   "ingress",
		Short: "Expose Hopsworks through ingress-nginx",
		Long: heredoc.Doc(`
			Expose an installed Hopsworks under a hostname through ingress-nginx.

			The controller is installed when it is missing. With --update-hosts
			the controller address is added to the hosts file, otherwise the line
			to add is printed.

			Examples:
			  hopsctl ingress
			  sudo hopsctl ingress --hostname hopsworks.example.local --update-hosts
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Globals = *g
			return handlers.Ingress(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Hostname, "hostname", install.DefaultHostname, "Hostname Hopsworks is served under")
	f.BoolVar(&opts.UpdateHosts, "update-hosts", false, "Append the address to the hosts file")
	f.StringVar(&opts.HostsFile, "hosts-file", install.DefaultHostsFile, "Hosts file to update")
	f.BoolVarP(&opts.AssumeYes, "yes", "y", false, "Answer yes to every question")

	return cmd
}
