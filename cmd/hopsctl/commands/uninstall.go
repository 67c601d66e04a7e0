package commands

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/logicalclocks/hopsworks-k8s-installer/cmd/hopsctl/handlers"
)

// Uninstall returns the uninstall command.
//
// The uninstall command removes the Hopsworks release and namespace. The
// persistent volumes are kept unless --delete-pvs is given.
func Uninstall(g *handlers.Globals) *cobra.Command {
	opts := handlers.UninstallOptions{}

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove Hopsworks from the cluster",
		Long: heredoc.Doc(`
			Uninstall removes the Hopsworks Helm release and its namespace.

			Persistent volumes claimed in the namespace are kept so the data
			survives a reinstall. Pass --delete-pvs to remove them as well.

			Example:
			  hopsctl uninstall --delete-pvs --yes

			WARNING: with --delete-pvs all Hopsworks data is lost.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Globals = *g
			return handlers.Uninstall(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DeletePVs, "delete-pvs", false, "Also delete the persistent volumes of the namespace")
	cmd.Flags().BoolVarP(&opts.AssumeYes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
