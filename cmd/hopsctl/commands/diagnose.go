package commands

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/logicalclocks/hopsworks-k8s-installer/cmd/hopsctl/handlers"
)

// Diagnose returns the diagnose command.
func Diagnose(g *handlers.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Show the state of a Hopsworks installation",
		Long: heredoc.Doc(`
			Diagnose lists the persistent volumes, volume claims, Helm releases
			and pods of an installation. It changes nothing.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Diagnose(cmd.Context(), *g)
		},
	}
}
