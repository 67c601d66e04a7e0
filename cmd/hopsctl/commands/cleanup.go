package commands

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/logicalclocks/hopsworks-k8s-installer/cmd/hopsctl/handlers"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
)

// Cleanup returns the cleanup command and its provider subcommands.
//
// Each subcommand discovers the resources an installation left behind and
// deletes them in dependency order, asking once per resource kind unless
// --yes is given.
func Cleanup(g *handlers.Globals) *cobra.Command {
	opts := &handlers.CleanupOptions{}

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the cloud resources of an installation",
		Long: heredoc.Doc(`
			Cleanup removes the cloud resources created for Hopsworks.

			Resources are listed first and deleted per kind in dependency order.
			Deletions blocked by a resource that is still being torn down are
			retried with backoff. Failures are collected and reported at the end
			instead of stopping the run.

			WARNING: deleted clusters, registries and buckets cannot be recovered.
		`),
	}

	f := cmd.PersistentFlags()
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Only print resource tables, prompts, errors and the summary")
	f.BoolVar(&opts.NoWait, "no-wait", false, "Do not wait for asynchronous deletes to finish")
	f.BoolVarP(&opts.AssumeYes, "yes", "y", false, "Delete without asking")
	f.BoolVar(&opts.DryRun, "dry-run", false, "List the resources without deleting them")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this file")
	f.StringVar(&opts.LogFile, "log-file", config.DefaultCleanupLogFile, "Log file")

	resolve := func() handlers.CleanupOptions {
		o := *opts
		o.Verbosity = g.Verbosity
		return o
	}
	cmd.AddCommand(cleanupGKE(resolve))
	cmd.AddCommand(cleanupAKS(resolve))
	cmd.AddCommand(cleanupEKS(resolve))

	return cmd
}

func cleanupGKE(opts func() handlers.CleanupOptions) *cobra.Command {
	scope := handlers.GKECleanup{}

	cmd := &cobra.Command{
		Use:   "gke",
		Short: "Delete GKE clusters and their GCP resources",
		Long: heredoc.Doc(`
			Delete the GKE clusters matching the prefix, the forwarding rules,
			target pools and firewall rules GKE created for them, the Artifact
			Registry repositories, and the Hopsworks IAM role and service account.

			Example:
			  hopsctl cleanup gke --project my-project --region europe-west1
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CleanupGKE(cmd.Context(), opts(), scope)
		},
	}

	cmd.Flags().StringVar(&scope.Project, "project", "", "GCP project ID (required)")
	cmd.Flags().StringVar(&scope.Region, "region", "", "Only clean up this region")
	cmd.Flags().StringVar(&scope.ClusterPrefix, "cluster-prefix", config.DefaultClusterPrefix, "Prefix of the cluster names to delete")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func cleanupAKS(opts func() handlers.CleanupOptions) *cobra.Command {
	scope := handlers.AKSCleanup{}

	cmd := &cobra.Command{
		Use:   "aks",
		Short: "Delete AKS clusters and their Azure resources",
		Long: heredoc.Doc(`
			Delete the role assignments, AKS clusters, managed identities,
			load balancers, public IPs, network security groups and virtual
			networks of a resource group.

			Example:
			  hopsctl cleanup aks --resource-group hopsworks-rg --delete-resource-group
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CleanupAKS(cmd.Context(), opts(), scope)
		},
	}

	cmd.Flags().StringVar(&scope.ResourceGroup, "resource-group", "", "Azure resource group (required)")
	cmd.Flags().StringVar(&scope.ClusterPrefix, "cluster-prefix", config.DefaultClusterPrefix, "Prefix of the cluster names to delete")
	cmd.Flags().BoolVar(&scope.DeleteResourceGroup, "delete-resource-group", false, "Also delete the resource group")
	_ = cmd.MarkFlagRequired("resource-group")

	return cmd
}

func cleanupEKS(opts func() handlers.CleanupOptions) *cobra.Command {
	scope := handlers.EKSCleanup{}

	cmd := &cobra.Command{
		Use:   "eks",
		Short: "Delete an EKS cluster and its AWS resources",
		Long: heredoc.Doc(`
			Delete the load balancers and target groups of an EKS cluster, the
			cluster itself, the security groups left in its VPC, the load balancer
			controller role and policies, the ECR repositories and the S3 buckets
			tagged with the cluster name.

			Example:
			  hopsctl cleanup eks --cluster hopsworks-demo --region eu-north-1
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CleanupEKS(cmd.Context(), opts(), scope)
		},
	}

	cmd.Flags().StringVar(&scope.Cluster, "cluster", "", "EKS cluster name (required)")
	cmd.Flags().StringVar(&scope.Region, "region", "", "AWS region (required)")
	cmd.Flags().StringVar(&scope.Profile, "profile", config.DefaultAWSProfile, "AWS profile")
	_ = cmd.MarkFlagRequired("cluster")
	_ = cmd.MarkFlagRequired("region")

	return cmd
}
