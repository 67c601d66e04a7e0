package handlers

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/metrics"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/aws"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/azure"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/gcp"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/s3"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/shell"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/teardown"
)

// CleanupOptions are the flags shared by the cleanup subcommands.
type CleanupOptions struct {
	Verbosity   int
	LogFile     string
	MetricsFile string
	Quiet       bool
	NoWait      bool
	AssumeYes   bool
	DryRun      bool
}

// GKECleanup selects the GKE resources to remove.
type GKECleanup struct {
	Project       string
	Region        string
	ClusterPrefix string
}

// AKSCleanup selects the AKS resources to remove.
type AKSCleanup struct {
	ResourceGroup       string
	ClusterPrefix       string
	DeleteResourceGroup bool
}

// EKSCleanup selects the EKS resources to remove.
type EKSCleanup struct {
	Cluster string
	Region  string
	Profile string
}

// Factory function variables for cleanup - can be replaced in tests.
var (
	newRunner = func(log logr.Logger) shell.Runner {
		return shell.NewExecRunner(log)
	}

	newGCPClient = func(run shell.Runner, project string) teardown.GCPClient {
		return gcp.NewClient(run, project)
	}

	newAzureClient = func(run shell.Runner, resourceGroup string) teardown.AzureClient {
		return azure.NewClient(run, resourceGroup)
	}

	newAWSClient = func(ctx context.Context, run shell.Runner, profile, region string) (teardown.AWSClient, error) {
		return aws.NewClient(ctx, run, profile, region)
	}

	// newBucketClient returns an untyped nil on failure so the EKS plan
	// sees no bucket client at all.
	newBucketClient = func(ctx context.Context, log logr.Logger, profile, region string) (teardown.BucketClient, error) {
		c, err := s3.NewClient(ctx, profile, region)
		if err != nil {
			return nil, err
		}
		return c.WithLogger(log), nil
	}

	newEngine = teardown.NewEngine

	runPlan = func(ctx context.Context, e *teardown.Engine, plan teardown.Plan) (*teardown.Summary, error) {
		return e.Run(ctx, plan)
	}
)

// CleanupGKE handles the cleanup gke command.
func CleanupGKE(ctx context.Context, opts CleanupOptions, scope GKECleanup) error {
	if scope.ClusterPrefix == "" {
		scope.ClusterPrefix = config.DefaultClusterPrefix
	}
	return cleanup(ctx, opts, func(_ *session, run shell.Runner, topts teardown.Options) (teardown.Plan, error) {
		c := newGCPClient(run, scope.Project)
		return teardown.GKEPlan(c, teardown.GKEScope{Region: scope.Region, ClusterPrefix: scope.ClusterPrefix}, topts), nil
	})
}

// CleanupAKS handles the cleanup aks command.
func CleanupAKS(ctx context.Context, opts CleanupOptions, scope AKSCleanup) error {
	if scope.ClusterPrefix == "" {
		scope.ClusterPrefix = config.DefaultClusterPrefix
	}
	return cleanup(ctx, opts, func(_ *session, run shell.Runner, topts teardown.Options) (teardown.Plan, error) {
		c := newAzureClient(run, scope.ResourceGroup)
		return teardown.AKSPlan(c, teardown.AKSScope{
			ClusterPrefix:       scope.ClusterPrefix,
			DeleteResourceGroup: scope.DeleteResourceGroup,
		}, topts), nil
	})
}

// CleanupEKS handles the cleanup eks command. Buckets are skipped with a
// warning when the AWS SDK cannot be configured.
func CleanupEKS(ctx context.Context, opts CleanupOptions, scope EKSCleanup) error {
	if scope.Profile == "" {
		scope.Profile = config.DefaultAWSProfile
	}
	return cleanup(ctx, opts, func(s *session, run shell.Runner, topts teardown.Options) (teardown.Plan, error) {
		c, err := newAWSClient(ctx, run, scope.Profile, scope.Region)
		if err != nil {
			return teardown.Plan{}, err
		}
		buckets, err := newBucketClient(ctx, s.out.Logger().WithName("s3"), scope.Profile, scope.Region)
		if err != nil {
			s.out.Warn("Skipping S3 buckets: %v", err)
			buckets = nil
		}
		return teardown.EKSPlan(c, buckets, scope.Cluster, topts), nil
	})
}

type planFunc func(s *session, run shell.Runner, opts teardown.Options) (teardown.Plan, error)

// cleanup runs one provider plan and writes the metrics file when asked.
func cleanup(ctx context.Context, opts CleanupOptions, build planFunc) error {
	interactive := isInteractive()
	if !opts.AssumeYes && !opts.DryRun && !interactive {
		return fmt.Errorf("%w: pass --yes or --dry-run", ErrNotInteractive)
	}

	logPath := opts.LogFile
	if logPath == "" {
		logPath = config.DefaultCleanupLogFile
	}
	s, err := openSession(logPath, opts.Verbosity)
	if err != nil {
		return err
	}
	defer s.close()

	timeouts := config.LoadTimeouts()
	topts := teardown.Options{
		Quiet:     opts.Quiet,
		NoWait:    opts.NoWait,
		AssumeYes: opts.AssumeYes,
		DryRun:    opts.DryRun,
		Retry: teardown.Retry{
			MaxAttempts:  timeouts.RetryMaxAttempts,
			InitialDelay: timeouts.RetryInitialDelay,
			MaxDelay:     teardown.DefaultRetry.MaxDelay,
		},
	}

	plan, err := build(s, newRunner(s.out.Logger().WithName("exec")), topts)
	if err != nil {
		return err
	}

	var confirm teardown.Confirmer
	if interactive {
		confirm = newPrompter()
	}
	rec := metrics.NewRecorder()
	summary, runErr := runPlan(ctx, newEngine(s.out, confirm, rec, topts), plan)

	if opts.MetricsFile != "" {
		if err := rec.WriteTextfile(opts.MetricsFile); err != nil {
			s.out.Warn("Could not write metrics: %v", err)
		}
	}
	if runErr != nil {
		if summary != nil && summary.Failed > 0 {
			return fmt.Errorf("%s cleanup left %d resources behind: %w", plan.Provider, summary.Failed, runErr)
		}
		return fmt.Errorf("%s cleanup failed: %w", plan.Provider, runErr)
	}
	return nil
}
