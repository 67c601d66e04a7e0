package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/config/wizard"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/install"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/metrics"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/s3"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/platform/shell"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/teardown"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/telemetry"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
)

// stubHandlers restores every factory variable when the test ends and
// points output at a buffer.
func stubHandlers(t *testing.T, interactive bool) *bytes.Buffer {
	t.Helper()
	origLoad, origComplete, origOpen := loadConfig, completeConfig, openLog
	origStdout, origInteractive, origPrompter := stdout, isInteractive, newPrompter
	origContext, origTelemetry, origInstall := newContext, newTelemetry, runInstall
	origIngress, origUninstall, origDiagnose := runIngress, runUninstall, runDiagnose
	origRunner, origGCP, origAzure := newRunner, newGCPClient, newAzureClient
	origAWS, origBuckets, origEngine, origPlan := newAWSClient, newBucketClient, newEngine, runPlan
	t.Cleanup(func() {
		loadConfig, completeConfig, openLog = origLoad, origComplete, origOpen
		stdout, isInteractive, newPrompter = origStdout, origInteractive, origPrompter
		newContext, newTelemetry, runInstall = origContext, origTelemetry, origInstall
		runIngress, runUninstall, runDiagnose = origIngress, origUninstall, origDiagnose
		newRunner, newGCPClient, newAzureClient = origRunner, origGCP, origAzure
		newAWSClient, newBucketClient, newEngine, runPlan = origAWS, origBuckets, origEngine, origPlan
	})

	out := &bytes.Buffer{}
	stdout = out
	isInteractive = func() bool { return interactive }
	newPrompter = func() install.Prompter { return &stubPrompter{} }
	newRunner = func(logr.Logger) shell.Runner { return shell.NewFake() }
	return out
}

// withConfig makes loadConfig return cfg with its log in a temp dir.
func withConfig(t *testing.T, cfg *config.Config) {
	t.Helper()
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultNamespace
	}
	cfg.Install.LogFile = filepath.Join(t.TempDir(), "install.log")
	loadConfig = func(string) (*config.Config, error) { return cfg, nil }
}

type stubPrompter struct{}

func (stubPrompter) License(context.Context) (telemetry.License, error) {
	return telemetry.License{}, nil
}

func (stubPrompter) UserInfo(context.Context) (telemetry.UserInfo, error) {
	return telemetry.UserInfo{}, nil
}

func (stubPrompter) RegistryCredentials(context.Context) (string, string, error) {
	return "", "", nil
}

func (stubPrompter) Confirm(context.Context, string, string) (bool, error) { return true, nil }

func (stubPrompter) SelectContext(_ context.Context, _ []string, current string) (string, error) {
	return current, nil
}

type stubRegistrar struct{ endpoint string }

func (*stubRegistrar) Register(context.Context, telemetry.UserInfo, telemetry.License) (string, error) {
	return "id", nil
}

func TestInstall(t *testing.T) {
	out := stubHandlers(t, false)
	withConfig(t, &config.Config{})
	values := filepath.Join(t.TempDir(), "values.yaml")

	var got *install.Context
	runInstall = func(ctx *install.Context) error {
		got = ctx
		return nil
	}

	err := Install(context.Background(), InstallOptions{
		Globals:     Globals{Namespace: "hw", KubeContext: "kind"},
		Provider:    "other",
		ValuesFile:  values,
		SkipLicense: true,
		NoUserData:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, config.ProviderOVH, got.Config.Provider)
	assert.Equal(t, "hw", got.Config.Namespace)
	assert.Equal(t, "kind", got.Config.KubeContext)
	assert.Equal(t, values, got.Config.Install.ValuesFile)
	assert.True(t, got.Config.Install.SkipLicense)
	assert.Nil(t, got.Deps.Prompter)
	assert.Nil(t, got.Deps.Telemetry)
	assert.NotNil(t, got.Metrics)
	assert.Contains(t, out.String(), "Log written to")
}

func TestInstall_Interactive(t *testing.T) {
	stubHandlers(t, true)
	withConfig(t, &config.Config{})

	var mode wizard.Mode = -1
	completeConfig = func(_ context.Context, cfg *config.Config, m wizard.Mode) error {
		mode = m
		cfg.Provider = config.ProviderGCP
		cfg.GCP.ProjectID = "proj"
		cfg.Zone = "europe-west1-b"
		cfg.ClusterName = "demo"
		cfg.ApplyProviderDefaults()
		return nil
	}
	reg := &stubRegistrar{}
	newTelemetry = func(endpoint string) install.Registrar {
		reg.endpoint = endpoint
		return reg
	}
	var got *install.Context
	runInstall = func(ctx *install.Context) error {
		got = ctx
		return nil
	}

	require.NoError(t, Install(context.Background(), InstallOptions{}))
	assert.Equal(t, wizard.ModeCreate, mode)
	require.NotNil(t, got)
	assert.NotNil(t, got.Deps.Prompter)
	assert.Same(t, reg, got.Deps.Telemetry)
	assert.Equal(t, config.DefaultTelemetryEndpoint, reg.endpoint)
	assert.Positive(t, got.Config.Nodes.Count)
}

func TestInstall_InvalidConfig(t *testing.T) {
	stubHandlers(t, false)
	withConfig(t, &config.Config{})
	called := false
	runInstall = func(*install.Context) error {
		called = true
		return nil
	}

	err := Install(context.Background(), InstallOptions{Provider: "gcp"})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingProject)
	assert.False(t, called)
}

func TestInstall_Failure(t *testing.T) {
	out := stubHandlers(t, false)
	withConfig(t, &config.Config{Provider: config.ProviderOVH})
	boom := errors.New("boom")
	runInstall = func(*install.Context) error { return boom }

	assert.ErrorIs(t, Install(context.Background(), InstallOptions{SkipLicense: true}), boom)
	assert.Contains(t, out.String(), "Installation failed: boom")
}

func TestApplyInstallFlags(t *testing.T) {
	t.Parallel()

	t.Run("load balancer only targets an existing cluster", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{}
		require.NoError(t, applyInstallFlags(cfg, InstallOptions{LoadBalancerOnly: true}))
		assert.Equal(t, config.ProviderOVH, cfg.Provider)
		assert.Equal(t, config.DefaultInstallLogFile, cfg.Install.LogFile)
	})

	t.Run("flags keep answers file switches", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{Provider: config.ProviderAWS, Install: config.InstallOptions{NoUserData: true, LogFile: "a.log"}}
		require.NoError(t, applyInstallFlags(cfg, InstallOptions{}))
		assert.True(t, cfg.Install.NoUserData)
		assert.Equal(t, "a.log", cfg.Install.LogFile)
		assert.Equal(t, config.ProviderAWS, cfg.Provider)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		err := applyInstallFlags(&config.Config{}, InstallOptions{Provider: "hetzner"})
		assert.ErrorIs(t, err, config.ErrUnknownProvider)
	})
}

func TestResolveConfig_InvalidNamespace(t *testing.T) {
	stubHandlers(t, false)
	withConfig(t, &config.Config{})

	_, err := resolveConfig(Globals{Namespace: "Not_Valid"})
	assert.ErrorIs(t, err, config.ErrInvalidNamespace)
}

func TestIngress(t *testing.T) {
	stubHandlers(t, true)
	withConfig(t, &config.Config{})

	var got install.IngressOptions
	var prompter install.Prompter
	runIngress = func(ctx *install.Context, opts install.IngressOptions) error {
		got = opts
		prompter = ctx.Deps.Prompter
		return nil
	}

	err := Ingress(context.Background(), IngressOptions{Hostname: "hw.local", UpdateHosts: true, HostsFile: "/tmp/hosts"})
	require.NoError(t, err)
	assert.Equal(t, install.IngressOptions{Hostname: "hw.local", UpdateHosts: true, HostsFile: "/tmp/hosts"}, got)
	assert.NotNil(t, prompter)
}

func TestUninstall(t *testing.T) {
	t.Run("needs yes without a terminal", func(t *testing.T) {
		stubHandlers(t, false)
		withConfig(t, &config.Config{})
		runUninstall = func(*install.Context, install.UninstallOptions) error {
			t.Fatal("uninstall must not run")
			return nil
		}
		assert.ErrorIs(t, Uninstall(context.Background(), UninstallOptions{}), ErrNotInteractive)
	})

	t.Run("declining is not an error", func(t *testing.T) {
		stubHandlers(t, true)
		withConfig(t, &config.Config{})
		runUninstall = func(*install.Context, install.UninstallOptions) error {
			return fmt.Errorf("uninstall phase failed: %w", install.ErrUninstallCancelled)
		}
		assert.NoError(t, Uninstall(context.Background(), UninstallOptions{}))
	})

	t.Run("passes options", func(t *testing.T) {
		stubHandlers(t, false)
		withConfig(t, &config.Config{})
		var got install.UninstallOptions
		runUninstall = func(_ *install.Context, opts install.UninstallOptions) error {
			got = opts
			return nil
		}
		require.NoError(t, Uninstall(context.Background(), UninstallOptions{DeletePVs: true, AssumeYes: true}))
		assert.Equal(t, install.UninstallOptions{DeletePVs: true, AssumeYes: true}, got)
	})
}

func TestDiagnose(t *testing.T) {
	out := stubHandlers(t, false)
	withConfig(t, &config.Config{})
	runDiagnose = func(*install.Context) error { return errors.New("cluster unreachable") }

	err := Diagnose(context.Background(), Globals{})
	require.Error(t, err)
	assert.Contains(t, out.String(), "cluster unreachable")
}

type stubBuckets struct{}

func (stubBuckets) ListTaggedBuckets(context.Context, string, string) ([]s3.Bucket, error) {
	return nil, nil
}

func (stubBuckets) DeleteBucket(context.Context, string) error { return nil }

// captureEngine records the plan and options of a cleanup run.
type captureEngine struct {
	plan    teardown.Plan
	opts    teardown.Options
	confirm teardown.Confirmer
	summary *teardown.Summary
	err     error
}

func (c *captureEngine) stub() {
	newEngine = func(out *ui.Printer, confirm teardown.Confirmer, rec *metrics.Recorder, opts teardown.Options) *teardown.Engine {
		c.opts = opts
		c.confirm = confirm
		return teardown.NewEngine(out, confirm, rec, opts)
	}
	runPlan = func(_ context.Context, _ *teardown.Engine, plan teardown.Plan) (*teardown.Summary, error) {
		c.plan = plan
		if c.summary == nil {
			c.summary = &teardown.Summary{Provider: plan.Provider}
		}
		return c.summary, c.err
	}
}

func kindNames(plan teardown.Plan) []string {
	names := make([]string, 0, len(plan.Kinds))
	for _, k := range plan.Kinds {
		names = append(names, k.Name())
	}
	return names
}

func TestCleanupGKE(t *testing.T) {
	stubHandlers(t, false)
	t.Setenv("HOPSWORKS_RETRY_MAX_ATTEMPTS", "3")
	dir := t.TempDir()
	var project string
	newGCPClient = func(_ shell.Runner, p string) teardown.GCPClient {
		project = p
		return nil
	}
	eng := &captureEngine{}
	eng.stub()

	opts := CleanupOptions{
		LogFile:     filepath.Join(dir, "cleanup.log"),
		MetricsFile: filepath.Join(dir, "cleanup.prom"),
		AssumeYes:   true,
		NoWait:      true,
	}
	require.NoError(t, CleanupGKE(context.Background(), opts, GKECleanup{Project: "proj", Region: "europe-west1"}))

	assert.Equal(t, "proj", project)
	assert.Equal(t, "gke", eng.plan.Provider)
	assert.Contains(t, kindNames(eng.plan), "GKE clusters")
	assert.True(t, eng.opts.AssumeYes)
	assert.True(t, eng.opts.NoWait)
	assert.Equal(t, 3, eng.opts.Retry.MaxAttempts)
	assert.Nil(t, eng.confirm)

	_, err := os.Stat(opts.MetricsFile)
	assert.NoError(t, err)
	_, err = os.Stat(opts.LogFile)
	assert.NoError(t, err)
}

func TestCleanupAKS(t *testing.T) {
	stubHandlers(t, true)
	var group string
	newAzureClient = func(_ shell.Runner, rg string) teardown.AzureClient {
		group = rg
		return nil
	}
	eng := &captureEngine{}
	eng.stub()

	opts := CleanupOptions{LogFile: filepath.Join(t.TempDir(), "cleanup.log")}
	require.NoError(t, CleanupAKS(context.Background(), opts, AKSCleanup{ResourceGroup: "rg", DeleteResourceGroup: true}))

	assert.Equal(t, "rg", group)
	assert.Equal(t, "aks", eng.plan.Provider)
	assert.Contains(t, kindNames(eng.plan), "resource groups")
	assert.NotNil(t, eng.confirm, "interactive runs confirm each kind")
}

func TestCleanupEKS(t *testing.T) {
	t.Run("with buckets", func(t *testing.T) {
		stubHandlers(t, false)
		var profile string
		newAWSClient = func(_ context.Context, _ shell.Runner, p, _ string) (teardown.AWSClient, error) {
			profile = p
			return nil, nil
		}
		newBucketClient = func(context.Context, logr.Logger, string, string) (teardown.BucketClient, error) {
			return stubBuckets{}, nil
		}
		eng := &captureEngine{}
		eng.stub()

		opts := CleanupOptions{LogFile: filepath.Join(t.TempDir(), "cleanup.log"), DryRun: true}
		require.NoError(t, CleanupEKS(context.Background(), opts, EKSCleanup{Cluster: "demo", Region: "eu-north-1"}))
		assert.Equal(t, config.DefaultAWSProfile, profile)
		assert.Equal(t, "eks", eng.plan.Provider)
		assert.Contains(t, kindNames(eng.plan), "S3 buckets")
		assert.True(t, eng.opts.DryRun)
	})

	t.Run("buckets skipped when the SDK fails", func(t *testing.T) {
		out := stubHandlers(t, false)
		newAWSClient = func(context.Context, shell.Runner, string, string) (teardown.AWSClient, error) {
			return nil, nil
		}
		newBucketClient = func(context.Context, logr.Logger, string, string) (teardown.BucketClient, error) {
			return nil, errors.New("no credentials")
		}
		eng := &captureEngine{}
		eng.stub()

		opts := CleanupOptions{LogFile: filepath.Join(t.TempDir(), "cleanup.log"), AssumeYes: true}
		require.NoError(t, CleanupEKS(context.Background(), opts, EKSCleanup{Cluster: "demo", Region: "eu-north-1"}))
		assert.NotContains(t, kindNames(eng.plan), "S3 buckets")
		assert.Contains(t, out.String(), "Skipping S3 buckets: no credentials")
	})

	t.Run("client failure", func(t *testing.T) {
		stubHandlers(t, false)
		newAWSClient = func(context.Context, shell.Runner, string, string) (teardown.AWSClient, error) {
			return nil, errors.New("no profile")
		}
		opts := CleanupOptions{LogFile: filepath.Join(t.TempDir(), "cleanup.log"), AssumeYes: true}
		err := CleanupEKS(context.Background(), opts, EKSCleanup{Cluster: "demo", Region: "eu-north-1"})
		assert.ErrorContains(t, err, "no profile")
	})
}

func TestCleanup_NeedsYes(t *testing.T) {
	stubHandlers(t, false)
	err := CleanupGKE(context.Background(), CleanupOptions{}, GKECleanup{Project: "proj"})
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestCleanup_LeftBehind(t *testing.T) {
	stubHandlers(t, false)
	newGCPClient = func(shell.Runner, string) teardown.GCPClient { return nil }
	eng := &captureEngine{summary: &teardown.Summary{Provider: "gke", Found: 3, Deleted: 1, Failed: 2}, err: errors.New("in use")}
	eng.stub()

	opts := CleanupOptions{LogFile: filepath.Join(t.TempDir(), "cleanup.log"), AssumeYes: true}
	err := CleanupGKE(context.Background(), opts, GKECleanup{Project: "proj"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gke cleanup left 2 resources behind")
}
