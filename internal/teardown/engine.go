// Package teardown removes the cloud resources a Hopsworks installation
// leaves behind.
//
// A Plan is an ordered list of resource kinds for one provider. The Engine
// lists every kind concurrently before touching anything, then walks the
// kinds in plan order: it prints what it found, asks for confirmation and
// deletes each resource, retrying deletions that are blocked by a
// dependent resource still being torn down. Failures are collected rather
// than aborting the run.
package teardown

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/metrics"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/util/retry"
)

// Resource is one deletable cloud resource.
type Resource struct {
	Kind     string
	Name     string
	ID       string
	Location string
	Detail   string
}

// Kind is one resource type of a provider.
type Kind interface {
	Name() string
	List(ctx context.Context) ([]Resource, error)
	Delete(ctx context.Context, r Resource) error
}

// Plan is the ordered list of kinds removed for one provider.
type Plan struct {
	Provider string
	Kinds    []Kind
}

// Retry configures how blocked deletions are retried.
type Retry struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Options control an engine run.
type Options struct {
	// Quiet suppresses per-resource progress lines.
	Quiet bool
	// NoWait makes provider deletes return before the resource is gone.
	NoWait bool
	// AssumeYes skips confirmation prompts.
	AssumeYes bool
	// DryRun lists resources without deleting anything.
	DryRun bool
	Retry  Retry
	// Concurrency bounds parallel discovery; zero means one goroutine per
	// kind.
	Concurrency int
}

// DefaultRetry is used when Options.Retry is zero.
var DefaultRetry = Retry{MaxAttempts: 6, InitialDelay: 10 * time.Second, MaxDelay: 2 * time.Minute}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, title, description string) (bool, error)
}

// Summary counts what a run did.
type Summary struct {
	Provider string
	Found    int
	Deleted  int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Engine executes plans.
type Engine struct {
	out     *ui.Printer
	confirm Confirmer
	metrics *metrics.Recorder
	log     logr.Logger
	opts    Options
}

// NewEngine creates an engine. rec may be nil.
func NewEngine(out *ui.Printer, confirm Confirmer, rec *metrics.Recorder, opts Options) *Engine {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetry
	}
	return &Engine{out: out, confirm: confirm, metrics: rec, log: out.Logger(), opts: opts}
}

type discovered struct {
	resources []Resource
	err       error
}

// Run discovers and deletes the resources of plan. The returned error
// aggregates every listing and deletion failure.
func (e *Engine) Run(ctx context.Context, plan Plan) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Provider: plan.Provider}
	command := "cleanup-" + plan.Provider

	e.out.Section("Discovering %s resources...", plan.Provider)
	found, err := e.discover(ctx, plan)
	if err != nil {
		return summary, err
	}
	e.metrics.ObservePhase(command, "discover", time.Since(start))

	var result *multierror.Error
	deleteStart := time.Now()
	for i, kind := range plan.Kinds {
		d := found[i]
		if d.err != nil {
			e.out.Error("Failed to list %s: %v", kind.Name(), d.err)
			result = multierror.Append(result, fmt.Errorf("list %s: %w", kind.Name(), d.err))
			continue
		}
		if len(d.resources) == 0 {
			if !e.opts.Quiet {
				e.out.Info("No %s found.", kind.Name())
			}
			continue
		}
		summary.Found += len(d.resources)

		if err := e.handleKind(ctx, plan.Provider, kind, d.resources, summary, &result); err != nil {
			return summary, err
		}
	}
	e.metrics.ObservePhase(command, "delete", time.Since(deleteStart))

	summary.Duration = time.Since(start)
	e.report(summary)
	return summary, result.ErrorOrNil()
}

func (e *Engine) discover(ctx context.Context, plan Plan) ([]discovered, error) {
	found := make([]discovered, len(plan.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	if e.opts.Concurrency > 0 {
		g.SetLimit(e.opts.Concurrency)
	}
	for i, kind := range plan.Kinds {
		g.Go(func() error {
			resources, err := kind.List(gctx)
			for j := range resources {
				resources[j].Kind = kind.Name()
			}
			found[i] = discovered{resources: resources, err: err}
			e.log.V(1).Info("discovered resources", "provider", plan.Provider, "kind", kind.Name(), "count", len(resources), "error", err)
			// A listing failure is reported per kind; only cancellation
			// stops discovery.
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resource discovery cancelled: %w", err)
	}
	return found, nil
}

// handleKind prints, confirms and deletes the resources of one kind. It
// returns an error only when the run must stop.
func (e *Engine) handleKind(ctx context.Context, provider string, kind Kind, resources []Resource, summary *Summary, result **multierror.Error) error {
	e.out.Section("Found %d %s:", len(resources), kind.Name())
	e.out.Table([]string{"Name", "ID", "Location", "Detail"}, rows(resources))

	skip := func() {
		summary.Skipped += len(resources)
		for range resources {
			e.metrics.RecordResource(provider, kind.Name(), metrics.ResultSkipped)
		}
	}

	if e.opts.DryRun {
		e.out.Info("Dry run: not deleting %s.", kind.Name())
		skip()
		return nil
	}
	if !e.opts.AssumeYes {
		ok, err := e.confirm.Confirm(ctx, fmt.Sprintf("Delete these %d %s?", len(resources), kind.Name()), "")
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			e.out.Warn("Skipping %s.", kind.Name())
			skip()
			return nil
		}
	}

	for _, r := range resources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.opts.Quiet {
			e.out.Info("Deleting %s %s...", kind.Name(), r.Name)
		}
		if err := e.deleteWithRetry(ctx, kind, r); err != nil {
			summary.Failed++
			e.metrics.RecordResource(provider, kind.Name(), metrics.ResultFailed)
			e.out.Error("Failed to delete %s %s: %v", kind.Name(), r.Name, err)
			*result = multierror.Append(*result, fmt.Errorf("%s %q: %w", kind.Name(), r.Name, err))
			continue
		}
		summary.Deleted++
		e.metrics.RecordResource(provider, kind.Name(), metrics.ResultDeleted)
		if !e.opts.Quiet {
			e.out.Success("Deleted %s %s", kind.Name(), r.Name)
		}
	}
	return nil
}

func (e *Engine) deleteWithRetry(ctx context.Context, kind Kind, r Resource) error {
	maxDelay := e.opts.Retry.MaxDelay
	if maxDelay == 0 {
		maxDelay = DefaultRetry.MaxDelay
	}
	return retry.WithExponentialBackoff(ctx,
		func() error { return kind.Delete(ctx, r) },
		retry.WithMaxRetries(e.opts.Retry.MaxAttempts-1),
		retry.WithInitialDelay(e.opts.Retry.InitialDelay),
		retry.WithMaxDelay(maxDelay),
		retry.WithRetryable(IsRetryable),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			e.out.Warn("%s %s is still in use, retrying in %s (attempt %d/%d)",
				kind.Name(), r.Name, delay, attempt+1, e.opts.Retry.MaxAttempts)
			e.log.V(1).Info("retrying deletion", "kind", kind.Name(), "resource", r.Name, "error", err.Error())
		}),
	)
}

func (e *Engine) report(s *Summary) {
	switch {
	case s.Found == 0:
		e.out.Success("No %s resources left to clean up.", s.Provider)
	case s.Failed > 0:
		e.out.Error("Deleted %d of %d resources, %d failed, %d skipped (%s).",
			s.Deleted, s.Found, s.Failed, s.Skipped, s.Duration.Round(time.Second))
	default:
		e.out.Success("Deleted %d of %d resources, %d skipped (%s).",
			s.Deleted, s.Found, s.Skipped, s.Duration.Round(time.Second))
	}
}

func rows(resources []Resource) [][]string {
	out := make([][]string, 0, len(resources))
	for _, r := range resources {
		id := r.ID
		if id == r.Name {
			id = ""
		}
		out = append(out, []string{r.Name, id, r.Location, r.Detail})
	}
	return out
}
