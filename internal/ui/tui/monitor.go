package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned when the user interrupts the monitor.
var ErrAborted = errors.New("installation interrupted, check status manually with 'kubectl get pods,jobs -n <namespace>'")

// Options configures a monitor run.
type Options struct {
	Namespace    string
	Timeout      time.Duration
	PollInterval time.Duration
	Input        io.Reader
	Output       io.Writer
}

func (o Options) interval() time.Duration {
	if o.PollInterval <= 0 {
		return 5 * time.Second
	}
	return o.PollInterval
}

// Run shows the interactive monitor until the deployment is ready, the user
// overrides with '1' or aborts with ctrl+c.
func Run(ctx context.Context, check StatusFunc, opts Options) (Outcome, error) {
	m := NewModel(ctx, opts.Namespace, check, opts.Timeout, opts.interval())

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	finalModel, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeAborted, ctx.Err()
		}
		return OutcomeAborted, fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	if fm.Outcome == OutcomeAborted {
		return OutcomeAborted, ErrAborted
	}
	return fm.Outcome, nil
}

// Poll is the non-interactive monitor. It checks the deployment every
// interval and returns when it is ready or the timeout passes. report, if
// set, receives every observation.
func Poll(ctx context.Context, check StatusFunc, opts Options, report func(Status, time.Duration, error)) (Outcome, error) {
	start := time.Now()
	ticker := time.NewTicker(opts.interval())
	defer ticker.Stop()

	for {
		st, err := check(ctx)
		elapsed := time.Since(start)
		if report != nil {
			report(st, elapsed, err)
		}
		if err == nil && st.Ready() {
			return OutcomeReady, nil
		}
		if opts.Timeout > 0 && elapsed >= opts.Timeout {
			return OutcomeTimedOut, nil
		}

		select {
		case <-ctx.Done():
			return OutcomeAborted, ctx.Err()
		case <-ticker.C:
		}
	}
}
