package install

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui"
	"github.com/logicalclocks/hopsworks-k8s-installer/internal/ui/tui"
)

func TestPollMonitor(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	monitor := pollMonitor(ui.NewPrinter(&out, logr.Discard()))

	calls := 0
	check := func(context.Context) (tui.Status, error) {
		calls++
		st := tui.Status{TotalJobs: 3, CompleteJobs: calls, Pods: 10}
		st.CoreRunning = calls == 3
		return st, nil
	}

	outcome, err := monitor(context.Background(), check, tui.Options{Timeout: time.Second, PollInterval: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, tui.OutcomeReady, outcome)
	assert.Contains(t, out.String(), "Jobs 1/3 complete")
	assert.Contains(t, out.String(), "Jobs 3/3 complete, 10 pods, core running: true")
}

func TestPollMonitor_TimesOut(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	monitor := pollMonitor(ui.NewPrinter(&out, logr.Discard()))

	check := func(context.Context) (tui.Status, error) { return tui.Status{}, errBoom }
	outcome, err := monitor(context.Background(), check, tui.Options{Timeout: 10 * time.Millisecond, PollInterval: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, tui.OutcomeTimedOut, outcome)
	assert.Empty(t, out.String(), "failed checks are only logged")
}
