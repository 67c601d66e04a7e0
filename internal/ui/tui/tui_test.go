package tui

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{3600 * time.Second, "1h0m"},
		{3661 * time.Second, "1h1m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	assert.False(t, Status{}.Ready(), "no jobs observed yet")
	assert.False(t, Status{CompleteJobs: 3, TotalJobs: 4, CoreRunning: true}.Ready())
	assert.False(t, Status{CompleteJobs: 4, TotalJobs: 4}.Ready())
	assert.True(t, Status{CompleteJobs: 4, TotalJobs: 4, CoreRunning: true}.Ready())

	assert.Zero(t, Status{}.Progress())
	assert.InDelta(t, 0.5, Status{CompleteJobs: 2, TotalJobs: 4}.Progress(), 0.001)
}

func newTestModel() Model {
	return NewModel(context.Background(), "hopsworks", nil, time.Minute, time.Second)
}

func TestModel_OverrideKey(t *testing.T) {
	t.Parallel()
	m := newTestModel()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	fm := next.(Model)
	assert.True(t, fm.Done)
	assert.Equal(t, OutcomeOverride, fm.Outcome)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_CtrlCAborts(t *testing.T) {
	t.Parallel()
	m := newTestModel()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, OutcomeAborted, next.(Model).Outcome)
}

func TestModel_OtherKeysIgnored(t *testing.T) {
	t.Parallel()
	m := newTestModel()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.False(t, next.(Model).Done)
	assert.Nil(t, cmd)
}

func TestModel_StatusReadyQuits(t *testing.T) {
	t.Parallel()
	m := newTestModel()

	next, cmd := m.Update(StatusMsg{Status: Status{CompleteJobs: 1, TotalJobs: 2, CoreRunning: true}})
	fm := next.(Model)
	assert.False(t, fm.Done)
	assert.Equal(t, 1, fm.Polls)
	require.NotNil(t, cmd, "next poll is scheduled")

	next, cmd = fm.Update(StatusMsg{Status: Status{CompleteJobs: 2, TotalJobs: 2, CoreRunning: true}})
	fm = next.(Model)
	assert.True(t, fm.Done)
	assert.Equal(t, OutcomeReady, fm.Outcome)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_StatusErrorKeepsLastStatus(t *testing.T) {
	t.Parallel()
	m := newTestModel()
	next, _ := m.Update(StatusMsg{Status: Status{CompleteJobs: 1, TotalJobs: 2}})
	next, _ = next.(Model).Update(StatusMsg{Err: errors.New("connection refused")})
	fm := next.(Model)
	assert.Equal(t, 1, fm.Status.CompleteJobs)
	require.Error(t, fm.LastErr)
	assert.Contains(t, fm.View(), "connection refused")
}

func TestModel_TickMarksTimeout(t *testing.T) {
	t.Parallel()
	m := newTestModel()
	m.StartTime = time.Now().Add(-2 * time.Minute)

	next, cmd := m.Update(TickMsg{})
	fm := next.(Model)
	assert.True(t, fm.TimedOut)
	assert.False(t, fm.Done, "timeout waits for an override")
	assert.NotNil(t, cmd)
	assert.Contains(t, fm.View(), "Press '1' to proceed anyway")
}

func TestModel_CheckCmd(t *testing.T) {
	t.Parallel()
	m := NewModel(context.Background(), "hopsworks", func(context.Context) (Status, error) {
		return Status{CompleteJobs: 5, TotalJobs: 5, CoreRunning: true}, nil
	}, time.Minute, time.Second)

	msg := m.checkCmd()()
	st, ok := msg.(StatusMsg)
	require.True(t, ok)
	assert.True(t, st.Status.Ready())
}

func TestView(t *testing.T) {
	t.Parallel()
	m := newTestModel()
	m.Status = Status{CompleteJobs: 3, TotalJobs: 4, Pods: 12}
	m.Polls = 1
	view := m.View()
	assert.Contains(t, view, "Hopsworks: hopsworks")
	assert.Contains(t, view, "75.0% (3/4 jobs)")
	assert.Contains(t, view, "12 pods created")
	assert.Contains(t, view, "hopsworks-instance")
	assert.True(t, strings.Contains(view, "1: proceed anyway"))
}

func TestPoll_Ready(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	check := func(context.Context) (Status, error) {
		if calls.Add(1) < 3 {
			return Status{CompleteJobs: 1, TotalJobs: 2}, nil
		}
		return Status{CompleteJobs: 2, TotalJobs: 2, CoreRunning: true}, nil
	}

	var reports int
	outcome, err := Poll(context.Background(), check, Options{PollInterval: time.Millisecond, Timeout: time.Minute},
		func(Status, time.Duration, error) { reports++ })
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, outcome)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, reports)
}

func TestPoll_Timeout(t *testing.T) {
	t.Parallel()
	check := func(context.Context) (Status, error) { return Status{}, errors.New("no jobs") }
	outcome, err := Poll(context.Background(), check, Options{PollInterval: time.Millisecond, Timeout: 5 * time.Millisecond}, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, outcome)
}

func TestPoll_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	check := func(context.Context) (Status, error) { return Status{}, nil }
	outcome, err := Poll(ctx, check, Options{PollInterval: time.Hour}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeAborted, outcome)
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "override", OutcomeOverride.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
