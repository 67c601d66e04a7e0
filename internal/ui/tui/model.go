package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Outcome is how the monitor ended.
type Outcome int

const (
	// OutcomeReady means every job completed and the core pod runs.
	OutcomeReady Outcome = iota
	// OutcomeOverride means the user pressed '1' to continue anyway.
	OutcomeOverride
	// OutcomeTimedOut means the timeout passed without readiness and
	// nobody was there to override (non-interactive runs).
	OutcomeTimedOut
	// OutcomeAborted means the user pressed ctrl+c.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeOverride:
		return "override"
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeAborted:
		return "aborted"
	}
	return "unknown"
}

// StatusFunc fetches the current deployment status.
type StatusFunc func(ctx context.Context) (Status, error)

// Model is the Bubble Tea model of the deployment monitor.
type Model struct {
	Namespace    string
	Status       Status
	LastErr      error
	StartTime    time.Time
	Elapsed      time.Duration
	Timeout      time.Duration
	PollInterval time.Duration
	TimedOut     bool
	Polls        int

	Outcome Outcome
	Done    bool

	SpinnerFrame int
	Width        int

	ctx   context.Context
	check StatusFunc
}

// NewModel creates a monitor for namespace.
func NewModel(ctx context.Context, namespace string, check StatusFunc, timeout, interval time.Duration) Model {
	return Model{
		Namespace:    namespace,
		StartTime:    time.Now(),
		Timeout:      timeout,
		PollInterval: interval,
		ctx:          ctx,
		check:        check,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.checkCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "1":
			m.Outcome = OutcomeOverride
			m.Done = true
			return m, tea.Quit
		case "ctrl+c":
			m.Outcome = OutcomeAborted
			m.Done = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case TickMsg:
		m.SpinnerFrame++
		m.Elapsed = time.Since(m.StartTime)
		if m.Timeout > 0 && m.Elapsed >= m.Timeout {
			m.TimedOut = true
		}
		return m, tickCmd()

	case pollMsg:
		return m, m.checkCmd()

	case StatusMsg:
		m.Polls++
		if msg.Err != nil {
			m.LastErr = msg.Err
		} else {
			m.LastErr = nil
			m.Status = msg.Status
			if m.Status.Ready() {
				m.Outcome = OutcomeReady
				m.Done = true
				return m, tea.Quit
			}
		}
		return m, pollAfter(m.PollInterval)
	}

	return m, nil
}

func (m Model) checkCmd() tea.Cmd {
	check, ctx := m.check, m.ctx
	return func() tea.Msg {
		if check == nil {
			return StatusMsg{}
		}
		st, err := check(ctx)
		return StatusMsg{Status: st, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

func pollAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return pollMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
