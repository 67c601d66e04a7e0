package tui

import "github.com/charmbracelet/lipgloss"

// Palette follows the Hopsworks UI.
const (
	hopsGreen = lipgloss.Color("#1eb182")
	alertRed  = lipgloss.Color("#e5484d")
	amber     = lipgloss.Color("#f5a524")
	slate     = lipgloss.Color("#8b949e")
	paper     = lipgloss.Color("#f0f6fc")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(paper)
	groupStyle  = lipgloss.NewStyle().Bold(true).Foreground(hopsGreen).MarginTop(1)
	hintStyle   = lipgloss.NewStyle().Foreground(slate).MarginTop(1)

	okStyle    = lipgloss.NewStyle().Foreground(hopsGreen)
	errStyle   = lipgloss.NewStyle().Foreground(alertRed)
	warnStyle  = lipgloss.NewStyle().Foreground(amber)
	mutedStyle = lipgloss.NewStyle().Foreground(slate)
	spinStyle  = lipgloss.NewStyle().Bold(true).Foreground(paper)

	barDone = lipgloss.NewStyle().Foreground(hopsGreen)
	barTodo = lipgloss.NewStyle().Foreground(slate)
)

// Row markers are fixed width so the component column lines up.
const (
	markDone    = "[OK]"
	markFailed  = "[!!]"
	markWaiting = "[  ]"
)

var spinner = []string{"[⠋]", "[⠙]", "[⠹]", "[⠸]", "[⠼]", "[⠴]", "[⠦]", "[⠧]", "[⠇]", "[⠏]"}
