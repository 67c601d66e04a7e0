package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorCyan   = lipgloss.Color("#06b6d4")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

type styles struct {
	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	command lipgloss.Style
	section lipgloss.Style
	banner  lipgloss.Style
	dim     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		info:    r.NewStyle().Foreground(colorCyan),
		success: r.NewStyle().Foreground(colorGreen),
		warn:    r.NewStyle().Foreground(colorYellow),
		err:     r.NewStyle().Foreground(colorRed),
		command: r.NewStyle().Foreground(colorDim),
		section: r.NewStyle().Bold(true).Foreground(colorBlue),
		banner:  r.NewStyle().Foreground(colorWhite),
		dim:     r.NewStyle().Foreground(colorDim),
	}
}
