package tui

import (
	"fmt"
	"strings"
	"time"
)

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderChecks(&b, m)
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(headerStyle.Render(fmt.Sprintf("Hopsworks: %s", m.Namespace)))

	status := " "
	switch {
	case m.Done && m.Outcome == OutcomeReady:
		status += okStyle.Render("Ready")
	case m.Done && m.Outcome == OutcomeAborted:
		status += errStyle.Render("Aborted")
	case m.Done:
		status += warnStyle.Render("Proceeding")
	case m.TimedOut:
		status += warnStyle.Render(fmt.Sprintf("Timeout after %.1f minutes", m.Timeout.Minutes()))
	default:
		status += spinStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + mutedStyle.Render("Deploying")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

// barWidth shrinks the job bar on narrow terminals, never below 10 cells.
func barWidth(termWidth int) int {
	if termWidth <= 0 || termWidth >= 80 {
		return 40
	}
	return max(termWidth-30, 10)
}

func renderProgressBar(b *strings.Builder, m Model) {
	ratio := m.Status.Progress()
	width := barWidth(m.Width)
	done := min(int(float64(width)*ratio), width)

	fmt.Fprintf(b, "  %s%s %.1f%% (%d/%d jobs)\n",
		barDone.Render(strings.Repeat("█", done)),
		barTodo.Render(strings.Repeat("░", width-done)),
		ratio*100, m.Status.CompleteJobs, m.Status.TotalJobs)
}

func renderChecks(b *strings.Builder, m Model) {
	b.WriteString(groupStyle.Render("  Core services"))
	b.WriteString("\n")

	jobsDone := m.Status.TotalJobs > 0 && m.Status.CompleteJobs == m.Status.TotalJobs
	icon, style := statusIcon(jobsDone, m.Polls > 0)
	fmt.Fprintf(b, "    %s %-20s %d/%d\n", style(icon), style("Jobs"), m.Status.CompleteJobs, m.Status.TotalJobs)

	icon, style = statusIcon(m.Status.CoreRunning, m.Polls > 0)
	fmt.Fprintf(b, "    %s %-20s\n", style(icon), style("hopsworks-instance"))

	if m.Status.Pods > 0 {
		fmt.Fprintf(b, "    %s\n", mutedStyle.Render(fmt.Sprintf("%d pods created", m.Status.Pods)))
	}
	if m.LastErr != nil {
		fmt.Fprintf(b, "    %s %s\n", errStyle.Render(markFailed), mutedStyle.Render(m.LastErr.Error()))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	keys := "1: proceed anyway  |  ctrl+c: abort"
	if m.TimedOut {
		keys = "Press '1' to proceed anyway, or ctrl+c to abort"
	}
	line := "  elapsed: " + formatDuration(m.Elapsed) + "  |  " + keys
	b.WriteString(hintStyle.Render(line) + "\n")
}

type styleFunc func(...string) string

func statusIcon(ready, observed bool) (string, styleFunc) {
	switch {
	case ready:
		return markDone, okStyle.Render
	case !observed:
		return markWaiting, mutedStyle.Render
	default:
		return markFailed, warnStyle.Render
	}
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinner[frame%len(spinner)]
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
