package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
)

// Printer writes status lines to the terminal and mirrors them to a log.
type Printer struct {
	out         io.Writer
	log         logr.Logger
	style       styles
	interactive bool
}

// NewPrinter creates a printer for out. Colours and interactive prompts
// are enabled only when out is a terminal.
func NewPrinter(out io.Writer, log logr.Logger) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:         out,
		log:         log,
		style:       newStyles(r),
		interactive: IsTerminal(out),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Interactive reports whether the printer writes to a terminal.
func (p *Printer) Interactive() bool { return p.interactive }

// Writer returns the underlying output.
func (p *Printer) Writer() io.Writer { return p.out }

// Logger returns the log the printer mirrors to.
func (p *Printer) Logger() logr.Logger { return p.log }

func (p *Printer) line(style lipgloss.Style, level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(p.out, style.Render(msg))
	p.log.Info(strings.TrimSpace(msg), "level", level)
}

// Info prints a progress message.
func (p *Printer) Info(format string, args ...any) {
	p.line(p.style.info, "info", format, args...)
}

// Success prints a completed step.
func (p *Printer) Success(format string, args ...any) {
	p.line(p.style.success, "success", format, args...)
}

// Warn prints a non-fatal problem.
func (p *Printer) Warn(format string, args ...any) {
	p.line(p.style.warn, "warning", format, args...)
}

// Error prints a failure.
func (p *Printer) Error(format string, args ...any) {
	p.line(p.style.err, "error", format, args...)
}

// Command prints a command line the user can run themselves.
func (p *Printer) Command(format string, args ...any) {
	p.line(p.style.command, "command", "  $ "+format, args...)
}

// Section prints a heading preceded by a blank line.
func (p *Printer) Section(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out)
	p.line(p.style.section, "section", format, args...)
}

// Plain prints text without styling.
func (p *Printer) Plain(format string, args ...any) {
	p.line(lipgloss.NewStyle(), "info", format, args...)
}

// Banner prints the Hopsworks logo.
func (p *Printer) Banner() {
	_, _ = fmt.Fprintln(p.out, p.style.banner.Render(Logo))
}

// Table prints rows under headers and logs each row.
func (p *Printer) Table(headers []string, rows [][]string) {
	tw := tablewriter.NewWriter(p.out)
	tw.SetHeader(headers)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(true)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetBorder(false)
	tw.SetCenterSeparator("")
	tw.SetColumnSeparator("")
	tw.SetRowSeparator("")
	tw.SetHeaderLine(false)
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)
	tw.AppendBulk(rows)
	tw.Render()

	for _, row := range rows {
		p.log.V(1).Info("table row", "columns", strings.Join(row, " | "))
	}
}
