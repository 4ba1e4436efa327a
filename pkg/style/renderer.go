// Package style renders step outcomes and the final run report for the
// terminal. Plain output is a first-class citizen: everything rendered here
// must degrade to unstyled text when the output is not a TTY.
package style

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/provisio-sh/provisio/pkg/provision"
	"github.com/provisio-sh/provisio/pkg/ui"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	stepStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	summaryStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
)

// Renderer renders run output in a chosen format.
type Renderer struct {
	format ui.Format
}

// NewRenderer creates a renderer for the given format.
func NewRenderer(format ui.Format) *Renderer {
	return &Renderer{format: format}
}

// RenderRecord renders one step outcome line.
func (r *Renderer) RenderRecord(record provision.ExecutionRecord) string {
	label := StatusLabel(record.Status)

	detail := ""
	switch {
	case record.Reason != "":
		detail = record.Reason
	case record.Err != nil:
		detail = record.Err.Error()
	}
	if record.Attempts > 1 {
		detail = strings.TrimSpace(fmt.Sprintf("%s (%d attempts)", detail, record.Attempts))
	}

	if r.format != ui.FormatTerminal {
		if detail == "" {
			return fmt.Sprintf("%-12s %s", label, record.Step)
		}
		return fmt.Sprintf("%-12s %s: %s", label, record.Step, detail)
	}

	line := StatusStyle(record.Status).Sprintf("%-12s", label) + " " + stepStyle.Render(record.Step)
	if detail != "" {
		line += " " + mutedStyle.Render(detail)
	}
	return line
}

// RenderReport renders the full end-of-run report.
func (r *Renderer) RenderReport(variant string, records []provision.ExecutionRecord) string {
	var b strings.Builder

	title := fmt.Sprintf("Provisioning report (%s)", variant)
	if r.format == ui.FormatTerminal {
		title = titleStyle.Render(title)
	}
	b.WriteString(title + "\n\n")

	for _, record := range records {
		b.WriteString(r.RenderRecord(record) + "\n")
	}

	summary := provision.Summarize(records)
	line := fmt.Sprintf("%d succeeded, %d skipped, %d failed",
		summary.Succeeded, summary.Skipped, summary.Failed)
	if r.format == ui.FormatTerminal {
		line = summaryStyle.Render(line)
	} else {
		line = "\n" + line
	}
	b.WriteString(line + "\n")

	return b.String()
}
