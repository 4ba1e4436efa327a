package style

import (
	"github.com/provisio-sh/provisio/pkg/provision"
	"github.com/pterm/pterm"
)

// StatusStyle returns the pterm style for a step outcome
func StatusStyle(status provision.Status) *pterm.Style {
	switch status {
	case provision.StatusSucceeded:
		return pterm.NewStyle(pterm.FgGreen)
	case provision.StatusSkipped:
		return pterm.NewStyle(pterm.FgGray)
	case provision.StatusDryRun:
		return pterm.NewStyle(pterm.FgCyan)
	case provision.StatusFailedRetriesExhausted:
		return pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	case provision.StatusFailedFatal:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case provision.StatusInterrupted:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgDefault)
	}
}

// StatusLabel returns the short operator-facing label for a step outcome
func StatusLabel(status provision.Status) string {
	switch status {
	case provision.StatusSucceeded:
		return "ok"
	case provision.StatusSkipped:
		return "skip"
	case provision.StatusDryRun:
		return "dry-run"
	case provision.StatusFailedRetriesExhausted:
		return "fail"
	case provision.StatusFailedFatal:
		return "wrong-state"
	case provision.StatusInterrupted:
		return "interrupted"
	default:
		return string(status)
	}
}
