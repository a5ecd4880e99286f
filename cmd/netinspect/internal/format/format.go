// Package format renders the CLI's human-facing terminal output.
package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/netinspect/netinspect/pkg/inspect"
)

var (
	// Header style - run summary heading
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("105")). // Purple
			Bold(true)

	// Success style - devices that produced a report
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	// Failure style - devices that produced an error artifact
	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")). // Red
			Bold(true)

	// Path style - filesystem locations
	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // Cyan
)

// RunSummary renders the end-of-run report: one line per device and a totals
// line pointing at the result directory.
func RunSummary(outcomes []inspect.Outcome, resultDir string) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Inspection results"))
	b.WriteString("\n")

	succeeded := 0
	for _, o := range outcomes {
		if o.Success {
			succeeded++
			b.WriteString(successStyle.Render(fmt.Sprintf("  ok   %s (%s)", o.Host, o.DeviceName)))
		} else {
			b.WriteString(failureStyle.Render(fmt.Sprintf("  fail %s", o.Host)))
			if o.Err != nil {
				b.WriteString(failureStyle.Render(fmt.Sprintf(": %v", o.Err)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("Inspected %d devices: %d succeeded, %d failed. Reports in %s\n",
		len(outcomes), succeeded, len(outcomes)-succeeded, pathStyle.Render(resultDir)))
	return b.String()
}

// Notice renders a one-line confirmation, e.g. after writing a template.
func Notice(msg string) string {
	return successStyle.Render(msg) + "\n"
}
