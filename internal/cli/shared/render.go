package shared

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/schoolboyqueue/spectrace/internal/report"
	"github.com/schoolboyqueue/spectrace/internal/structural"
)

// TerminalCapabilities describes what the output terminal supports.
type TerminalCapabilities struct {
	IsTTY         bool
	SupportsColor bool
	Width         int
}

// DetectTerminalCapabilities detects terminal features for stdout.
func DetectTerminalCapabilities() TerminalCapabilities {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	noColor := os.Getenv("NO_COLOR") != ""

	width := 0
	if isTTY {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}

	return TerminalCapabilities{
		IsTTY:         isTTY,
		SupportsColor: isTTY && !noColor,
		Width:         width,
	}
}

// NewSpinner returns a running spinner suffixed with msg, or nil when the
// terminal is not interactive. Callers must Stop a non-nil spinner.
func NewSpinner(caps TerminalCapabilities, msg string) *spinner.Spinner {
	if !caps.IsTTY {
		return nil
	}
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Writer = os.Stderr // keep stdout clean for the report
	sp.Suffix = " " + msg
	sp.Start()
	return sp
}

// StatusLabel renders a report status with color when supported.
func StatusLabel(status report.Status, useColor bool) string {
	if !useColor {
		return string(status)
	}
	switch status {
	case report.StatusPass:
		return color.New(color.FgGreen, color.Bold).Sprint(string(status))
	case report.StatusFail:
		return color.New(color.FgRed, color.Bold).Sprint(string(status))
	default:
		return color.New(color.FgYellow).Sprint(string(status))
	}
}

// scoreBar renders a fixed-width progress bar for a 0..max score.
func scoreBar(score, max, width int) string {
	if max <= 0 {
		max = 1
	}
	filled := score * width / max
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// RenderReport writes a human-readable rendering of a validation report.
// Machine consumers should request JSON or YAML instead; this form is for
// interactive terminals and is not part of the stable output contract.
func RenderReport(out io.Writer, rep *report.Report, caps TerminalCapabilities) {
	dim := color.New(color.Faint).SprintFunc()
	if !caps.SupportsColor {
		dim = fmt.Sprint
	}

	fmt.Fprintf(out, "Status: %s  Score: %d/100\n", StatusLabel(rep.Status, caps.SupportsColor), rep.Score)

	if len(rep.CategoryScores) > 0 {
		names := make([]string, 0, len(rep.CategoryScores))
		for name := range rep.CategoryScores {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-14s %s %d\n", name, scoreBar(rep.CategoryScores[name], structural.Budget(report.Category(name)), 10), rep.CategoryScores[name])
		}
	}

	renderIssues(out, rep, dim, caps)

	if len(rep.Children) > 0 {
		roles := make([]string, 0, len(rep.Children))
		for role := range rep.Children {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			child := rep.Children[role]
			fmt.Fprintf(out, "\n%s %s  Score: %d/100\n", StatusLabel(child.Status, caps.SupportsColor), role, child.Score)
			renderCrossRefs(out, child, caps)
			renderIssues(out, child, dim, caps)
		}
	}

	if rep.Trace != nil {
		renderTrace(out, rep.Trace, dim, caps)
	}

	if rep.Fingerprint != "" {
		fmt.Fprintf(out, "\n%s\n", dim("fingerprint: "+rep.Fingerprint))
	}
}

func renderCrossRefs(out io.Writer, rep *report.Report, caps TerminalCapabilities) {
	if len(rep.CrossRefs) == 0 {
		return
	}
	roles := make([]string, 0, len(rep.CrossRefs))
	for role := range rep.CrossRefs {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		fmt.Fprintf(out, "  refs %s: %s\n", role, StatusLabel(rep.CrossRefs[role], caps.SupportsColor))
	}
}

func renderIssues(out io.Writer, rep *report.Report, dim func(...any) string, caps TerminalCapabilities) {
	for _, issue := range rep.Issues {
		fmt.Fprintf(out, "  [%s/%s] %s\n    %s\n", issue.Category, issue.Code, issue.Message, dim(issue.Location.String()))
	}
}

func renderTrace(out io.Writer, tr *report.TraceReport, dim func(...any) string, caps TerminalCapabilities) {
	fmt.Fprintf(out, "\nTraceability: %s  (%d files scanned, %d skipped)\n",
		StatusLabel(tr.Status, caps.SupportsColor), tr.FilesScanned, tr.FilesSkipped)
	for _, e := range tr.Missing {
		fmt.Fprintf(out, "  missing   %s\n    %s\n", e.ID, dim(e.Note))
	}
	for _, e := range tr.Extra {
		fmt.Fprintf(out, "  extra     %s\n    %s\n", e.ID, dim(fmt.Sprintf("%s:%d", e.File, e.Line)))
	}
	for _, e := range tr.Malformed {
		fmt.Fprintf(out, "  malformed %s\n    %s\n", e.ID, dim(fmt.Sprintf("%s:%d %s", e.File, e.Line, e.Note)))
	}
}
