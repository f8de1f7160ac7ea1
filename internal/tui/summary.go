package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/splairdrop/internal/engine"
)

// maxListedFailures bounds the failures printed under a summary.
const maxListedFailures = 10

// maxSummaryWidth caps the width of the styled summary box.
const maxSummaryWidth = 64

// RenderSummary writes the end-of-pass summary of report to w. A positive
// width selects the boxed terminal rendering fitted to that many columns;
// otherwise plain text is written.
func RenderSummary(w io.Writer, report *engine.Report, width int) error {
	if report == nil {
		return nil
	}
	p := message.NewPrinter(language.English)
	lines := summaryLines(p, report)

	styled := width > 0
	var body string
	if styled {
		body = renderStyledSummary(report, lines, min(maxSummaryWidth, width))
	} else {
		body = renderPlainSummary(report, lines)
	}
	if _, err := fmt.Fprintln(w, body); err != nil {
		return err
	}
	return writeFailures(w, report, styled)
}

type summaryLine struct {
	label string
	value string
	style lipgloss.Style
}

func summaryLines(p *message.Printer, r *engine.Report) []summaryLine {
	lines := []summaryLine{
		{label: "Run", value: r.RunID, style: MutedStyle},
		{
			label: "Transfers",
			value: p.Sprintf("%d in %d batches", len(r.Outcomes), r.Batches),
			style: lipgloss.NewStyle(),
		},
		{label: "Succeeded", value: p.Sprintf("%d", r.Succeeded), style: StatusStyle(engine.StatusSuccess)},
		{label: "Skipped", value: p.Sprintf("%d", r.Skipped), style: StatusStyle(engine.StatusSkipped)},
		{label: "Failed", value: p.Sprintf("%d", r.Failed), style: StatusStyle(engine.StatusFailure)},
		{label: "Duration", value: r.Duration.Round(time.Millisecond).String(), style: MutedStyle},
	}
	if r.Failed > 0 {
		lines = append(lines, summaryLine{
			label: "Failure list",
			value: p.Sprintf("%s (%d records)", r.Pass.FailureListPath, r.FailureListSize),
			style: FailureStyle,
		})
	}
	return lines
}

func renderPlainSummary(r *engine.Report, lines []summaryLine) string {
	var b strings.Builder
	title := strings.ToUpper(r.Pass.Name) + " SUMMARY"
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "%-13s %s\n", l.label+":", l.value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStyledSummary(r *engine.Report, lines []summaryLine, width int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(r.Pass.Name+" summary") + "\n\n")
	for _, l := range lines {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%-13s", l.label)))
		b.WriteString(l.style.Render(l.value))
		b.WriteString("\n")
	}
	return BoxStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func writeFailures(w io.Writer, r *engine.Report, styled bool) error {
	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	for i, o := range failures {
		if i == maxListedFailures {
			more := fmt.Sprintf("  ... and %d more", len(failures)-maxListedFailures)
			if styled {
				more = MutedStyle.Render(more)
			}
			_, err := fmt.Fprintln(w, more)
			return err
		}
		line := fmt.Sprintf("  %s: %s", o.Target.Destination, o.Reason)
		if styled {
			line = StatusStyle(o.Status).Render(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
