package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/session"
)

// maxTerminalErrors caps the error lines printed in text mode
const maxTerminalErrors = 10

// terminalFormatter renders a scan as plain text using go-termfmt trees
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = !emoji.IsEmojiDisabled()
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(report *Report) ([]byte, error) {
	if report == nil || report.Scan == nil {
		return nil, fmt.Errorf("no scan result to format")
	}
	scan := report.Scan

	var b strings.Builder
	f.writeHeader(&b)
	f.writeStatistics(&b, report)
	f.writeCounts(&b, emoji.GetEmoji("category"), "Categories", api.SortedByCount(scan.Categories))
	f.writeCounts(&b, emoji.GetEmoji("pattern"), "Top Patterns", topN(scan.PatternMatches, 5))
	f.writeCounts(&b, emoji.GetEmoji("code"), "Error Codes", api.SortedByCount(scan.ErrorCodes))
	f.writeErrors(&b, scan.Errors)

	return []byte(b.String()), nil
}

func (f *terminalFormatter) writeHeader(b *strings.Builder) {
	header := "Log Scan Summary"
	b.WriteString("╔" + strings.Repeat("═", len(header)+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", len(header)+2) + "╝\n\n")
}

func (f *terminalFormatter) writeStatistics(b *strings.Builder, report *Report) {
	scan := report.Scan
	b.WriteString(emoji.GetEmoji("statistics") + " Statistics\n")

	top, ok := session.TopCategory(scan)
	if !ok {
		top = "none"
	}

	index := string(report.RagStatus)
	if index == "" {
		index = string(api.RagIdle)
	}
	if report.RagError != "" {
		index += " (" + report.RagError + ")"
	}

	items := []termfmt.TreeItem{
		{Label: "File", Value: scan.Filename},
		{Label: "Total Lines", Value: formatNumber(scan.TotalLines)},
		{Label: "Errors", Value: formatNumber(scan.ErrorCount)},
		{Label: "Error Rate", Value: session.FormatRate(session.ErrorRate(scan)) + "%"},
		{Label: "Top Category", Value: top},
		{Label: "Index", Value: emoji.ForRagStatus(string(report.RagStatus)) + " " + index, Last: true},
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

func (f *terminalFormatter) writeCounts(b *strings.Builder, symbol, title string, counts []api.Count) {
	if len(counts) == 0 {
		return
	}
	b.WriteString(symbol + " " + title + "\n")

	items := make([]termfmt.TreeItem, 0, len(counts))
	for i, c := range counts {
		items = append(items, termfmt.TreeItem{
			Label: c.Name,
			Value: formatNumber(c.Count),
			Last:  i == len(counts)-1,
		})
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

func (f *terminalFormatter) writeErrors(b *strings.Builder, entries []api.ErrorEntry) {
	if len(entries) == 0 {
		b.WriteString(emoji.GetEmoji("success") + " No errors found\n")
		return
	}

	shown := entries
	if len(shown) > maxTerminalErrors {
		shown = shown[:maxTerminalErrors]
	}

	fmt.Fprintf(b, "%s Errors (%d of %d)\n", emoji.GetEmoji("error"), len(shown), len(entries))
	for i, e := range shown {
		branch := "├─"
		if i == len(shown)-1 {
			branch = "└─"
		}
		fmt.Fprintf(b, "%s %s L%d [%s] %s\n", branch, severityEmoji(SeverityOf(e.MatchedPattern)), e.LineNumber, e.Category, oneLine(e.Content, 120))
	}
}

func severityEmoji(s Severity) string {
	switch s {
	case SeverityCritical:
		return emoji.GetEmoji("critical")
	case SeverityError:
		return emoji.GetEmoji("error")
	default:
		return emoji.GetEmoji("warning")
	}
}

// oneLine flattens newlines and truncates to limit runes
func oneLine(s string, limit int) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit-3]) + "..."
	}
	return s
}
