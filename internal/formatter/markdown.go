package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/session"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct {
	now func() time.Time
}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{now: time.Now}
}

func (f *markdownFormatter) Format(report *Report) ([]byte, error) {
	if report == nil || report.Scan == nil {
		return nil, fmt.Errorf("no scan result to format")
	}
	scan := report.Scan

	var b strings.Builder
	b.WriteString("# Log Scan Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", f.now().Format("2006-01-02 15:04:05"))

	f.writeSummary(&b, report)
	f.writeCountTable(&b, "Categories", "Category", api.SortedByCount(scan.Categories))
	f.writeCountTable(&b, "Top Patterns", "Pattern", topN(scan.PatternMatches, 5))
	f.writeCountTable(&b, "Error Codes", "Code", api.SortedByCount(scan.ErrorCodes))
	f.writeErrors(&b, scan.Errors)

	return []byte(b.String()), nil
}

func (f *markdownFormatter) writeSummary(b *strings.Builder, report *Report) {
	scan := report.Scan
	top, ok := session.TopCategory(scan)
	if !ok {
		top = "-"
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(b, "| File | `%s` |\n", escapeMarkdown(scan.Filename))
	fmt.Fprintf(b, "| Total Lines | %s |\n", formatNumber(scan.TotalLines))
	fmt.Fprintf(b, "| Errors | %s |\n", formatNumber(scan.ErrorCount))
	fmt.Fprintf(b, "| Error Rate | %s%% |\n", session.FormatRate(session.ErrorRate(scan)))
	fmt.Fprintf(b, "| Top Category | %s |\n", escapeMarkdown(top))
	if report.RagStatus != "" {
		fmt.Fprintf(b, "| Index | %s |\n", report.RagStatus)
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeCountTable(b *strings.Builder, title, column string, counts []api.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintf(b, "| %s | Count |\n", column)
	b.WriteString("|---|---:|\n")
	for _, c := range counts {
		fmt.Fprintf(b, "| %s | %d |\n", escapeMarkdown(c.Name), c.Count)
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeErrors(b *strings.Builder, entries []api.ErrorEntry) {
	b.WriteString("## Errors\n\n")
	if len(entries) == 0 {
		b.WriteString("No errors found.\n")
		return
	}
	b.WriteString("| Line | Severity | Category | Pattern | Code | Content |\n")
	b.WriteString("|---:|---|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(b, "| %d | %s | %s | %s | %s | `%s` |\n",
			e.LineNumber,
			SeverityOf(e.MatchedPattern),
			escapeMarkdown(e.Category),
			escapeMarkdown(e.MatchedPattern),
			escapeMarkdown(e.ErrorCode),
			strings.ReplaceAll(oneLine(e.Content, 200), "`", "'"),
		)
	}
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
