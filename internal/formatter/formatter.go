package formatter

import (
	"fmt"

	"github.com/yildizm/logdash/internal/api"
)

// Report is what the formatters render: one scan plus the index state
type Report struct {
	Scan      *api.ScanResult
	RagStatus api.RagStatus
	RagError  string
}

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(report *Report) ([]byte, error)
}

// New returns the formatter for a format name
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "", "text":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown", "md":
		return NewMarkdown(), nil
	case "csv":
		return NewCSV(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use text, json, markdown or csv)", format)
	}
}

// formatNumber formats numbers with commas for readability
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + addCommas(s[1:])
	}
	return addCommas(s)
}

func addCommas(s string) string {
	if len(s) <= 3 {
		return s
	}
	return addCommas(s[:len(s)-3]) + "," + s[len(s)-3:]
}

// topN returns at most n entries of the stable descending order
func topN(c *api.Counts, n int) []api.Count {
	sorted := api.SortedByCount(c)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
