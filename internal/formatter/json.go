package formatter

import (
	"encoding/json"

	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/session"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

// JSONOutput is the document written by the json format
type JSONOutput struct {
	Summary        SummaryOutput `json:"summary"`
	Categories     []api.Count   `json:"categories"`
	PatternMatches []api.Count   `json:"pattern_matches"`
	ErrorCodes     []api.Count   `json:"error_codes"`
	Errors         []ErrorOutput `json:"errors"`
}

// SummaryOutput holds the headline numbers
type SummaryOutput struct {
	Filename    string        `json:"filename"`
	TotalLines  int           `json:"total_lines"`
	ErrorCount  int           `json:"error_count"`
	ErrorRate   float64       `json:"error_rate"`
	TopCategory string        `json:"top_category,omitempty"`
	RagStatus   api.RagStatus `json:"rag_status"`
	RagError    string        `json:"rag_error,omitempty"`
}

// ErrorOutput is an error entry with its display severity
type ErrorOutput struct {
	api.ErrorEntry
	Severity Severity `json:"severity"`
}

func (f *jsonFormatter) Format(report *Report) ([]byte, error) {
	if report == nil || report.Scan == nil {
		return json.MarshalIndent(struct {
			Summary *SummaryOutput `json:"summary"`
		}{}, "", "  ")
	}
	scan := report.Scan
	top, _ := session.TopCategory(scan)

	output := JSONOutput{
		Summary: SummaryOutput{
			Filename:    scan.Filename,
			TotalLines:  scan.TotalLines,
			ErrorCount:  scan.ErrorCount,
			ErrorRate:   session.ErrorRate(scan),
			TopCategory: top,
			RagStatus:   report.RagStatus,
			RagError:    report.RagError,
		},
		Categories:     nonNil(api.SortedByCount(scan.Categories)),
		PatternMatches: nonNil(api.SortedByCount(scan.PatternMatches)),
		ErrorCodes:     nonNil(api.SortedByCount(scan.ErrorCodes)),
		Errors:         make([]ErrorOutput, 0, len(scan.Errors)),
	}
	for _, e := range scan.Errors {
		output.Errors = append(output.Errors, ErrorOutput{ErrorEntry: e, Severity: SeverityOf(e.MatchedPattern)})
	}

	return json.MarshalIndent(output, "", "  ")
}

func nonNil(c []api.Count) []api.Count {
	if c == nil {
		return []api.Count{}
	}
	return c
}
