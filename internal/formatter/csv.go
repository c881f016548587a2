package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/yildizm/logdash/internal/api"
)

// csvFormatter writes the error entries as CSV
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

var csvHeaders = []string{"Line", "Severity", "Category", "Pattern", "Error Code", "Content"}

func (f *csvFormatter) Format(report *Report) ([]byte, error) {
	var entries []api.ErrorEntry
	if report != nil && report.Scan != nil {
		entries = report.Scan.Errors
	}

	var b bytes.Buffer
	if err := WriteErrorsCSV(&b, entries); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// WriteErrorsCSV writes entries with a header row
func WriteErrorsCSV(w io.Writer, entries []api.ErrorEntry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			strconv.Itoa(e.LineNumber),
			string(SeverityOf(e.MatchedPattern)),
			e.Category,
			e.MatchedPattern,
			e.ErrorCode,
			e.Content,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}
