package session

import (
	"fmt"
	"time"

	"github.com/yildizm/logdash/internal/api"
)

// Role is the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one transcript entry. Entries are never modified after
// they are appended.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	// Failed marks an assistant message standing in for a failed query
	Failed bool `json:"failed,omitempty"`
}

// Snapshot is a consistent copy of the session at one instant.
type Snapshot struct {
	Scan        *api.ScanResult
	CurrentFile string
	RagStatus   api.RagStatus
	// RagError is the backend's message when RagStatus is error
	RagError   string
	Uploading  bool
	Querying   bool
	Rescanning bool
	Polling    bool
	Transcript []ChatMessage
	Patterns   *api.PatternsResponse
}

// IsReady reports whether questions may be asked
func (s Snapshot) IsReady() bool {
	return s.RagStatus == api.RagReady
}

// ErrorRateValue is error_count / total_lines as a percentage
func (s Snapshot) ErrorRateValue() float64 {
	return ErrorRate(s.Scan)
}

// ErrorRate renders ErrorRateValue with two decimals
func (s Snapshot) ErrorRate() string {
	return FormatRate(ErrorRate(s.Scan))
}

// TopCategory returns the most frequent category
func (s Snapshot) TopCategory() (string, bool) {
	return TopCategory(s.Scan)
}

// ErrorRate is 0 without a result or with zero lines.
func ErrorRate(scan *api.ScanResult) float64 {
	if scan == nil || scan.TotalLines == 0 {
		return 0
	}
	return float64(scan.ErrorCount) / float64(scan.TotalLines) * 100
}

// FormatRate renders a percentage with two decimals
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.2f", rate)
}

// TopCategory returns the category with the highest count. Ties go to the
// category the backend listed first.
func TopCategory(scan *api.ScanResult) (string, bool) {
	if scan == nil {
		return "", false
	}
	sorted := api.SortedByCount(scan.Categories)
	if len(sorted) == 0 {
		return "", false
	}
	return sorted[0].Name, true
}
