package api

import (
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RagStatus is the lifecycle of the backend index for the current file
type RagStatus string

const (
	RagIdle     RagStatus = "idle"
	RagBuilding RagStatus = "building"
	RagReady    RagStatus = "ready"
	RagError    RagStatus = "error"
)

// Valid reports whether s is one of the known statuses
func (s RagStatus) Valid() bool {
	switch s {
	case RagIdle, RagBuilding, RagReady, RagError:
		return true
	}
	return false
}

// Terminal reports whether polling should stop at s
func (s RagStatus) Terminal() bool {
	return s == RagReady || s == RagError
}

// Counts is a name to count mapping that remembers the order the backend sent it in.
type Counts = orderedmap.OrderedMap[string, int]

// NewCounts builds Counts from pairs, keeping their order.
func NewCounts(pairs ...Count) *Counts {
	c := orderedmap.New[string, int]()
	for _, p := range pairs {
		c.Set(p.Name, p.Count)
	}
	return c
}

// Count is one entry of a Counts mapping
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Entries returns the mapping in insertion order. A nil mapping is empty.
func Entries(c *Counts) []Count {
	if c == nil {
		return nil
	}
	out := make([]Count, 0, c.Len())
	for pair := c.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Count{Name: pair.Key, Count: pair.Value})
	}
	return out
}

// SortedByCount returns the mapping by descending count. Equal counts keep
// insertion order.
func SortedByCount(c *Counts) []Count {
	out := Entries(c)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// ErrorEntry is one classified log line
type ErrorEntry struct {
	LineNumber     int    `json:"line_number"`
	Content        string `json:"content"`
	Category       string `json:"category"`
	ErrorCode      string `json:"error_code,omitempty"`
	MatchedPattern string `json:"matched_pattern"`
}

// ScanResult is the backend's summary of one uploaded file. It is never
// modified after decoding.
type ScanResult struct {
	Filename       string       `json:"filename,omitempty"`
	TotalLines     int          `json:"total_lines"`
	ErrorCount     int          `json:"error_count"`
	Errors         []ErrorEntry `json:"errors"`
	Categories     *Counts      `json:"categories"`
	ErrorCodes     *Counts      `json:"error_codes"`
	PatternMatches *Counts      `json:"pattern_matches"`
	RagStatus      RagStatus    `json:"rag_status,omitempty"`
}

// PatternsResponse is returned by GET /patterns
type PatternsResponse struct {
	Patterns     []string          `json:"patterns"`
	Descriptions map[string]string `json:"descriptions"`
}

// StatusResponse is returned by GET /status
type StatusResponse struct {
	Ready    bool    `json:"ready"`
	Filename *string `json:"filename"`
	Saved    bool    `json:"saved,omitempty"`
}

// RagStatusResponse is returned by GET /rag-status
type RagStatusResponse struct {
	Status   RagStatus `json:"status"`
	Filename *string   `json:"filename,omitempty"`
	Saved    bool      `json:"saved,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// QueryRequest is the body of POST /query
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse is returned by POST /query
type QueryResponse struct {
	Answer string `json:"answer"`
}

// RescanRequest is the body of POST /rescan
type RescanRequest struct {
	Patterns []string `json:"patterns"`
}
