package formatter

// Severity is the display class of a matched pattern
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
)

var criticalPatterns = map[string]bool{
	"Fatal Error":        true,
	"System Panic":       true,
	"Segmentation Fault": true,
	"Out of Memory":      true,
	"Critical Error":     true,
	"Emergency Error":    true,
	"Critical Log":       true,
}

var errorPatterns = map[string]bool{
	"General Error":      true,
	"Exception":          true,
	"Failure":            true,
	"Python Traceback":   true,
	"Stack Trace":        true,
	"Unhandled Error":    true,
	"HTTP Error":         true,
	"Nginx/Apache Error": true,
}

// SeverityOf classifies a backend pattern name. Unknown patterns are warnings.
func SeverityOf(pattern string) Severity {
	switch {
	case criticalPatterns[pattern]:
		return SeverityCritical
	case errorPatterns[pattern]:
		return SeverityError
	default:
		return SeverityWarning
	}
}
