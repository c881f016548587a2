package session

import "errors"

// ValidationError is returned when a request is rejected before any state
// change or network call.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrNoFile         = &ValidationError{Field: "file", Message: "Please select a file first"}
	ErrNoSession      = &ValidationError{Field: "file", Message: "upload a log file first"}
	ErrEmptyQuestion  = &ValidationError{Field: "question", Message: "question is empty"}
	ErrNotReady       = &ValidationError{Field: "rag_status", Message: "the log index is not ready yet"}
	ErrQueryInFlight  = &ValidationError{Field: "question", Message: "a query is already in progress"}
	ErrUploadInFlight = &ValidationError{Field: "file", Message: "an upload is already in progress"}
	ErrRescanInFlight = &ValidationError{Field: "patterns", Message: "a rescan is already in progress"}
	ErrNoPatterns     = &ValidationError{Field: "patterns", Message: "select at least one pattern"}
	ErrNotPolling     = &ValidationError{Field: "rag_status", Message: "no index build in progress"}

	// ErrClosed is returned by waits on a store that has been closed
	ErrClosed = errors.New("session closed")
)

// IsValidationError reports whether err was a rejected request
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
