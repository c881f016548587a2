package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies transport failures
type ErrorType string

const (
	// ErrTypeNetwork means no usable response arrived (dial, timeout, cancel)
	ErrTypeNetwork ErrorType = "network"

	// ErrTypeBackend means the backend answered with a non-2xx status
	ErrTypeBackend ErrorType = "backend"

	// ErrTypeDecode means a 2xx response body could not be decoded
	ErrTypeDecode ErrorType = "decode"

	// ErrTypePending means the backend accepted the request but cannot
	// answer yet (HTTP 202 with a detail message)
	ErrTypePending ErrorType = "pending"
)

// TransportError is returned by every Client operation
type TransportError struct {
	Type       ErrorType
	Op         string
	StatusCode int
	// Detail is the backend's own message, if the body carried one
	Detail string
	Cause  error
}

// Error returns the backend detail verbatim when present so it can be shown
// to the user as is.
func (e *TransportError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	switch e.Type {
	case ErrTypeNetwork:
		return fmt.Sprintf("%s failed: backend unreachable", e.Op)
	case ErrTypeDecode:
		return fmt.Sprintf("%s failed: invalid response from backend", e.Op)
	default:
		return fmt.Sprintf("%s failed with status %d", e.Op, e.StatusCode)
	}
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is matches another TransportError of the same Type
func (e *TransportError) Is(target error) bool {
	if te, ok := target.(*TransportError); ok {
		return e.Type == te.Type
	}
	return false
}

// Retryable reports whether an idempotent request may be sent again
func (e *TransportError) Retryable() bool {
	switch e.Type {
	case ErrTypeNetwork:
		return true
	case ErrTypeBackend:
		return e.StatusCode == 429 || e.StatusCode >= 500
	}
	return false
}

func newNetworkError(op string, cause error) *TransportError {
	return &TransportError{Type: ErrTypeNetwork, Op: op, Cause: cause}
}

func newDecodeError(op string, status int, cause error) *TransportError {
	return &TransportError{Type: ErrTypeDecode, Op: op, StatusCode: status, Cause: cause}
}

// IsNetworkError reports whether err is a network failure
func IsNetworkError(err error) bool {
	return isType(err, ErrTypeNetwork)
}

// IsBackendError reports whether err is a non-2xx backend response
func IsBackendError(err error) bool {
	return isType(err, ErrTypeBackend)
}

// IsPending reports whether the backend asked the caller to come back later
func IsPending(err error) bool {
	return isType(err, ErrTypePending)
}

func isType(err error, t ErrorType) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Type == t
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// Message is the user-facing text for err
func Message(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Error()
	}
	return err.Error()
}

// parseDetail extracts "detail" from an error body. FastAPI validation
// failures send a list of objects with "msg" fields instead of a string.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		return strings.TrimSpace(detail)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
