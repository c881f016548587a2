package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// VerboseChecker reports whether debug and info output is enabled
type VerboseChecker interface {
	IsVerbose() bool
}

// sink is shared by a logger and every logger derived from it, so that
// redirecting one (for example while the dashboard owns the terminal)
// redirects them all.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

var defaultSink = &sink{w: os.Stderr}

// Logger writes leveled, component-tagged lines
type Logger struct {
	component      string
	verboseChecker VerboseChecker
	out            *sink
}

// Field is a key-value pair attached to a log line
type Field struct {
	Key   string
	Value interface{}
}

// New creates a logger writing to the process-wide sink (stderr by default)
func New(component string, verboseChecker VerboseChecker) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: verboseChecker,
		out:            defaultSink,
	}
}

// NewWithCallback creates a logger whose verbosity is decided by verboseCheck
func NewWithCallback(component string, verboseCheck func() bool) *Logger {
	return New(component, &callbackChecker{callback: verboseCheck})
}

// NewWriter creates a logger with its own sink. Used by tests.
func NewWriter(component string, w io.Writer, verbose bool) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: &callbackChecker{callback: func() bool { return verbose }},
		out:            &sink{w: w},
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return NewWriter("", io.Discard, false)
}

// SetDefaultOutput redirects every logger created with New or NewWithCallback.
func SetDefaultOutput(w io.Writer) {
	defaultSink.set(w)
}

// SetOutput redirects this logger and every logger derived from it.
func (l *Logger) SetOutput(w io.Writer) {
	l.out.set(w)
}

// WithComponent returns a logger sharing this one's sink and verbosity
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: l.verboseChecker,
		out:            l.out,
	}
}

type callbackChecker struct {
	callback func() bool
}

func (c *callbackChecker) IsVerbose() bool {
	if c.callback == nil {
		return false
	}
	return c.callback()
}

func (s *sink) set(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *sink) write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// nothing sensible to do when the log sink itself fails
	_, _ = fmt.Fprint(s.w, line)
}

func (l *Logger) verbose() bool {
	return l.verboseChecker != nil && l.verboseChecker.IsVerbose()
}

// Debug logs only when verbose
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.verbose() {
		l.logWithFields("DEBUG", msg, nil, args...)
	}
}

// Info logs only when verbose
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.verbose() {
		l.logWithFields("INFO", msg, nil, args...)
	}
}

// Warn always logs
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.logWithFields("WARN", msg, nil, args...)
}

// Error always logs
func (l *Logger) Error(msg string, args ...interface{}) {
	l.logWithFields("ERROR", msg, nil, args...)
}

// DebugWithFields logs a debug line with structured fields
func (l *Logger) DebugWithFields(msg string, fields []Field, args ...interface{}) {
	if l.verbose() {
		l.logWithFields("DEBUG", msg, fields, args...)
	}
}

// InfoWithFields logs an info line with structured fields
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	if l.verbose() {
		l.logWithFields("INFO", msg, fields, args...)
	}
}

// WarnWithFields logs a warning with structured fields
func (l *Logger) WarnWithFields(msg string, fields []Field, args ...interface{}) {
	l.logWithFields("WARN", msg, fields, args...)
}

func (l *Logger) logWithFields(level, msg string, fields []Field, args ...interface{}) {
	timestamp := time.Now().Format("15:04:05.000")
	component := l.component
	if component == "" {
		component = "main"
	}

	formattedMsg := msg
	if len(args) > 0 {
		formattedMsg = fmt.Sprintf(msg, args...)
	}

	var fieldsStr string
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, field := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", field.Key, field.Value))
		}
		fieldsStr = fmt.Sprintf(" [%s]", strings.Join(parts, " "))
	}

	l.out.write(fmt.Sprintf("[%s] %s [%s] %s%s\n", timestamp, level, component, formattedMsg, fieldsStr))
}

// F builds a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func Count(value int) Field {
	return Field{Key: "count", Value: value}
}

func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d}
}

func Err(err error) Field {
	return Field{Key: "error", Value: err}
}
