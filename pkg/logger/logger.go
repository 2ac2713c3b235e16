// Package logger provides the logging interface shared by every cookieshare
// component. Cookie values must never be passed to a Logger; only cookie
// names and domains may appear in log lines.
package logger

import (
	"fmt"
	"log"
	"sync"
)

// Logger defines the leveled logging interface used across cookieshare.
type Logger interface {
	// Debug logs a diagnostic message (e.g., "set cookie sid for .example.com").
	// Implementations may drop debug messages unless verbose output is enabled.
	Debug(format string, args ...interface{})

	// Info logs an informational message (e.g., "imported 3 cookies").
	Info(format string, args ...interface{})

	// Warning logs a warning message (e.g., "listing failed, retry 1/2").
	Warning(format string, args ...interface{})

	// Error logs an error message (e.g., "relay returned 500").
	Error(format string, args ...interface{})

	// Close releases resources held by the logger (e.g., an open log file).
	// Safe to call multiple times.
	Close() error
}

// StandardLogger wraps the stdlib *log.Logger for console/file output.
type StandardLogger struct {
	logger  *log.Logger
	verbose bool
	closer  func() error
}

// NewStandardLogger creates a logger that wraps the given *log.Logger.
// Debug messages are dropped.
func NewStandardLogger(l *log.Logger) *StandardLogger {
	return &StandardLogger{logger: l}
}

// NewVerboseLogger creates a logger that also emits Debug messages.
func NewVerboseLogger(l *log.Logger) *StandardLogger {
	return &StandardLogger{logger: l, verbose: true}
}

// WithCloser attaches a function run once by Close, typically the Close of
// the file the wrapped *log.Logger writes to.
func (s *StandardLogger) WithCloser(fn func() error) *StandardLogger {
	var once sync.Once
	s.closer = func() (err error) {
		once.Do(func() { err = fn() })
		return
	}
	return s
}

// Debug logs a diagnostic message with [DEBUG] prefix when verbose.
func (s *StandardLogger) Debug(format string, args ...interface{}) {
	if !s.verbose {
		return
	}
	s.logger.Printf("[DEBUG] "+format, args...)
}

// Info logs an informational message with [INFO] prefix.
func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

// Warning logs a warning message with [WARNING] prefix.
func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logger.Printf("[WARNING] "+format, args...)
}

// Error logs an error message with [ERROR] prefix.
func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}

// Close runs the attached closer, if any.
func (s *StandardLogger) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// NopLogger is a logger that discards all messages.
type NopLogger struct{}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(format string, args ...interface{})   {}
func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}
func (n *NopLogger) Close() error                               { return nil }

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)

// MockLogger records every log call for verification in tests.
// It is safe for concurrent use since the transfer engine logs from
// timer callbacks.
type MockLogger struct {
	mu           sync.Mutex
	DebugCalls   []string
	InfoCalls    []string
	WarningCalls []string
	ErrorCalls   []string
	CloseCalled  bool
}

// NewMockLogger creates a new MockLogger for testing.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(dst *[]string, format string, args []interface{}) {
	m.mu.Lock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
	m.mu.Unlock()
}

// Debug records the formatted message.
func (m *MockLogger) Debug(format string, args ...interface{}) {
	m.record(&m.DebugCalls, format, args)
}

// Info records the formatted message.
func (m *MockLogger) Info(format string, args ...interface{}) {
	m.record(&m.InfoCalls, format, args)
}

// Warning records the formatted message.
func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.record(&m.WarningCalls, format, args)
}

// Error records the formatted message.
func (m *MockLogger) Error(format string, args ...interface{}) {
	m.record(&m.ErrorCalls, format, args)
}

// Errors returns a copy of the recorded error messages.
func (m *MockLogger) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ErrorCalls...)
}

// Warnings returns a copy of the recorded warning messages.
func (m *MockLogger) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.WarningCalls...)
}

// Close records that Close was called.
func (m *MockLogger) Close() error {
	m.mu.Lock()
	m.CloseCalled = true
	m.mu.Unlock()
	return nil
}

var _ Logger = (*MockLogger)(nil)
