// Package logger defines the logging interface used across the gateway
// and its zap-backed production implementation.
package logger

// Logger is the minimal structured logging contract. Fields are passed
// as a flat map so callers do not depend on a concrete logging library.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NoopLogger discards everything. Used as the default when no logger is
// injected.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
