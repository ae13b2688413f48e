// Package logger provides structured logging for stigsheets.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

// Logger is the logging interface used throughout the application.
// The default implementation is backed by log/slog; tests use MockLogger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

var (
	global   Logger = NewLogger(false, "text")
	globalMu sync.RWMutex
)

// SlogLogger adapts *slog.Logger to the Logger interface.
type SlogLogger struct {
	l *slog.Logger
}

// NewLogger creates a slog-backed logger writing to stderr.
func NewLogger(debug bool, format string) *SlogLogger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return &SlogLogger{l: slog.New(handler)}
}

// Debug logs a debug message.
func (s *SlogLogger) Debug(msg string, args ...any) {
	if s.l != nil {
		s.l.Debug(msg, args...)
	}
}

// Info logs an info message.
func (s *SlogLogger) Info(msg string, args ...any) {
	if s.l != nil {
		s.l.Info(msg, args...)
	}
}

// Warn logs a warning message.
func (s *SlogLogger) Warn(msg string, args ...any) {
	if s.l != nil {
		s.l.Warn(msg, args...)
	}
}

// Error logs an error message.
func (s *SlogLogger) Error(msg string, args ...any) {
	if s.l != nil {
		s.l.Error(msg, args...)
	}
}

// With returns a logger carrying additional attributes.
func (s *SlogLogger) With(args ...any) Logger {
	if s.l == nil {
		return NewLogger(false, "text").With(args...)
	}
	return &SlogLogger{l: s.l.With(args...)}
}

// SetupLogger configures the global logger.
func SetupLogger(debug bool, format string) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = NewLogger(debug, format)
}

// GetGlobalLogger returns the current global logger.
func GetGlobalLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Debug logs a debug message on the global logger.
func Debug(msg string, args ...any) {
	GetGlobalLogger().Debug(msg, args...)
}

// Info logs an info message on the global logger.
func Info(msg string, args ...any) {
	GetGlobalLogger().Info(msg, args...)
}

// Warn logs a warning message on the global logger.
func Warn(msg string, args ...any) {
	GetGlobalLogger().Warn(msg, args...)
}

// Error logs an error message on the global logger.
func Error(msg string, args ...any) {
	GetGlobalLogger().Error(msg, args...)
}

// WithSource returns a logger with input-source context.
func WithSource(source string) Logger {
	return GetGlobalLogger().With("source", source)
}
