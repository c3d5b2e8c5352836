package logging

import (
	"log"
	"os"
)

// Logger is a thin leveled wrapper over the standard logger. A nil *Logger
// is valid and silent, so services can take one optionally.
type Logger struct {
	*log.Logger
}

// NewLogger creates a Logger writing to stdout.
func NewLogger() *Logger {
	return &Logger{Logger: log.New(os.Stdout, "", log.LstdFlags)}
}

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) {
	if l == nil {
		return
	}
	l.Printf("INFO: "+msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	if l == nil {
		return
	}
	l.Printf("WARN: "+msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	if l == nil {
		return
	}
	l.Printf("ERROR: "+msg, args...)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	if l == nil {
		return
	}
	l.Printf("DEBUG: "+msg, args...)
}
