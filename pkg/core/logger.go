package core

import (
	"fmt"
	"log"
	"os"
)

// Logger provides leveled logging for scheduler components
// This abstraction allows swapping logging implementations
type Logger interface {
	// Error logs an error message
	Error(args ...interface{})

	// Errorf logs a formatted error message
	Errorf(format string, args ...interface{})

	// Warn logs a warning message
	Warn(args ...interface{})

	// Warnf logs a formatted warning message
	Warnf(format string, args ...interface{})

	// Info logs an informational message
	Info(args ...interface{})

	// Infof logs a formatted informational message
	Infof(format string, args ...interface{})

	// Debug logs a debug message
	Debug(args ...interface{})

	// Debugf logs a formatted debug message
	Debugf(format string, args ...interface{})
}

// defaultLogger implements Logger using Go's standard log package
type defaultLogger struct {
	errorLogger *log.Logger
	warnLogger  *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
}

// NewDefaultLogger creates a new default logger implementation
func NewDefaultLogger() Logger {
	return &defaultLogger{
		errorLogger: log.New(os.Stderr, "[ERROR] ", log.LstdFlags|log.Lshortfile),
		warnLogger:  log.New(os.Stderr, "[WARN] ", log.LstdFlags|log.Lshortfile),
		infoLogger:  log.New(os.Stdout, "[INFO] ", log.LstdFlags|log.Lshortfile),
		debugLogger: log.New(os.Stdout, "[DEBUG] ", log.LstdFlags|log.Lshortfile),
	}
}

func (l *defaultLogger) Error(args ...interface{}) {
	l.errorLogger.Output(3, fmt.Sprint(args...))
}

func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.errorLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Warn(args ...interface{}) {
	l.warnLogger.Output(3, fmt.Sprint(args...))
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.warnLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Info(args ...interface{}) {
	l.infoLogger.Output(3, fmt.Sprint(args...))
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.infoLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Debug(args ...interface{}) {
	l.debugLogger.Output(3, fmt.Sprint(args...))
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.debugLogger.Output(3, fmt.Sprintf(format, args...))
}

// NopLogger returns a logger that discards everything. Useful in tests and
// in callers that wire their own observability.
func NopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Error(args ...interface{})                 {}
func (nopLogger) Errorf(format string, args ...interface{}) {}
func (nopLogger) Warn(args ...interface{})                  {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Info(args ...interface{})                  {}
func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Debug(args ...interface{})                 {}
func (nopLogger) Debugf(format string, args ...interface{}) {}
