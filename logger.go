package sniffer

import (
	"fmt"
	"strings"
)

// Logger defines the logging interface for simple string messages.
// Using simple strings instead of formatted strings keeps the TinyGo build
// small; the packet trace itself goes to the Transport, not here.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// LogLevel is the minimum severity a logger emits.
type LogLevel uint8

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLogLevel accepts debug, info, warn (or warning) and error.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrConfig, s)
}

var globalLogger Logger = &nopLogger{}

// SetLogger sets the global logger instance. nil silences logging.
func SetLogger(l Logger) {
	if l == nil {
		globalLogger = &nopLogger{}
		return
	}
	globalLogger = l
}

type nopLogger struct{}

func (l *nopLogger) Debug(msg string) {}
func (l *nopLogger) Info(msg string)  {}
func (l *nopLogger) Warn(msg string)  {}
func (l *nopLogger) Error(msg string) {}
