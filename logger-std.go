//go:build !tinygo

package sniffer

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

func init() {
	globalLogger = NewCharmLogger(os.Stderr, LevelInfo)
}

// charmLogger adapts a charmbracelet logger to Logger.
type charmLogger struct {
	l *log.Logger
}

// NewCharmLogger returns a Logger writing timestamped, leveled lines to w.
func NewCharmLogger(w io.Writer, level LogLevel) Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          "sniffer",
		ReportTimestamp: true,
		Level:           charmLevel(level),
	})
	return &charmLogger{l: l}
}

func charmLevel(level LogLevel) log.Level {
	switch level {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func (c *charmLogger) Debug(msg string) { c.l.Debug(msg) }
func (c *charmLogger) Info(msg string)  { c.l.Info(msg) }
func (c *charmLogger) Warn(msg string)  { c.l.Warn(msg) }
func (c *charmLogger) Error(msg string) { c.l.Error(msg) }
