//go:build tinygo

package sniffer

import (
	"machine"
)

func init() {
	globalLogger = &serialLogger{level: LevelInfo}
}

// NewSerialLogger returns a Logger that writes to machine.Serial directly
// to avoid the memory overhead of the fmt package.
func NewSerialLogger(level LogLevel) Logger {
	return &serialLogger{level: level}
}

type serialLogger struct {
	level LogLevel
}

func (l *serialLogger) log(level LogLevel, tag, msg string) {
	if level < l.level {
		return
	}
	machine.Serial.Write([]byte(tag))
	machine.Serial.Write([]byte(msg))
	machine.Serial.Write([]byte("\r\n"))
}

func (l *serialLogger) Debug(msg string) { l.log(LevelDebug, "[DEBUG] ", msg) }
func (l *serialLogger) Info(msg string)  { l.log(LevelInfo, "[INFO]  ", msg) }
func (l *serialLogger) Warn(msg string)  { l.log(LevelWarn, "[WARN]  ", msg) }
func (l *serialLogger) Error(msg string) { l.log(LevelError, "[ERROR] ", msg) }
