// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keyring.
//
// go-keyring is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package logger defines the structured logging interface used throughout
// go-keyring. Components receive a Logger at construction time and derive
// child loggers scoped to their lifecycle with With.
package logger

// Level is the minimum severity a logger will emit.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelFatal messages terminate the process after being written.
	LevelFatal
)

// String returns the level name in the form used by log output.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	}
	return "UNKNOWN"
}

// ParseLevel converts a configuration string to a Level.
// Unrecognized values default to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

// Logger is the structured logging contract. Each method accepts a
// message plus zero or more typed fields. Fatal exits the process.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With returns a child logger that attaches the given fields to
	// every subsequent message.
	With(fields ...Field) Logger

	// WithError is shorthand for With(Error(err)).
	WithError(err error) Logger
}

// Field is one key/value pair attached to a log message.
type Field struct {
	Key   string
	Value any
}

// Typed field constructors. Using these rather than Any lets the slog
// adapter emit the value without reflection.

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Strings(key string, values []string) Field {
	return Field{Key: key, Value: values}
}

// Error builds the conventional "error" field.
func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any wraps an arbitrary value; prefer the typed constructors.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}
