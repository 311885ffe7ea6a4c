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

package logger

import (
	"context"
	"log/slog"
	"os"
)

// SlogAdapter implements Logger on top of log/slog. Child loggers share
// the underlying slog.Logger and carry their bound fields alongside it.
type SlogAdapter struct {
	logger *slog.Logger
	fields []Field
}

var _ Logger = (*SlogAdapter)(nil)

// SlogConfig configures NewSlogAdapter. All fields are optional; the
// zero value yields a text logger on stderr at LevelInfo.
type SlogConfig struct {
	// Logger, when set, is used verbatim and the remaining fields
	// are ignored.
	Logger *slog.Logger

	// Level is the minimum level to emit.
	Level Level

	// Format selects the output encoding: "text" (default) or "json".
	Format string

	// Handler overrides the handler built from Level and Format.
	Handler slog.Handler
}

// NewSlogAdapter builds a Logger from the given configuration.
// A nil config is treated as the zero value.
func NewSlogAdapter(config *SlogConfig) *SlogAdapter {
	if config == nil {
		config = &SlogConfig{}
	}
	if config.Logger == nil {
		if config.Handler == nil {
			opts := &slog.HandlerOptions{
				Level: levelToSlogLevel(config.Level),
			}
			if config.Format == "json" {
				config.Handler = slog.NewJSONHandler(os.Stderr, opts)
			} else {
				config.Handler = slog.NewTextHandler(os.Stderr, opts)
			}
		}
		config.Logger = slog.New(config.Handler)
	}
	return &SlogAdapter{logger: config.Logger}
}

func (l *SlogAdapter) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *SlogAdapter) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *SlogAdapter) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *SlogAdapter) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields)
}

// Fatal logs at error level and terminates the process.
func (l *SlogAdapter) Fatal(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields)
	os.Exit(1)
}

// With returns a child logger carrying the combined field set. The
// parent's fields are copied so later writes cannot alias.
func (l *SlogAdapter) With(fields ...Field) Logger {
	combined := make([]Field, 0, len(l.fields)+len(fields))
	combined = append(combined, l.fields...)
	combined = append(combined, fields...)
	return &SlogAdapter{logger: l.logger, fields: combined}
}

func (l *SlogAdapter) WithError(err error) Logger {
	return l.With(Error(err))
}

func (l *SlogAdapter) log(level slog.Level, msg string, fields []Field) {
	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields))
	for _, f := range l.fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func fieldToAttr(field Field) slog.Attr {
	switch v := field.Value.(type) {
	case string:
		return slog.String(field.Key, v)
	case int:
		return slog.Int(field.Key, v)
	case int64:
		return slog.Int64(field.Key, v)
	case bool:
		return slog.Bool(field.Key, v)
	}
	return slog.Any(field.Key, field.Value)
}

func levelToSlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError, LevelFatal:
		return slog.LevelError
	}
	return slog.LevelInfo
}
