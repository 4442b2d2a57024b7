// Package slogger provides the structured logger used throughout relay.
package slogger

import (
	"context"
	"strings"
)

// DefaultLogger is used when no logger is configured. It discards output.
var DefaultLogger = Discard

// Logger is a structured, leveled logger. Arguments after the message are
// alternating keys and values, as with log/slog.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)

	// With returns a Logger that adds keysAndValues to every record.
	With(keysAndValues ...any) Logger
}

type contextKey struct{}

var loggerKey = contextKey{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger stored in ctx, or DefaultLogger.
func Ctx(ctx context.Context) Logger {
	if ctx == nil {
		return DefaultLogger
	}
	logger, ok := ctx.Value(loggerKey).(Logger)
	if !ok {
		return DefaultLogger
	}
	return logger
}

// OrDefault returns logger, or DefaultLogger when logger is nil.
func OrDefault(logger Logger) Logger {
	if logger == nil {
		return DefaultLogger
	}
	return logger
}

// LevelFromString parses a level name. Unknown names give DefaultLogLevel.
func LevelFromString(level string) LogLevel {
	value := strings.ToLower(strings.TrimSpace(level))
	switch value {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return DefaultLogLevel
	}
}

// FromString returns a logger for the named level. "none" and "off" return
// a logger that discards everything.
func FromString(level string) Logger {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "none", "off":
		return NewDevNullLogger()
	}
	return New(LevelFromString(level))
}
