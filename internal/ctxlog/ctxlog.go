// Package ctxlog carries a slog.Logger through context.Context and defines the
// verbosity levels used by the engine between INFO and DEBUG.
package ctxlog

import (
	"context"
	"fmt"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

// loggerKey is the key for the slog.Logger in a context.Context.
var loggerKey = key{}

const (
	// LevelVerbose is used for VERBOSE=1 messages: executed commands, registrations.
	LevelVerbose = slog.Level(-1)
	// LevelTrace is used for VERBOSE=2 messages: templated values, symbol reports.
	LevelTrace = slog.Level(-2)
)

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. A missing logger is a
// programming error.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	panic("ctxlog: logger missing from context")
}

// Verbose logs msg at the level matching the given verbosity (1 or 2; anything
// higher is logged at DEBUG).
func Verbose(ctx context.Context, verbosity int, msg string, args ...any) {
	FromContext(ctx).Log(ctx, VerbosityLevel(verbosity), msg, args...)
}

// VerbosityLevel maps a VERBOSE value onto a slog level. Zero and negative
// values mean INFO.
func VerbosityLevel(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelInfo
	case verbosity == 1:
		return LevelVerbose
	case verbosity == 2:
		return LevelTrace
	default:
		return slog.LevelDebug
	}
}

// ParseLevel converts a --log-level flag value into a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	case "verbose":
		return LevelVerbose, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
