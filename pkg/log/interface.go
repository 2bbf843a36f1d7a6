// Package log provides the structured logging interface used across dtreegen.
//
// The interface is slog-compatible in shape so that different backends can be
// swapped in; the production implementation is backed by zerolog (see
// NewZerologLogger) and tests capture output with TestLogger.
//
// Example usage:
//
//	logger := log.NewZerologLogger(os.Stderr, log.LevelInfo, "console").With(
//	    log.ComponentKey, "pipeline",
//	)
//	logger.Info("training data loaded",
//	    log.SamplesKey, 120,
//	    log.FeaturesKey, 8,
//	)
package log

import (
	"context"
	"strings"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key/value pairs. The With method returns a
// contextual logger carrying the given fields on every subsequent record.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs a potentially problematic situation that does not stop the run.
	Warn(msg string, fields ...any)

	// Error logs an error condition. If the first field is an error value it
	// is attached as the record's error, including its stack trace when the
	// error carries one.
	//
	// Example:
	//   logger.Error("ping failed", err, log.OperationKey, "ping")
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
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
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration value ("debug", "info", "warn",
// "error") to a Level. Unknown values fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
