// Package logging builds the structured JSON loggers used by every entry point.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values fall
// back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a JSON logger writing to stdout at the given level.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Setup installs a JSON logger as the process default and returns it.
func Setup(level string) *slog.Logger {
	logger := New(level)
	slog.SetDefault(logger)
	return logger
}
