// Package obslog provides component-scoped loggers over log/slog.
//
// Each subsystem constructs its own logger via New rather than reaching for a
// package-level global, so tests can instantiate independent instances (see
// spec §9 "Global state").
package obslog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a text-handler slog.Logger tagged with a "component" attribute.
func New(component string, w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("component", component)
}

// ParseLevel maps a case-insensitive level name to a slog.Level, defaulting
// to info for anything unrecognized.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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
