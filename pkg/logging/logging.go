// Package logging builds the slog loggers used by the inspector binaries
// and adapts them to the Printf-style interface the render packages expect.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// New returns a slog.Logger writing to w at the given level.
// When json is true records are emitted as JSON objects, otherwise as text.
func New(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config level string to a slog.Level.
// Unknown or empty strings fall back to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// PrintfAdapter lets a slog.Logger stand in for core.Logger.
// The zero Level logs Printf messages at Info.
type PrintfAdapter struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (a *PrintfAdapter) Printf(format string, args ...interface{}) {
	a.Logger.Log(context.Background(), a.Level, fmt.Sprintf(format, args...))
}
