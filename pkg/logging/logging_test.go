package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-render-inspector/pkg/core"
)

var _ core.Logger = (*PrintfAdapter)(nil)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", true)

	logger.Info("render complete", "pixels", 1024)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "render complete", record["msg"])
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, float64(1024), record["pixels"])
}

func TestNew_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", false)

	logger.Info("listening", "addr", ":50013")

	out := buf.String()
	assert.Contains(t, out, "listening")
	assert.Contains(t, out, "addr=:50013")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", false)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestPrintfAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := &PrintfAdapter{Logger: New(&buf, "info", false)}

	adapter.Printf("rendered %dx%d in %s", 256, 256, "1.2s")

	assert.Contains(t, buf.String(), "rendered 256x256 in 1.2s")
}

func TestPrintfAdapter_Level(t *testing.T) {
	var buf bytes.Buffer
	adapter := &PrintfAdapter{Logger: New(&buf, "warn", false), Level: slog.LevelDebug}

	adapter.Printf("below threshold")
	assert.Empty(t, buf.String())
}
