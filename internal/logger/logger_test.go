package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/doujinshelf/internal/errors"
)

func TestNew_JSONWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	log.Info("scan complete", "galleries", 3)

	assert.Contains(t, buf.String(), `"msg":"scan complete"`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"galleries":3`)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		environment string
		wantJSON    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf})
			log.Info("hello")

			isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestPrettyHandler_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelDebug, Format: "pretty", Writer: &buf, NoColor: true})

	log.Debug("hashing chapter", "gallery_id", 7, "path", "/in/Gallery A")

	line := buf.String()
	assert.Contains(t, line, "DBG hashing chapter")
	assert.Contains(t, line, "gallery_id=7")
	assert.Contains(t, line, `path="/in/Gallery A"`)
	assert.NotContains(t, line, "\033[")
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelWarn, Format: "pretty", Writer: &buf, NoColor: true})

	log.Info("dropped")
	log.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "WRN kept")
}

func TestPrettyHandler_GroupsPrefixKeys(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	h.color = false

	slog.New(h).WithGroup("resolver").With("run", "abc").Info("flush", "urls", 2)

	assert.Contains(t, buf.String(), "resolver.run=abc")
	assert.Contains(t, buf.String(), "resolver.urls=2")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLogFailure_StructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelDebug, Format: "json", Writer: &buf})

	err := fmt.Errorf("flush: %w", domainerrors.ErrRateLimited)
	LogFailure(log.Logger, "metadata fetch failed", err, "gallery_id", 4)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "RATE_LIMITED", rec["code"])
	assert.Equal(t, "remote", rec["kind"])
	assert.Equal(t, float64(4), rec["gallery_id"])
}

func TestLogFailure_CancellationIsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelDebug, Format: "json", Writer: &buf})

	LogFailure(log.Logger, "scan stopped", context.Canceled)

	assert.True(t, strings.Contains(buf.String(), `"level":"DEBUG"`))
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	log.WithField("source", "ehentai").WithError(fmt.Errorf("boom")).Info("x")
	log.Component("scanner").Info("y")

	assert.Contains(t, buf.String(), `"source":"ehentai"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"component":"scanner"`)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Info("nothing") })
}
