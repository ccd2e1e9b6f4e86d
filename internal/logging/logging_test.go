package logging

import (
	"bytes"
	"context"
	"log/slog"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"", log.InfoLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.True(t, errors.Is(err, ErrInvalidLevel))
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "asset", "r.png")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "r.png")
	assert.Contains(t, out, "svault")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Info("exported", "inventory", 3)

	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
	assert.Equal(t, "exported", rec["msg"])
	assert.EqualValues(t, 3, rec["inventory"])
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "nope"})
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = New(Config{Format: "xml"})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("goes nowhere")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
