package slogger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/wonton/assert"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
	}{
		{"debug level", "debug", LevelDebug},
		{"info level", "info", LevelInfo},
		{"warn level", "warn", LevelWarn},
		{"warning alias", "warning", LevelWarn},
		{"error level", "error", LevelError},
		{"uppercase", "DEBUG", LevelDebug},
		{"padded", " warn ", LevelWarn},
		{"invalid level", "invalid", DefaultLogLevel},
		{"empty string", "", DefaultLogLevel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, LevelFromString(tc.input))
		})
	}
}

func TestFromString(t *testing.T) {
	_, ok := FromString("none").(*DevNullLogger)
	assert.True(t, ok)
	_, ok = FromString("debug").(*Slogger)
	assert.True(t, ok)
}

func TestNewWithWriterFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelWarn)

	logger.Info("hidden message")
	logger.Warn("hop failed", "participant", "writer")

	out := buf.String()
	assert.NotContains(t, out, "hidden message")
	assert.Contains(t, out, "hop failed")
	assert.Contains(t, out, "participant=writer")
	assert.Contains(t, out, "caller=slogger/slogger_test.go")
	assert.False(t, strings.Contains(out, "\x1b["), "no color when not a terminal")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSON(&buf, LevelDebug).With("execution_id", "e1")
	logger.Debug("routing", "next", "writer")

	var record map[string]any
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "routing", record["msg"])
	assert.Equal(t, "e1", record["execution_id"])
	assert.Equal(t, "writer", record["next"])
}

func TestDevNullLogger(t *testing.T) {
	logger := NewDevNullLogger()
	logger.Debug("debug message", "key", "value")
	logger.Error("error message", "key", "value")
	assert.Equal(t, Logger(logger), logger.With("context", "value"))
}

//nolint:staticcheck // SA1012: Intentionally passing nil context for testing
func TestContextFunctions(t *testing.T) {
	logger := NewWithWriter(&bytes.Buffer{}, LevelInfo)

	ctx := WithLogger(nil, logger)
	assert.NotNil(t, ctx)
	assert.Equal(t, Logger(logger), Ctx(ctx))

	assert.Equal(t, DefaultLogger, Ctx(nil))
	assert.Equal(t, DefaultLogger, Ctx(context.Background()))
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, DefaultLogger, OrDefault(nil))
	logger := NewDevNullLogger()
	assert.Equal(t, Logger(logger), OrDefault(logger))
}
