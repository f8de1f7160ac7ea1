package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger_JSONIncludesTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "info", Format: FormatJSON}, &buf)

	ctx := ContextWithTraceID(context.Background(), "01TRACE")
	logger.Info().Ctx(ctx).Str("wallet", "abc").Msg("sent")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "01TRACE", entry["trace_id"])
	assert.Equal(t, "abc", entry["wallet"])
	assert.Equal(t, "sent", entry["message"])
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Format: FormatJSON}, &buf)

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLoggerWithPath(t *testing.T) {
	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "run.log")
		result := NewLoggerWithPath(Config{Level: "info", Output: OutputFile, File: path})
		defer func() { _ = result.Close() }()

		require.True(t, result.UsingFile)
		assert.False(t, result.FallbackUsed)
		assert.Equal(t, path, result.FilePath)

		result.Logger.Info().Msg("to file")
		require.NoError(t, result.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("missing file falls back", func(t *testing.T) {
		result := NewLoggerWithPath(Config{Output: OutputFile})
		assert.False(t, result.UsingFile)
		assert.True(t, result.FallbackUsed)
		assert.NotEmpty(t, result.FallbackReason)
	})

	t.Run("stderr default", func(t *testing.T) {
		result := NewLoggerWithPath(Config{})
		assert.False(t, result.UsingFile)
		assert.False(t, result.FallbackUsed)
		assert.NoError(t, result.Close())
	})
}

func TestTraceIDs(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, TraceIDFromContext(ctx))

	generated := GetOrGenerateTraceID(ctx)
	assert.Len(t, generated, 26)

	ctx = ContextWithTraceID(ctx, generated)
	assert.Equal(t, generated, GetOrGenerateTraceID(ctx))
	assert.NotEqual(t, generated, NewTraceID())
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := ComponentLogger(NewLogger(Config{Format: FormatJSON}, &buf), "engine")
	ctx := logger.WithContext(context.Background())

	FromContext(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"engine"`)
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	PrintLogPathMessage(&buf, "/tmp/x.log")
	PrintFallbackWarning(&buf, "denied")
	assert.Contains(t, buf.String(), "/tmp/x.log")
	assert.Contains(t, buf.String(), "denied")
}
