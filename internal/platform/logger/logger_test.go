// Package logger_test contains tests for the logger package
package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/enhance-api/internal/config"
	"github.com/phrazzld/enhance-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantLevel slog.Level
		wantOK    bool
	}{
		{"debug", "debug", slog.LevelDebug, true},
		{"upper_case", "WARN", slog.LevelWarn, true},
		{"info", "info", slog.LevelInfo, true},
		{"error", "error", slog.LevelError, true},
		{"unknown_defaults_to_info", "verbose", slog.LevelInfo, false},
		{"empty_defaults_to_info", "", slog.LevelInfo, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			level, ok := logger.ParseLevel(tc.input)
			assert.Equal(t, tc.wantLevel, level)
			assert.Equal(t, tc.wantOK, ok)
		})
	}
}

// TestNew_FiltersByLevel verifies that the logger honours the configured level
// and emits JSON lines.
func TestNew_FiltersByLevel(t *testing.T) {
	t.Parallel()

	buf := &logger.TestLogBuffer{}
	log := logger.New(config.ServerConfig{LogLevel: "warn", Port: 8080}, buf)

	log.Info("should be dropped")
	log.Warn("should be kept", "job_id", "abc")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "should be kept", entries[0]["msg"])
	assert.Equal(t, "WARN", entries[0]["level"])
	logger.AssertLogField(t, buf, "job_id", "abc")
}

// TestSetup_SetsDefault verifies that Setup installs the logger as the slog default.
func TestSetup_SetsDefault(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	l, err := logger.Setup(config.ServerConfig{LogLevel: "debug", Port: 8080})

	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Same(t, l, slog.Default())
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	log, buf := logger.GetTestLogger(t)

	t.Run("falls_back_without_logger", func(t *testing.T) {
		fallback, _ := logger.GetTestLogger(t)
		assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	})

	t.Run("returns_stored_logger_with_request_id", func(t *testing.T) {
		ctx := logger.WithLogger(context.Background(), log)
		ctx = logger.WithRequestID(ctx, "req-123")

		assert.Equal(t, "req-123", logger.RequestID(ctx))
		logger.FromContext(ctx).Info("hello")

		logger.AssertLogContains(t, buf, "hello")
		logger.AssertLogField(t, buf, "request_id", "req-123")
	})
}
