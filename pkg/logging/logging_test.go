package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadOptions(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, _, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	logger, sync, err := New(Options{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelInfo))
	sync()
}

func TestLoggerWritesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger, _, err := New(Options{Core: core})
	require.NoError(t, err)

	logger.With("run_id", "r1").Info("data loaded", "rows", 4)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "data loaded", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "r1", fields["run_id"])
	assert.EqualValues(t, 4, fields["rows"])
}

func TestSecretsAreRedacted(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger, _, err := New(Options{Core: core})
	require.NoError(t, err)

	logger.With("password", "hunter2").Warn("connect", "api_key", "abc", slog.Group("neo4j", "password", "x", "uri", "bolt://db"))

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["password"])
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	group, ok := fields["neo4j"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", group["password"])
	assert.Equal(t, "bolt://db", group["uri"])
}
