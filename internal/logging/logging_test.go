package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{"default is warn", 0, false, slog.LevelWarn},
		{"one is info", 1, false, slog.LevelInfo},
		{"two is debug", 2, false, slog.LevelDebug},
		{"quiet wins", 3, true, silent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevelFromVerbosity(tt.verbosity, tt.quiet))
		})
	}
}

func TestLevelFromString(t *testing.T) {
	level, ok := LevelFromString(" DEBUG ")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug, level)

	level, ok = LevelFromString("warning")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelWarn, level)

	_, ok = LevelFromString("loud")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("shown", "domain", "cli")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "domain=cli")
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelDebug)

	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	fallback := FromContext(context.Background())
	assert.False(t, fallback.Enabled(context.Background(), slog.LevelError))
}
