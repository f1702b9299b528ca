package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewIsNopOutsideDevMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kairo.log")

	logger, closeFn, err := New(Config{File: path})
	require.NoError(t, err)
	logger.Info("hidden")
	closeFn()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no file is created when diagnostics are off")
}

func TestNewWritesToFileInDevMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kairo.log")

	logger, closeFn, err := New(Config{DevMode: true, Level: "info", Encoding: "json", File: path})
	require.NoError(t, err)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	WithRequestID(ctx, logger).Info("loaded board", zap.Int("tasks", 3))
	logger.Debug("below level")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id":"req-42"`)
	assert.Contains(t, string(data), `"tasks":3`)
	assert.NotContains(t, string(data), "below level")
}

func TestWithRequestIDWithoutID(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithRequestID(context.Background(), base))
	assert.NotNil(t, WithRequestID(context.Background(), nil))
	assert.Empty(t, RequestID(context.Background()))
}
