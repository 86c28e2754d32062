package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/amosWeiskopf/corpuscrawl/internal/config"
)

func TestNewConsoleLogger(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel), "debug should be enabled")
}

func TestNewJSONLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.log")
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", OutputPath: path})
	require.NoError(t, err)

	logger.Info("crawl started")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"crawl started"`)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel), "debug should be disabled at info level")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
