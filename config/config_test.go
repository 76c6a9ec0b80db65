package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "morphy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /var/lib/morphy\nlisten: \":8080\"\ncache_size: 64\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/morphy", cfg.DataDir)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 64, cfg.CacheSize)
	assert.Equal(t, "info", cfg.LogLevel)

	t.Setenv("MORPHY_LISTEN", ":9000")
	t.Setenv("MORPHY_LOG_LEVEL", "debug")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	t.Setenv("MORPHY_CACHE_SIZE", "lots")
	_, err = Load("")
	assert.Error(t, err)
}

func TestConfigureLogging(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	require.NoError(t, ConfigureLoggingTo(&buf, "warn"))
	slog.Info("hidden")
	slog.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown k=1")

	SetLogLevel(slog.LevelDebug)
	slog.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")

	assert.Error(t, ConfigureLoggingTo(&buf, "chatty"))
}
