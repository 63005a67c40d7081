package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/dealscore/internal/config"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8090, cfg.HTTPPort)
}

func TestLoad_ParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
database:
  dsn: "postgres://localhost/dealscore"
  enabled: true
  max_open_conns: 20
redis:
  addr: "localhost:6379"
log_level: "debug"
http_port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/dealscore", cfg.Database.DSN)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9000, cfg.HTTPPort)
}

func TestLoad_EnvOverridesFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: \"info\"\n"), 0o600))

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PG_DSN", "postgres://env/dealscore")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "postgres://env/dealscore", cfg.Database.DSN)
	assert.True(t, cfg.Database.Enabled)
}
