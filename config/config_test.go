package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, 5*time.Second, cfg.Game.CleanupDelay)
	assert.Equal(t, "none", cfg.Archive.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  http_address: ":9000"
game:
  cleanup_delay: 2s
archive:
  driver: redis
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("GAMESERVER_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddress)
	assert.Equal(t, 2*time.Second, cfg.Game.CleanupDelay)
	assert.Equal(t, "redis", cfg.Archive.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":8081", cfg.Server.RPCAddress)
}
