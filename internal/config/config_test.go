package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Heartbeat)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log-level: debug
http:
  addr: ":9090"
  heartbeat: 5s
store:
  kind: redis
  ttl: 30m
redis:
  host: cache
  port: "6380"
  db: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Heartbeat)
	assert.Equal(t, StoreRedis, cfg.Store.Kind)
	assert.Equal(t, 30*time.Minute, cfg.Store.TTL)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr())
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "http:\n  addr: \":9090\"\n")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("STORE_TTL", "10m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Store.TTL)
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	_, err := Load(writeConfig(t, "store:\n  kind: mongo\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "log-level: loud\n"))
	assert.Error(t, err)

	assert.Panics(t, func() { MustLoad(writeConfig(t, "log-level: loud\n")) })
}
