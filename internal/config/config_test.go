package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeFile(t, `
api:
  url: http://localhost:8000
  timeout: 10s
  max_retries: 1
  rate_limit: 2.5
  burst: 3
cache:
  stale_window: 90s
notes:
  path: /tmp/notes.db
user:
  username: ahmed_awad
player:
  command: mpv
  args: ["--fs"]
logging:
  level: DEBUG
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.URL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 1, cfg.API.MaxRetries)
	assert.Equal(t, 2.5, cfg.API.RateLimit)
	assert.Equal(t, 3, cfg.API.Burst)
	assert.Equal(t, 90*time.Second, cfg.Cache.StaleWindow)
	assert.Equal(t, "/tmp/notes.db", cfg.Notes.Path)
	assert.Equal(t, "ahmed_awad", cfg.User.Username)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "mpv", cfg.Player.Command)
	assert.Equal(t, []string{"--fs"}, cfg.Player.Args)
	assert.NotEmpty(t, cfg.Logging.File, "unset keys keep their defaults")
	assert.True(t, cfg.IsConfigured())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "api:\n  url: http://from-file\n")
	t.Setenv("VIDSYNC_API_URL", "http://from-env")
	t.Setenv("VIDSYNC_USER_USERNAME", "ahmed_awad_moe_shmoe")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.API.URL)
	assert.Equal(t, "ahmed_awad_moe_shmoe", cfg.User.Username)
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.IsConfigured())
	assert.Equal(t, 5*time.Minute, cfg.Cache.StaleWindow)
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestMissingExplicitFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.API.URL = "https://api.example.com"
	cfg.API.Timeout = 7 * time.Second
	cfg.Cache.StaleWindow = time.Minute
	cfg.User.Username = "guest"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.API, loaded.API)
	assert.Equal(t, cfg.Cache, loaded.Cache)
	assert.Equal(t, "guest", loaded.User.Username)
}
