package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Inbox.PageSize)
	assert.Equal(t, 5, cfg.Inbox.AutoRefreshSec)
	assert.Equal(t, 300, cfg.Inbox.HealthCheckSec)
	assert.Equal(t, 3, cfg.Inbox.PaymentPollSec)
	assert.Equal(t, "https://lnemail.net/api", cfg.Proxy.Upstream)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Proxy.AllowedOrigins)
	assert.False(t, cfg.Session.RequireHealthyAPI)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `api:
  base_url: http://example.test/api/lnemail/
inbox:
  page_size: 0
  auto_refresh_sec: 10
session:
  require_healthy_api: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://example.test/api/lnemail", cfg.API.BaseURL)
	assert.Equal(t, 15, cfg.Inbox.PageSize, "non-positive page size falls back")
	assert.Equal(t, 10, cfg.Inbox.AutoRefreshSec)
	assert.True(t, cfg.Session.RequireHealthyAPI)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LNEMAIL_PROXY_UPSTREAM", "http://upstream.test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Proxy.Port)
	assert.Equal(t, "http://upstream.test", cfg.Proxy.Upstream)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultAppConfig()
	cfg.Inbox.PageSize = 25
	cfg.Downloads.Dir = "/tmp/dl"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.Inbox.PageSize)
	assert.Equal(t, "/tmp/dl", loaded.Downloads.Dir)
}
