package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
upstream:
  base_url: "http://localhost:8080"
  token: "secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "data/gateway.db", cfg.Database.Path)
	assert.True(t, cfg.Poller.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Poller.Interval)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
upstream:
  base_url: "http://localhost:8080"
  token: "secret"
poller:
  interval: 10s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Poller.Interval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "env-token")
	path := writeConfig(t, `
upstream:
  base_url: "http://localhost:8080"
  token: "file-token"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Upstream.Token)
}

func TestLoad_RequiresUpstreamSettings(t *testing.T) {
	path := writeConfig(t, `
upstream:
  base_url: ""
  token: ""
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_PollerInterval(t *testing.T) {
	cfg := &Config{
		Upstream: UpstreamConfig{BaseURL: "http://x", Token: "t"},
		Poller:   PollerConfig{Enabled: true, Interval: 0},
	}
	assert.Error(t, cfg.Validate())

	cfg.Poller.Enabled = false
	assert.NoError(t, cfg.Validate())
}
