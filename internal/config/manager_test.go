package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	m := NewManager(path)

	require.NoError(t, m.Load())
	assert.Equal(t, DefaultConfig(), m.Get())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "refresh_interval: 30s")
	assert.Contains(t, string(data), "blocklist_url: http://192.168.100.193/blocklist.json")
}

func TestManager_LoadMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
blocklist_url: https://example.com/list.json
poll_interval: 1s
debug_server:
  enabled: false
`), 0600))

	m := NewManager(path)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "https://example.com/list.json", cfg.BlocklistURL)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 5*time.Second, cfg.KillDelay)
	assert.False(t, cfg.DebugServer.Enabled)
	assert.Equal(t, 9229, cfg.DebugServer.Port)
}

func TestManager_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "bad yaml", content: "poll_interval: [", wantMsg: "failed to parse config"},
		{name: "bad duration", content: "poll_interval: soon", wantMsg: "failed to parse config"},
		{name: "invalid value", content: "kill_delay: 0s", wantMsg: "kill_delay must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			err := NewManager(path).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestManager_GetReturnsCopy(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	assert.Nil(t, m.Get())
	require.NoError(t, m.Load())

	cfg := m.Get()
	cfg.BlocklistURL = "http://changed"
	assert.Equal(t, DefaultConfig().BlocklistURL, m.Get().BlocklistURL)
}

func TestManager_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)
	require.NoError(t, m.Load())

	reloaded := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, m.Update(func(cfg *Config) {
		cfg.LastReloadTime = reloaded
	}))

	fresh := NewManager(path)
	require.NoError(t, fresh.Load())
	assert.True(t, reloaded.Equal(fresh.Get().LastReloadTime))
}

func TestManager_UpdateRejectsInvalid(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, m.Load())

	err := m.Update(func(cfg *Config) { cfg.PollInterval = 0 })
	assert.ErrorContains(t, err, "poll_interval")
	assert.Equal(t, 3*time.Second, m.Get().PollInterval)
}

func TestManager_UpdateBeforeLoad(t *testing.T) {
	err := NewManager(filepath.Join(t.TempDir(), "config.yaml")).Update(func(*Config) {})
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "empty url", mutate: func(c *Config) { c.BlocklistURL = "" }, wantErr: "blocklist_url is required"},
		{name: "non-http url", mutate: func(c *Config) { c.BlocklistURL = "ftp://host/list" }, wantErr: "http(s)"},
		{name: "zero refresh", mutate: func(c *Config) { c.RefreshInterval = 0 }, wantErr: "refresh_interval"},
		{name: "negative cooldown", mutate: func(c *Config) { c.KillCooldown = -time.Second }, wantErr: "kill_cooldown"},
		{name: "port too large", mutate: func(c *Config) { c.DebugServer.Port = 70000 }, wantErr: "port out of range"},
		{name: "port range overflow", mutate: func(c *Config) { c.DebugServer.Port = 65530 }, wantErr: "exceeds 65535"},
		{name: "disabled server skips checks", mutate: func(c *Config) {
			c.DebugServer.Enabled = false
			c.DebugServer.Port = -1
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	assert.Equal(t, configFileName, filepath.Base(path))
}
