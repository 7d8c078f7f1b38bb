// Package config handles BrowserGuard configuration loading, saving, and validation.
package config

import "time"

const (
	appDirName     = "BrowserGuard"
	configFileName = "config.yaml"
)

// Config represents the daemon configuration file.
type Config struct {
	BlocklistURL    string        `yaml:"blocklist_url"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	KillDelay       time.Duration `yaml:"kill_delay"`
	KillCooldown    time.Duration `yaml:"kill_cooldown"`
	SeedDomain      string        `yaml:"seed_domain"`
	LastReloadTime  time.Time     `yaml:"last_reload_time,omitempty"`
	LogPath         string        `yaml:"log_path,omitempty"`
	DataDir         string        `yaml:"data_dir,omitempty"` // empty: derived from the execution mode
	DebugServer     DebugServer   `yaml:"debug_server"`
}

// DebugServer configures the observation server.
type DebugServer struct {
	Enabled      bool    `yaml:"enabled"`
	Host         string  `yaml:"host"`
	Port         int     `yaml:"port"`
	PortAttempts int     `yaml:"port_attempts"`
	RateLimit    float64 `yaml:"rate_limit"` // requests per second per IP, 0 disables
	RateBurst    int     `yaml:"rate_burst"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BlocklistURL:    "http://192.168.100.193/blocklist.json",
		RefreshInterval: 30 * time.Second,
		PollInterval:    3 * time.Second,
		KillDelay:       5 * time.Second,
		KillCooldown:    30 * time.Second,
		SeedDomain:      "facebook.com",
		DebugServer: DebugServer{
			Enabled:      true,
			Host:         "127.0.0.1",
			Port:         9229,
			PortAttempts: 10,
			RateLimit:    20,
			RateBurst:    40,
		},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
