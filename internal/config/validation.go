package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BlocklistURL == "" {
		return fmt.Errorf("blocklist_url is required")
	}
	u, err := url.Parse(c.BlocklistURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("blocklist_url must be an http(s) URL: %q", c.BlocklistURL)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"refresh_interval", c.RefreshInterval},
		{"poll_interval", c.PollInterval},
		{"kill_delay", c.KillDelay},
		{"kill_cooldown", c.KillCooldown},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	if err := c.DebugServer.Validate(); err != nil {
		return fmt.Errorf("debug_server config: %w", err)
	}
	return nil
}

// Validate validates the observation server configuration.
func (d *DebugServer) Validate() error {
	if !d.Enabled {
		return nil
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("port out of range: %d", d.Port)
	}
	if d.PortAttempts < 0 {
		return fmt.Errorf("port_attempts must not be negative")
	}
	if d.Port+d.PortAttempts > 65535 {
		return fmt.Errorf("port range %d+%d exceeds 65535", d.Port, d.PortAttempts)
	}
	if d.RateLimit < 0 || d.RateBurst < 0 {
		return fmt.Errorf("rate_limit and rate_burst must not be negative")
	}
	return nil
}
