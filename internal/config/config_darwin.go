//go:build darwin

package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigPath returns ~/Library/Application Support/BrowserGuard/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, "Library", "Application Support", appDirName, configFileName)
}
