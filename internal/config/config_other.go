//go:build !darwin

package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigPath returns <user config dir>/BrowserGuard/config.yaml.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(dir, appDirName, configFileName)
}
