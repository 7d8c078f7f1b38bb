package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents the privilege the daemon runs with.
type ExecMode string

const (
	// ExecModeUser runs as the logged-in user.
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs as root.
	ExecModeSystem ExecMode = "system"
)

const (
	// DefaultLogPath is where the daemon writes its log.
	DefaultLogPath = "/var/tmp/browserguard.log"
	// DefaultErrorLogPath receives zap's internal errors.
	DefaultErrorLogPath = "/var/tmp/browserguard.error.log"
)

// ExecModeConfig holds the runtime paths for an execution mode.
type ExecModeConfig struct {
	Mode         ExecMode
	DataDir      string // encrypted store and its key
	LogPath      string
	ErrorLogPath string
	IsRoot       bool
}

// DetectExecMode determines the execution mode from the effective UID.
func DetectExecMode() *ExecModeConfig {
	return execModeFor(os.Geteuid() == 0, GetRealUserHome())
}

func execModeFor(isRoot bool, home string) *ExecModeConfig {
	if isRoot {
		return &ExecModeConfig{
			Mode:         ExecModeSystem,
			DataDir:      "/var/lib/browserguard",
			LogPath:      DefaultLogPath,
			ErrorLogPath: DefaultErrorLogPath,
			IsRoot:       true,
		}
	}
	return &ExecModeConfig{
		Mode:         ExecModeUser,
		DataDir:      filepath.Join(home, ".browserguard"),
		LogPath:      DefaultLogPath,
		ErrorLogPath: DefaultErrorLogPath,
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root)"
	case ExecModeUser:
		return "user (non-root)"
	default:
		return "unknown"
	}
}

// GetRealUserHome returns the invoking user's home directory, even under sudo.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
