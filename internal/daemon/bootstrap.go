package daemon

import (
	"fmt"
	"os"
	"os/exec"
)

// RunCommand is the hidden CLI command that runs the daemon in the foreground.
const RunCommand = "run"

// StartDetached spawns "<self> run <args...>" detached from the terminal and
// returns the child PID. The child keeps running after the parent exits.
func StartDetached(args ...string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve executable: %w", err)
	}
	return StartDetachedWithPath(executable, args...)
}

// StartDetachedWithPath is StartDetached with an explicit binary path.
func StartDetachedWithPath(executable string, args ...string) (int, error) {
	cmd := detachedCommand(executable, args...)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release daemon process: %w", err)
	}
	return pid, nil
}

func detachedCommand(executable string, args ...string) *exec.Cmd {
	cmd := exec.Command(executable, append([]string{RunCommand}, args...)...)
	cmd.SysProcAttr = detachAttr()

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd
}
