package infra

import (
	"context"
	"errors"
	"strings"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	byPattern  map[string][]int
	findErr    error
	killErrs   map[int]error
	killedPIDs []int
	selfPID    int
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		byPattern: make(map[string][]int),
		killErrs:  make(map[int]error),
		selfPID:   1,
	}
}

func (m *mockProcessManager) FindByName(pattern string) ([]int, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.byPattern[pattern], nil
}

func (m *mockProcessManager) Kill(pid int) error {
	if err := m.killErrs[pid]; err != nil {
		return err
	}
	m.killedPIDs = append(m.killedPIDs, pid)
	return nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	for _, pids := range m.byPattern {
		for _, p := range pids {
			if p == pid {
				return true
			}
		}
	}
	return false
}

func (m *mockProcessManager) GetCurrentPID() int {
	return m.selfPID
}

// fakeRunner is a test double for CommandRunner
type fakeRunner struct {
	out   string
	err   error
	calls [][]string
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.out), f.err
}

func (f *fakeRunner) lastScript() string {
	if len(f.calls) == 0 {
		return ""
	}
	call := f.calls[len(f.calls)-1]
	return strings.Join(call[1:], " ")
}

var errExit = errors.New("exit status 1")
