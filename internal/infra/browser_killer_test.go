package infra

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
)

func TestBrowserKiller_KillBrowser(t *testing.T) {
	pm := newMockProcessManager()
	pm.byPattern["Google Chrome"] = []int{300, 100, 200, 100}
	killer := NewBrowserKiller(pm, policy.NewRegistry("darwin"), zap.NewNop())

	pids, err := killer.KillBrowser(domain.BrowserChrome)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 200, 300}, pids)
	assert.Equal(t, []int{100, 200, 300}, pm.killedPIDs)
}

func TestBrowserKiller_SkipsSelf(t *testing.T) {
	pm := newMockProcessManager()
	pm.selfPID = 42
	pm.byPattern["chrome"] = []int{42, 43}
	killer := NewBrowserKiller(pm, policy.NewRegistry("linux"), zap.NewNop())

	pids, err := killer.KillBrowser(domain.BrowserChrome)
	require.NoError(t, err)
	assert.Equal(t, []int{43}, pids)
}

func TestBrowserKiller_PartialFailure(t *testing.T) {
	pm := newMockProcessManager()
	pm.byPattern["msedge.exe"] = []int{10, 11}
	pm.killErrs[10] = errors.New("access denied")
	killer := NewBrowserKiller(pm, policy.NewRegistry("windows"), zap.NewNop())

	pids, err := killer.KillBrowser(domain.BrowserEdge)
	assert.Equal(t, []int{11}, pids)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kill pid 10")
}

func TestBrowserKiller_NotRunning(t *testing.T) {
	killer := NewBrowserKiller(newMockProcessManager(), policy.NewRegistry("darwin"), zap.NewNop())

	_, err := killer.KillBrowser(domain.BrowserSafari)
	assert.ErrorIs(t, err, domain.ErrBrowserNotRunning)

	running, err := killer.IsBrowserRunning(domain.BrowserSafari)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestBrowserKiller_Unsupported(t *testing.T) {
	killer := NewBrowserKiller(newMockProcessManager(), policy.NewRegistry("windows"), zap.NewNop())

	_, err := killer.KillBrowser(domain.BrowserSafari)
	assert.ErrorIs(t, err, domain.ErrUnsupportedBrowser)
}

func TestBrowserKiller_IsBrowserRunning(t *testing.T) {
	pm := newMockProcessManager()
	pm.byPattern["Safari"] = []int{7}
	killer := NewBrowserKiller(pm, policy.NewRegistry("darwin"), zap.NewNop())

	running, err := killer.IsBrowserRunning(domain.BrowserSafari)
	require.NoError(t, err)
	assert.True(t, running)

	pm.findErr = errors.New("ps failed")
	_, err = killer.IsBrowserRunning(domain.BrowserSafari)
	assert.Error(t, err)
}
