package infra

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
)

// BrowserKiller finds and kills browser processes by the platform process
// names in the policy registry.
type BrowserKiller struct {
	pm       domain.ProcessManager
	registry *policy.Registry
	logger   *zap.Logger
}

// NewBrowserKiller creates a killer for the browsers in registry.
func NewBrowserKiller(pm domain.ProcessManager, registry *policy.Registry, logger *zap.Logger) *BrowserKiller {
	return &BrowserKiller{pm: pm, registry: registry, logger: logger}
}

// IsBrowserRunning reports whether any process of browser is alive.
func (k *BrowserKiller) IsBrowserRunning(browser domain.BrowserID) (bool, error) {
	pids, err := k.find(browser)
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

// KillBrowser kills every process of browser. It keeps going past individual
// failures and returns the PIDs it killed with the joined errors.
func (k *BrowserKiller) KillBrowser(browser domain.BrowserID) ([]int, error) {
	pids, err := k.find(browser)
	if err != nil {
		return nil, err
	}
	if len(pids) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrBrowserNotRunning, browser)
	}

	var killed []int
	var errs []error
	for _, pid := range pids {
		if err := k.pm.Kill(pid); err != nil {
			k.logger.Debug("failed to kill browser process",
				zap.String("browser", string(browser)),
				zap.Int("pid", pid),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("kill pid %d: %w", pid, err))
			continue
		}
		killed = append(killed, pid)
	}
	return killed, errors.Join(errs...)
}

func (k *BrowserKiller) find(browser domain.BrowserID) ([]int, error) {
	patterns, err := k.registry.ProcessPatterns(browser)
	if err != nil {
		return nil, err
	}

	self := k.pm.GetCurrentPID()
	seen := make(map[int]bool)
	var pids []int
	for _, pattern := range patterns {
		found, err := k.pm.FindByName(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to list processes: %w", err)
		}
		for _, pid := range found {
			if pid == self || seen[pid] {
				continue
			}
			seen[pid] = true
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

// Ensure BrowserKiller implements the kill and detection capabilities.
var (
	_ domain.BrowserKiller   = (*BrowserKiller)(nil)
	_ domain.BrowserDetector = (*BrowserKiller)(nil)
)
