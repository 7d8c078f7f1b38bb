package usecase

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// KillReasonBlockedDomain is the reason attached to browser-killed events.
const KillReasonBlockedDomain = "blocked-domain"

// ScheduleResult is what ScheduleKill decided for a detection.
type ScheduleResult string

const (
	KillScheduled       ScheduleResult = "kill-scheduled"
	KillSkippedCooldown ScheduleResult = "cooldown"
	KillSkippedPending  ScheduleResult = "kill-pending"
)

// EnforcerConfig holds enforcement timing.
type EnforcerConfig struct {
	KillDelay time.Duration // Delay between detection and kill (default 5s)
	Cooldown  time.Duration // Minimum spacing between kills of one browser (default 30s)
}

// DefaultEnforcerConfig returns default enforcement timing.
func DefaultEnforcerConfig() EnforcerConfig {
	return EnforcerConfig{
		KillDelay: 5 * time.Second,
		Cooldown:  30 * time.Second,
	}
}

// Enforcer owns the per-browser cooldown state and performs deferred kills.
// The cooldown timestamp is stamped when a kill executes; a browser with a
// kill already pending is not scheduled again.
type Enforcer struct {
	killer    domain.BrowserKiller
	publisher domain.EventPublisher
	clock     domain.Clock
	config    EnforcerConfig
	logger    *zap.Logger

	mu       sync.Mutex
	lastKill map[domain.BrowserID]time.Time
	pending  map[domain.BrowserID]domain.Timer
}

// NewEnforcer creates an enforcer.
func NewEnforcer(
	killer domain.BrowserKiller,
	publisher domain.EventPublisher,
	clock domain.Clock,
	config EnforcerConfig,
	logger *zap.Logger,
) *Enforcer {
	return &Enforcer{
		killer:    killer,
		publisher: publisher,
		clock:     clock,
		config:    config,
		logger:    logger,
		lastKill:  make(map[domain.BrowserID]time.Time),
		pending:   make(map[domain.BrowserID]domain.Timer),
	}
}

// InCooldown reports whether browser was killed within the cooldown window.
func (e *Enforcer) InCooldown(browser domain.BrowserID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inCooldownLocked(browser, e.clock.Now())
}

func (e *Enforcer) inCooldownLocked(browser domain.BrowserID, now time.Time) bool {
	last, ok := e.lastKill[browser]
	return ok && now.Sub(last) < e.config.Cooldown
}

// ScheduleKill arranges for browser to be killed after KillDelay unless it
// is cooling down or already has a kill pending.
func (e *Enforcer) ScheduleKill(browser domain.BrowserID, url string) ScheduleResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.pending[browser]; ok {
		e.logger.Debug("kill already pending",
			zap.String("browser", string(browser)))
		return KillSkippedPending
	}
	if e.inCooldownLocked(browser, e.clock.Now()) {
		e.logger.Info("kill skipped, browser in cooldown",
			zap.String("browser", string(browser)),
			zap.Time("last_kill", e.lastKill[browser]))
		return KillSkippedCooldown
	}

	e.pending[browser] = e.clock.AfterFunc(e.config.KillDelay, func() {
		e.Kill(browser, url)
	})
	e.logger.Info("kill scheduled",
		zap.String("browser", string(browser)),
		zap.String("url", url),
		zap.Duration("delay", e.config.KillDelay))
	return KillScheduled
}

// Kill terminates browser now, stamps its cooldown and emits browser-killed.
// The event is emitted whether or not the platform kill succeeded.
func (e *Enforcer) Kill(browser domain.BrowserID, url string) domain.KillOutcome {
	now := e.clock.Now()

	e.mu.Lock()
	delete(e.pending, browser)
	e.lastKill[browser] = now
	e.mu.Unlock()

	pids, err := e.killer.KillBrowser(browser)
	outcome := domain.KillOutcome{
		Browser:    browser,
		URL:        url,
		KilledPIDs: pids,
		Err:        err,
		ExecutedAt: now,
	}

	data := domain.BrowserKilledData{
		Browser:    browser,
		URL:        url,
		Reason:     KillReasonBlockedDomain,
		KilledPIDs: pids,
	}
	if err != nil {
		data.Error = err.Error()
		e.logger.Warn("failed to kill browser",
			zap.String("browser", string(browser)),
			zap.Ints("killed_pids", pids),
			zap.Error(err))
	} else {
		e.logger.Info("killed browser",
			zap.String("browser", string(browser)),
			zap.String("url", url),
			zap.Ints("killed_pids", pids))
	}

	e.publisher.Publish(domain.Event{
		Type:      domain.EventBrowserKilled,
		Timestamp: now,
		Data:      data,
	})
	return outcome
}

// LastKill returns when browser was last killed.
func (e *Enforcer) LastKill(browser domain.BrowserID) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.lastKill[browser]
	return t, ok
}

// Pending reports whether browser has a kill scheduled.
func (e *Enforcer) Pending(browser domain.BrowserID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[browser]
	return ok
}

// Stop cancels every pending kill and returns how many were cancelled.
func (e *Enforcer) Stop() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	cancelled := 0
	for browser, t := range e.pending {
		if t.Stop() {
			cancelled++
		}
		delete(e.pending, browser)
	}
	if cancelled > 0 {
		e.logger.Info("cancelled pending kills", zap.Int("count", cancelled))
	}
	return cancelled
}
