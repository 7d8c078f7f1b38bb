// Package daemon implements the enforcement loop and the blocklist refresher.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
	"github.com/eliteGoblin/focusd/browser_guard/internal/usecase"
)

const (
	reasonNotRunning = "Browser not running"
	reasonNoURL      = "No active URL"
)

// Prober reads one browser per call.
type Prober interface {
	Probe(ctx context.Context, browser domain.BrowserID) domain.Observation
}

// KillScheduler decides whether a detection turns into a deferred kill.
type KillScheduler interface {
	ScheduleKill(browser domain.BrowserID, url string) usecase.ScheduleResult
	Stop() int
}

// WatcherConfig holds enforcement loop configuration.
type WatcherConfig struct {
	PollInterval time.Duration // How often every browser is probed (default 3s)
}

// DefaultWatcherConfig returns default enforcement loop configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval: 3 * time.Second,
	}
}

// Watcher is the enforcement loop. Each tick probes the known browsers in
// order, evaluates their URL against the live rules and hands blocked
// detections to the enforcer. A tick stops at the first blocked browser.
type Watcher struct {
	config    WatcherConfig
	browsers  []domain.BrowserID
	prober    Prober
	rules     domain.RuleProvider
	enforcer  KillScheduler
	telemetry domain.Telemetry
	notifier  domain.Notifier
	clock     domain.Clock
	logger    *zap.Logger
}

// NewWatcher creates a new enforcement loop over browsers, probed in order.
func NewWatcher(
	config WatcherConfig,
	browsers []domain.BrowserID,
	prober Prober,
	rules domain.RuleProvider,
	enforcer KillScheduler,
	telemetry domain.Telemetry,
	notifier domain.Notifier,
	clock domain.Clock,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		config:    config,
		browsers:  append([]domain.BrowserID(nil), browsers...),
		prober:    prober,
		rules:     rules,
		enforcer:  enforcer,
		telemetry: telemetry,
		notifier:  notifier,
		clock:     clock,
		logger:    logger,
	}
}

// Run ticks immediately and then every PollInterval.
// This blocks until context is canceled; pending kills are cancelled on exit.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("enforcement loop started",
		zap.Duration("interval", w.config.PollInterval),
		zap.Int("browsers", len(w.browsers)))

	w.Tick(ctx)

	ticker := w.clock.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cancelled := w.enforcer.Stop()
			w.logger.Info("enforcement loop stopping", zap.Int("cancelled_kills", cancelled))
			return ctx.Err()

		case <-ticker.C():
			w.Tick(ctx)
		}
	}
}

// Tick runs one pass over the browsers. It returns the decision that stopped
// the pass, or nil when nothing was blocked.
func (w *Watcher) Tick(ctx context.Context) *domain.Decision {
	for _, browser := range w.browsers {
		if ctx.Err() != nil {
			return nil
		}
		if decision, blocked := w.check(ctx, browser); blocked {
			return &decision
		}
	}
	return nil
}

// check handles one browser. A panic anywhere in it is logged and treated
// as not blocked so the rest of the tick continues.
func (w *Watcher) check(ctx context.Context, browser domain.BrowserID) (decision domain.Decision, blocked bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("browser check panicked",
				zap.String("browser", string(browser)),
				zap.Any("panic", r))
			decision, blocked = domain.Decision{}, false
		}
	}()

	obs := w.prober.Probe(ctx, browser)
	w.telemetry.UpdateBrowser(browserStatus(obs))

	decision = w.evaluate(obs)
	w.telemetry.Publish(domain.Event{
		Type:      domain.EventURLCheck,
		Timestamp: obs.Timestamp,
		Data: domain.URLCheckData{
			Decision: decision,
			Running:  obs.Running,
			Source:   usecase.SourcePoll,
		},
	})
	if !decision.Blocked {
		return decision, false
	}

	w.logger.Warn("blocked domain detected",
		zap.String("browser", string(browser)),
		zap.String("url", obs.CurrentURL),
		zap.String("domain", decision.MatchedDomain()))

	result := w.enforcer.ScheduleKill(browser, obs.CurrentURL)
	if w.notifier != nil {
		w.notifier.NotifyWarning(obs.CurrentURL, result == usecase.KillScheduled)
	}

	w.telemetry.Publish(domain.Event{
		Type:      domain.EventDomainBlocked,
		Timestamp: obs.Timestamp,
		Data: domain.DomainBlockedData{
			Decision: decision,
			Action:   string(result),
			Source:   usecase.SourcePoll,
		},
	})
	return decision, true
}

func (w *Watcher) evaluate(obs domain.Observation) domain.Decision {
	if !obs.HasURL() {
		reason := reasonNoURL
		if !obs.Running {
			reason = reasonNotRunning
		}
		return domain.Decision{
			Browser:     obs.Browser,
			CurrentTime: policy.TimeOfDay(obs.Timestamp),
			Reason:      reason,
		}
	}
	decision := policy.Evaluate(w.rules.RuleSet(), obs.CurrentURL, obs.Timestamp)
	decision.Browser = obs.Browser
	return decision
}

func browserStatus(obs domain.Observation) domain.BrowserStatus {
	st := domain.BrowserStatus{
		Browser:     obs.Browser,
		IsRunning:   obs.Running,
		LastChecked: obs.Timestamp,
	}
	if obs.HasURL() {
		url := obs.CurrentURL
		st.CurrentURL = &url
	}
	return st
}
