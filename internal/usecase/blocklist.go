package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
)

// BlocklistSource keeps the live RuleSet fresh from a remote endpoint.
// Readers get the current RuleSet lock-free; a refresh swaps the whole value.
type BlocklistSource struct {
	fetcher   domain.BlocklistFetcher
	fallback  domain.RuleSet
	interval  time.Duration
	telemetry domain.Telemetry
	clock     domain.Clock
	logger    *zap.Logger

	current atomic.Pointer[domain.RuleSet]

	mu          sync.RWMutex
	status      domain.BlocklistStatus
	lastErr     *string
	fetchedOnce bool
	onRefreshed []func(at time.Time)
}

// NewBlocklistSource creates a source that serves fallback until the first
// successful refresh.
func NewBlocklistSource(
	fetcher domain.BlocklistFetcher,
	fallback domain.RuleSet,
	interval time.Duration,
	telemetry domain.Telemetry,
	clock domain.Clock,
	logger *zap.Logger,
) *BlocklistSource {
	s := &BlocklistSource{
		fetcher:   fetcher,
		fallback:  fallback,
		interval:  interval,
		telemetry: telemetry,
		clock:     clock,
		logger:    logger,
		status: domain.BlocklistStatus{
			UpdateInterval: interval.Milliseconds(),
		},
	}
	fb := fallback
	s.current.Store(&fb)
	return s
}

// OnRefreshed registers a hook called after every successful refresh.
func (s *BlocklistSource) OnRefreshed(fn func(at time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefreshed = append(s.onRefreshed, fn)
}

// RuleSet returns the live RuleSet.
func (s *BlocklistSource) RuleSet() domain.RuleSet {
	return *s.current.Load()
}

// Refresh fetches the remote blocklist once.
// On failure the last good RuleSet is retained (the fallback if there was
// none), the error is recorded in the status and also returned; the returned
// RuleSet is always the one now live.
func (s *BlocklistSource) Refresh(ctx context.Context) (domain.RuleSet, error) {
	rs, err := s.fetcher.Fetch(ctx)
	now := s.clock.Now()

	s.mu.Lock()
	if err != nil {
		msg := err.Error()
		s.lastErr = &msg
		if !s.fetchedOnce {
			fb := s.fallback
			s.current.Store(&fb)
		}
	} else {
		fresh := policy.NewRuleSet(rs.Periods)
		s.current.Store(&fresh)
		s.lastErr = nil
		s.fetchedOnce = true
		s.status.LastUpdated = now
	}
	live := *s.current.Load()
	s.status.NextUpdate = now.Add(s.interval)
	s.status.CurrentPeriod = policy.ActivePeriod(live, now)
	s.status.IsActive = s.status.CurrentPeriod != nil
	snapshot := s.snapshotLocked()
	hooks := append([]func(time.Time){}, s.onRefreshed...)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("blocklist fetch failed, keeping previous rules",
			zap.Error(err),
			zap.Bool("using_default", !s.hasFetched()),
			zap.Int("periods", len(live.Periods)))
	} else {
		s.logger.Info("blocklist updated",
			zap.Int("periods", len(live.Periods)),
			zap.Bool("active", snapshot.Status.IsActive))
		for _, fn := range hooks {
			fn(now)
		}
	}

	if s.telemetry != nil {
		s.telemetry.UpdateBlocklist(snapshot)
		s.telemetry.Publish(domain.Event{
			Type:      domain.EventBlocklistUpdate,
			Timestamp: now,
			Data:      snapshot,
		})
	}

	return live, err
}

// Snapshot returns the live RuleSet with its status and last error.
func (s *BlocklistSource) Snapshot() domain.BlocklistSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *BlocklistSource) snapshotLocked() domain.BlocklistSnapshot {
	snap := domain.BlocklistSnapshot{
		Data:   *s.current.Load(),
		Status: s.status,
	}
	if s.lastErr != nil {
		msg := *s.lastErr
		snap.Error = &msg
	}
	return snap
}

func (s *BlocklistSource) hasFetched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedOnce
}

// Ensure BlocklistSource implements domain.RuleProvider.
var _ domain.RuleProvider = (*BlocklistSource)(nil)
