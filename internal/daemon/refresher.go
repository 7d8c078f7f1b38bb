package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// BlocklistRefresher refreshes the live RuleSet once per call.
type BlocklistRefresher interface {
	Refresh(ctx context.Context) (domain.RuleSet, error)
}

// RefresherConfig holds blocklist refresh configuration.
type RefresherConfig struct {
	Interval time.Duration // How often the blocklist is fetched (default 30s)
}

// DefaultRefresherConfig returns default blocklist refresh configuration.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval: 30 * time.Second,
	}
}

// Refresher keeps the blocklist fresh on its own timer, independent of the
// enforcement loop. Trigger forces an immediate refresh.
type Refresher struct {
	config  RefresherConfig
	source  BlocklistRefresher
	clock   domain.Clock
	logger  *zap.Logger
	trigger chan struct{}
}

// NewRefresher creates a new blocklist refresher.
func NewRefresher(
	config RefresherConfig,
	source BlocklistRefresher,
	clock domain.Clock,
	logger *zap.Logger,
) *Refresher {
	return &Refresher{
		config:  config,
		source:  source,
		clock:   clock,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
}

// Run refreshes once eagerly and then every Interval.
// This blocks until context is canceled.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("blocklist refresher started", zap.Duration("interval", r.config.Interval))

	r.refresh(ctx, "startup")

	ticker := r.clock.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("blocklist refresher stopping")
			return ctx.Err()

		case <-ticker.C():
			r.refresh(ctx, "timer")

		case <-r.trigger:
			r.refresh(ctx, "on-demand")
		}
	}
}

// Trigger requests a refresh. Requests made while one is queued coalesce.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Refresher) refresh(ctx context.Context, cause string) {
	// Failures are already recorded in the blocklist status.
	if _, err := r.source.Refresh(ctx); err != nil {
		r.logger.Debug("blocklist refresh failed", zap.String("cause", cause), zap.Error(err))
	}
}
