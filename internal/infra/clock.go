package infra

import (
	"time"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// RealClock implements domain.Clock on top of the time package.
type RealClock struct{}

// NewRealClock returns the wall clock.
func NewRealClock() domain.Clock {
	return RealClock{}
}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) domain.Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (RealClock) AfterFunc(d time.Duration, f func()) domain.Timer {
	return time.AfterFunc(d, f)
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

var _ domain.Clock = RealClock{}
