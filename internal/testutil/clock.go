// Package testutil provides shared test doubles.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// FakeClock is a virtual domain.Clock. Time only moves on Advance, which
// fires due timers synchronously and delivers due ticks without blocking.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

// NewFakeClock creates a clock frozen at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) NewTicker(d time.Duration) domain.Ticker {
	if d <= 0 {
		panic("testutil: non-positive ticker period")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, period: d, next: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) domain.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Tickers returns the number of live tickers.
func (c *FakeClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// PendingTimers returns the number of timers that have not fired or been stopped.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves time forward by d, firing everything that falls due on the way.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		timer, ticker, when := c.nextDueLocked(target)
		if timer == nil && ticker == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = when
		if timer != nil {
			c.removeTimerLocked(timer)
			c.mu.Unlock()
			timer.f()
			continue
		}
		ticker.next = ticker.next.Add(ticker.period)
		c.mu.Unlock()
		select {
		case ticker.ch <- when:
		default:
		}
	}
}

func (c *FakeClock) nextDueLocked(target time.Time) (*fakeTimer, *fakeTicker, time.Time) {
	sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })

	var timer *fakeTimer
	var ticker *fakeTicker
	var when time.Time
	if len(c.timers) > 0 && !c.timers[0].at.After(target) {
		timer = c.timers[0]
		when = timer.at
	}
	for _, t := range c.tickers {
		if t.next.After(target) {
			continue
		}
		if (timer == nil && ticker == nil) || t.next.Before(when) {
			timer = nil
			ticker = t
			when = t.next
		}
	}
	return timer, ticker, when
}

func (c *FakeClock) removeTimerLocked(t *fakeTimer) bool {
	for i, existing := range c.timers {
		if existing == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock *FakeClock
	at    time.Time
	f     func()
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.removeTimerLocked(t)
}

type fakeTicker struct {
	clock  *FakeClock
	period time.Duration
	next   time.Time
	ch     chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	for i, existing := range t.clock.tickers {
		if existing == t {
			t.clock.tickers = append(t.clock.tickers[:i], t.clock.tickers[i+1:]...)
			return
		}
	}
}

var _ domain.Clock = (*FakeClock)(nil)
