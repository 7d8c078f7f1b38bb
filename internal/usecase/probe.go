// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// BrowserProbe turns the platform URL capability into observations.
// It never fails: every error degrades to a negative observation.
type BrowserProbe struct {
	reader   domain.URLReader
	detector domain.BrowserDetector
	clock    domain.Clock
	logger   *zap.Logger

	onDenied func(domain.BrowserID)
}

// NewBrowserProbe creates a probe. detector may be nil, in which case the
// URL reader alone decides whether the browser is running.
func NewBrowserProbe(
	reader domain.URLReader,
	detector domain.BrowserDetector,
	clock domain.Clock,
	logger *zap.Logger,
) *BrowserProbe {
	return &BrowserProbe{
		reader:   reader,
		detector: detector,
		clock:    clock,
		logger:   logger,
	}
}

// OnAutomationDenied registers a hook called when the OS refuses automation
// of a browser (macOS Automation/Accessibility permission).
func (p *BrowserProbe) OnAutomationDenied(fn func(domain.BrowserID)) {
	p.onDenied = fn
}

// Probe reads one browser.
func (p *BrowserProbe) Probe(ctx context.Context, browser domain.BrowserID) (obs domain.Observation) {
	obs = domain.Observation{Browser: browser, Timestamp: p.clock.Now()}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("browser probe panicked",
				zap.String("browser", string(browser)),
				zap.Any("panic", r))
			obs = domain.Observation{Browser: browser, Timestamp: obs.Timestamp}
		}
	}()

	if p.detector != nil {
		running, err := p.detector.IsBrowserRunning(browser)
		if err != nil {
			p.logger.Debug("browser detection failed",
				zap.String("browser", string(browser)),
				zap.Error(err))
			return obs
		}
		if !running {
			return obs
		}
	}

	url, err := p.reader.CurrentURL(ctx, browser)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoURL):
		obs.Running = true
		return obs
	case errors.Is(err, domain.ErrAutomationDenied):
		p.logger.Warn("browser automation permission required",
			zap.String("browser", string(browser)),
			zap.Error(err))
		if p.onDenied != nil {
			p.onDenied(browser)
		}
		return obs
	default:
		p.logger.Debug("failed to read browser url",
			zap.String("browser", string(browser)),
			zap.Error(err))
		return obs
	}

	obs.Running = true
	url = strings.TrimSpace(url)
	if isWebURL(url) {
		obs.CurrentURL = url
	}
	return obs
}

// isWebURL accepts only http and https URLs.
func isWebURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
