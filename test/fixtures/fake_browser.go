// Package fixtures provides fake browsers and blocklist servers for integration tests.
package fixtures

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// FakeBrowsers stands in for the OS scripting and process capabilities.
// A browser is running when it has a URL set.
type FakeBrowsers struct {
	mu     sync.Mutex
	urls   map[domain.BrowserID]string
	killed []domain.BrowserID
	nextID int
}

// NewFakeBrowsers creates fake browsers with nothing running.
func NewFakeBrowsers() *FakeBrowsers {
	return &FakeBrowsers{urls: make(map[domain.BrowserID]string), nextID: 1000}
}

// Open makes browser show url.
func (f *FakeBrowsers) Open(browser domain.BrowserID, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls[browser] = url
}

// Killed returns the browsers killed so far, in order.
func (f *FakeBrowsers) Killed() []domain.BrowserID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.BrowserID(nil), f.killed...)
}

func (f *FakeBrowsers) CurrentURL(ctx context.Context, browser domain.BrowserID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	url, ok := f.urls[browser]
	if !ok {
		return "", domain.ErrBrowserNotRunning
	}
	return url, nil
}

func (f *FakeBrowsers) IsBrowserRunning(browser domain.BrowserID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.urls[browser]
	return ok, nil
}

func (f *FakeBrowsers) KillBrowser(browser domain.BrowserID) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.urls[browser]; !ok {
		return nil, domain.ErrBrowserNotRunning
	}
	delete(f.urls, browser)
	f.killed = append(f.killed, browser)
	f.nextID++
	return []int{f.nextID}, nil
}

// NewBlocklistServer serves periods as the blocklist JSON document.
func NewBlocklistServer(periods []domain.BlockPeriod) *httptest.Server {
	body, _ := json.Marshal(map[string]any{"periods": periods})
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
}

var (
	_ domain.URLReader       = (*FakeBrowsers)(nil)
	_ domain.BrowserDetector = (*FakeBrowsers)(nil)
	_ domain.BrowserKiller   = (*FakeBrowsers)(nil)
)
