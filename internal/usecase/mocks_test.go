package usecase

import (
	"context"
	"sync"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// mockURLReader implements domain.URLReader for testing
type mockURLReader struct {
	urls  map[domain.BrowserID]string
	errs  map[domain.BrowserID]error
	panic bool
	calls int
}

func (m *mockURLReader) CurrentURL(ctx context.Context, browser domain.BrowserID) (string, error) {
	m.calls++
	if m.panic {
		panic("reader exploded")
	}
	if err := m.errs[browser]; err != nil {
		return "", err
	}
	return m.urls[browser], nil
}

// mockDetector implements domain.BrowserDetector for testing
type mockDetector struct {
	running map[domain.BrowserID]bool
	err     error
}

func (m *mockDetector) IsBrowserRunning(browser domain.BrowserID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.running[browser], nil
}

// mockKiller implements domain.BrowserKiller for testing
type mockKiller struct {
	mu     sync.Mutex
	pids   []int
	err    error
	killed []domain.BrowserID
}

func (m *mockKiller) KillBrowser(browser domain.BrowserID) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killed = append(m.killed, browser)
	return m.pids, m.err
}

func (m *mockKiller) kills() []domain.BrowserID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.BrowserID(nil), m.killed...)
}

// recordingTelemetry implements domain.Telemetry for testing
type recordingTelemetry struct {
	mu        sync.Mutex
	events    []domain.Event
	browsers  []domain.BrowserStatus
	snapshots []domain.BlocklistSnapshot
}

func (r *recordingTelemetry) Publish(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) UpdateBrowser(status domain.BrowserStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.browsers = append(r.browsers, status)
}

func (r *recordingTelemetry) UpdateBlocklist(snapshot domain.BlocklistSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshot)
}

func (r *recordingTelemetry) ofType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// mockFetcher implements domain.BlocklistFetcher for testing
type mockFetcher struct {
	rs    domain.RuleSet
	err   error
	calls int
}

func (m *mockFetcher) Fetch(ctx context.Context) (domain.RuleSet, error) {
	m.calls++
	return m.rs, m.err
}

// memorySecretStore implements domain.SecretStore for testing
type memorySecretStore struct {
	secrets map[string]string
	getErr  error
}

func newMemorySecretStore() *memorySecretStore {
	return &memorySecretStore{secrets: make(map[string]string)}
}

func (m *memorySecretStore) GetSecret(key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.secrets[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return v, nil
}

func (m *memorySecretStore) SetSecret(key, value string) error {
	m.secrets[key] = value
	return nil
}

func (m *memorySecretStore) Close() error { return nil }

// staticState implements StateProvider for testing
type staticState struct {
	state domain.DebugState
}

func (s staticState) State() domain.DebugState { return s.state }
