package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxBlocklistBytes   = 1 << 20
)

// HTTPBlocklistFetcher downloads the blocklist JSON ({"periods": [...]}).
type HTTPBlocklistFetcher struct {
	client    *http.Client
	url       string
	userAgent string
	timeout   time.Duration
}

// NewHTTPBlocklistFetcher creates a fetcher for url.
func NewHTTPBlocklistFetcher(url, version string) *HTTPBlocklistFetcher {
	return NewHTTPBlocklistFetcherWithClient(url, version, &http.Client{Timeout: defaultFetchTimeout})
}

// NewHTTPBlocklistFetcherWithClient creates a fetcher with a custom client (for testing).
func NewHTTPBlocklistFetcherWithClient(url, version string, client *http.Client) *HTTPBlocklistFetcher {
	return &HTTPBlocklistFetcher{
		client:    client,
		url:       url,
		userAgent: "browserguard/" + version,
		timeout:   defaultFetchTimeout,
	}
}

// URL returns the blocklist endpoint.
func (f *HTTPBlocklistFetcher) URL() string {
	return f.url
}

// Fetch downloads and parses the blocklist.
func (f *HTTPBlocklistFetcher) Fetch(ctx context.Context) (domain.RuleSet, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return domain.RuleSet{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.RuleSet{}, fmt.Errorf("failed to fetch blocklist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.RuleSet{}, fmt.Errorf("blocklist server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBlocklistBytes))
	if err != nil {
		return domain.RuleSet{}, fmt.Errorf("failed to read blocklist: %w", err)
	}
	return policy.ParseRuleSet(body)
}

// Ensure HTTPBlocklistFetcher implements domain.BlocklistFetcher.
var _ domain.BlocklistFetcher = (*HTTPBlocklistFetcher)(nil)
