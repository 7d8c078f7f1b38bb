package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
	"github.com/eliteGoblin/focusd/browser_guard/internal/testutil"
)

func remoteRules() domain.RuleSet {
	return domain.RuleSet{Periods: []domain.BlockPeriod{
		{Start: "08:00", End: "12:00", Domains: []string{"reddit.com"}},
	}}
}

func newTestSource(f *mockFetcher) (*BlocklistSource, *testutil.FakeClock, *recordingTelemetry) {
	clock := testutil.NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local))
	tel := &recordingTelemetry{}
	src := NewBlocklistSource(f, policy.DefaultRuleSet(policy.DefaultSeedDomain), 30*time.Second, tel, clock, zap.NewNop())
	return src, clock, tel
}

func TestBlocklistSource_ServesFallbackBeforeRefresh(t *testing.T) {
	src, _, _ := newTestSource(&mockFetcher{})
	assert.Equal(t, policy.DefaultRuleSet(policy.DefaultSeedDomain), src.RuleSet())
}

func TestBlocklistSource_RefreshSuccess(t *testing.T) {
	src, clock, tel := newTestSource(&mockFetcher{rs: remoteRules()})
	var hooked time.Time
	src.OnRefreshed(func(at time.Time) { hooked = at })

	rs, err := src.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remoteRules(), rs)
	assert.Equal(t, remoteRules(), src.RuleSet())
	assert.Equal(t, clock.Now(), hooked)

	snap := src.Snapshot()
	assert.Nil(t, snap.Error)
	assert.Equal(t, clock.Now(), snap.Status.LastUpdated)
	assert.Equal(t, clock.Now().Add(30*time.Second), snap.Status.NextUpdate)
	assert.Equal(t, int64(30000), snap.Status.UpdateInterval)
	assert.True(t, snap.Status.IsActive)
	require.NotNil(t, snap.Status.CurrentPeriod)
	assert.Equal(t, "08:00", snap.Status.CurrentPeriod.Start)

	require.Len(t, tel.snapshots, 1)
	assert.Len(t, tel.ofType(domain.EventBlocklistUpdate), 1)
}

func TestBlocklistSource_NetworkErrorUsesDefault(t *testing.T) {
	src, _, tel := newTestSource(&mockFetcher{err: errors.New("connection refused")})

	rs, err := src.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, policy.DefaultRuleSet(policy.DefaultSeedDomain), rs)

	snap := src.Snapshot()
	require.NotNil(t, snap.Error)
	assert.Contains(t, *snap.Error, "connection refused")
	assert.Len(t, tel.ofType(domain.EventBlocklistUpdate), 1)
}

func TestBlocklistSource_ErrorKeepsLastGood(t *testing.T) {
	fetcher := &mockFetcher{rs: remoteRules()}
	src, clock, _ := newTestSource(fetcher)

	_, err := src.Refresh(context.Background())
	require.NoError(t, err)
	updated := src.Snapshot().Status.LastUpdated

	clock.Advance(30 * time.Second)
	fetcher.err = errors.New("timeout")
	rs, err := src.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, remoteRules(), rs)
	assert.Equal(t, updated, src.Snapshot().Status.LastUpdated)

	clock.Advance(30 * time.Second)
	fetcher.err = nil
	_, err = src.Refresh(context.Background())
	require.NoError(t, err)
	assert.Nil(t, src.Snapshot().Error, "error clears on the next success")
}

func TestBlocklistSource_RefreshCopiesRules(t *testing.T) {
	fetched := remoteRules()
	src, _, _ := newTestSource(&mockFetcher{rs: fetched})
	_, err := src.Refresh(context.Background())
	require.NoError(t, err)

	fetched.Periods[0].Domains[0] = "mutated.com"
	assert.Equal(t, "reddit.com", src.RuleSet().Periods[0].Domains[0])
}

// bodyFetcher parses a fixed response body the way the HTTP fetcher does.
type bodyFetcher struct {
	body string
}

func (f *bodyFetcher) Fetch(ctx context.Context) (domain.RuleSet, error) {
	return policy.ParseRuleSet([]byte(f.body))
}

func TestBlocklistSource_NonRuleSetBodyKeepsDefault(t *testing.T) {
	for _, body := range []string{`null`, `{}`, `{"error":"maintenance"}`} {
		t.Run(body, func(t *testing.T) {
			clock := testutil.NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local))
			src := NewBlocklistSource(&bodyFetcher{body: body}, policy.DefaultRuleSet(""),
				30*time.Second, &recordingTelemetry{}, clock, zap.NewNop())
			refreshed := false
			src.OnRefreshed(func(time.Time) { refreshed = true })

			_, err := src.Refresh(context.Background())
			require.Error(t, err)
			assert.False(t, refreshed)

			snap := src.Snapshot()
			require.NotNil(t, snap.Error)
			assert.Contains(t, *snap.Error, `missing "periods"`)
			assert.True(t, policy.Evaluate(src.RuleSet(), "https://facebook.com/feed", clock.Now()).Blocked)
		})
	}
}
