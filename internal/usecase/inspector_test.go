package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/testutil"
)

type fixedRules domain.RuleSet

func (f fixedRules) RuleSet() domain.RuleSet { return domain.RuleSet(f) }

func newTestInspector(hhmm string) (*Inspector, *recordingTelemetry) {
	now, _ := time.ParseInLocation("2006-01-02 15:04", "2024-01-01 "+hhmm, time.Local)
	rules := fixedRules{Periods: []domain.BlockPeriod{
		{Start: "09:00", End: "12:00", Domains: []string{"facebook.com"}},
	}}
	tel := &recordingTelemetry{}
	state := staticState{state: domain.DebugState{SystemInfo: domain.SystemInfo{Platform: "darwin"}}}
	return NewInspector(rules, tel, state, testutil.NewFakeClock(now)), tel
}

func TestInspector_TestURL(t *testing.T) {
	insp, tel := newTestInspector("10:00")

	d := insp.TestURL("https://facebook.com/")
	assert.True(t, d.Blocked)
	assert.Equal(t, "10:00", d.CurrentTime)

	checks := tel.ofType(domain.EventURLCheck)
	require.Len(t, checks, 1)
	data := checks[0].Data.(domain.URLCheckData)
	assert.Equal(t, SourceManualTest, data.Source)
	assert.True(t, data.Blocked)
	assert.Empty(t, tel.ofType(domain.EventBrowserKilled))
}

func TestInspector_SimulateBlock(t *testing.T) {
	insp, tel := newTestInspector("10:00")

	res := insp.SimulateBlock("https://facebook.com/", domain.BrowserChrome)
	assert.True(t, res.Blocked)
	assert.Equal(t, domain.BrowserChrome, res.Browser)
	assert.Equal(t, ActionWouldBlock, res.Simulation.Action)
	assert.True(t, res.Simulation.WarningShown)
	assert.False(t, res.Simulation.ProcessKilled)

	blocked := tel.ofType(domain.EventDomainBlocked)
	require.Len(t, blocked, 1)
	data := blocked[0].Data.(domain.DomainBlockedData)
	assert.Equal(t, SourceSimulation, data.Source)
	require.NotNil(t, data.Simulation)
	assert.Equal(t, ActionWouldBlock, data.Simulation.Action)
}

func TestInspector_SimulateAllow(t *testing.T) {
	insp, _ := newTestInspector("13:00")

	res := insp.SimulateBlock("https://facebook.com/", domain.BrowserSafari)
	assert.False(t, res.Blocked)
	assert.Equal(t, ActionWouldAllow, res.Simulation.Action)
	assert.False(t, res.Simulation.WarningShown)
}

func TestInspector_Queries(t *testing.T) {
	insp, _ := newTestInspector("10:00")
	assert.Len(t, insp.RuleSet().Periods, 1)
	assert.Equal(t, "darwin", insp.DebugState().SystemInfo.Platform)
}
