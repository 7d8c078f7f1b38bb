package usecase

import (
	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
)

// Event sources attached to manual inspection events.
const (
	SourceManualTest = "manual-test"
	SourceSimulation = "simulation"
	SourcePoll       = "poll"
)

// Simulated actions.
const (
	ActionWouldBlock = "would-block"
	ActionWouldAllow = "would-allow"
)

// StateProvider returns the aggregate debug state.
type StateProvider interface {
	State() domain.DebugState
}

// Inspector answers the inbound control operations: rule and state queries,
// URL tests and block simulations. It never kills anything.
type Inspector struct {
	rules     domain.RuleProvider
	publisher domain.EventPublisher
	state     StateProvider
	clock     domain.Clock
}

// NewInspector creates an inspector.
func NewInspector(
	rules domain.RuleProvider,
	publisher domain.EventPublisher,
	state StateProvider,
	clock domain.Clock,
) *Inspector {
	return &Inspector{
		rules:     rules,
		publisher: publisher,
		state:     state,
		clock:     clock,
	}
}

// RuleSet returns the live RuleSet.
func (i *Inspector) RuleSet() domain.RuleSet {
	return i.rules.RuleSet()
}

// DebugState returns the aggregate debug state.
func (i *Inspector) DebugState() domain.DebugState {
	return i.state.State()
}

// TestURL evaluates url against the live rules and publishes a url-check event.
func (i *Inspector) TestURL(url string) domain.Decision {
	now := i.clock.Now()
	decision := policy.Evaluate(i.rules.RuleSet(), url, now)

	i.publisher.Publish(domain.Event{
		Type:      domain.EventURLCheck,
		Timestamp: now,
		Data: domain.URLCheckData{
			Decision: decision,
			Source:   SourceManualTest,
		},
	})
	return decision
}

// SimulateBlock reports what enforcement would do for url in browser and
// publishes a domain-blocked event tagged as a simulation.
func (i *Inspector) SimulateBlock(url string, browser domain.BrowserID) domain.SimulationResult {
	decision := i.TestURL(url)
	decision.Browser = browser

	action := ActionWouldAllow
	if decision.Blocked {
		action = ActionWouldBlock
	}
	result := domain.SimulationResult{
		Decision: decision,
		Simulation: domain.Simulation{
			Browser:       browser,
			Action:        action,
			WarningShown:  decision.Blocked,
			ProcessKilled: false,
		},
	}

	sim := result.Simulation
	i.publisher.Publish(domain.Event{
		Type:      domain.EventDomainBlocked,
		Timestamp: i.clock.Now(),
		Data: domain.DomainBlockedData{
			Decision:   decision,
			Action:     action,
			Source:     SourceSimulation,
			Simulation: &sim,
		},
	})
	return result
}
