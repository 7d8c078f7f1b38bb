package policy

import (
	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// BrowserPolicy implements the strategy for one browser kind.
type BrowserPolicy interface {
	// ID returns the browser identifier (e.g., "chrome").
	ID() domain.BrowserID

	// Name returns human-readable name for display.
	Name() string

	// ProcessPatterns returns process names to kill on goos.
	// Patterns are matched case-insensitively.
	ProcessPatterns(goos string) []string

	// Supported reports whether the browser exists on goos.
	Supported(goos string) bool
}

// browserPolicy is a table-driven BrowserPolicy.
type browserPolicy struct {
	id        domain.BrowserID
	name      string
	processes map[string][]string
}

func (p *browserPolicy) ID() domain.BrowserID { return p.id }

func (p *browserPolicy) Name() string { return p.name }

func (p *browserPolicy) ProcessPatterns(goos string) []string {
	return append([]string(nil), p.processes[goos]...)
}

func (p *browserPolicy) Supported(goos string) bool {
	return len(p.processes[goos]) > 0
}

// NewChromePolicy returns the Google Chrome strategy.
func NewChromePolicy() BrowserPolicy {
	return &browserPolicy{
		id:   domain.BrowserChrome,
		name: "Google Chrome",
		processes: map[string][]string{
			"darwin":  {"Google Chrome"},
			"windows": {"chrome.exe"},
			"linux":   {"chrome"},
		},
	}
}

// NewEdgePolicy returns the Microsoft Edge strategy.
func NewEdgePolicy() BrowserPolicy {
	return &browserPolicy{
		id:   domain.BrowserEdge,
		name: "Microsoft Edge",
		processes: map[string][]string{
			"darwin":  {"Microsoft Edge"},
			"windows": {"msedge.exe"},
			"linux":   {"msedge"},
		},
	}
}

// NewSafariPolicy returns the Safari strategy. Safari only exists on macOS.
func NewSafariPolicy() BrowserPolicy {
	return &browserPolicy{
		id:   domain.BrowserSafari,
		name: "Safari",
		processes: map[string][]string{
			"darwin": {"Safari"},
		},
	}
}

// Ensure browserPolicy implements BrowserPolicy.
var _ BrowserPolicy = (*browserPolicy)(nil)
