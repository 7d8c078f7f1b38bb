// Package domain contains core business entities and interfaces.
// This is the innermost layer - no external dependencies.
package domain

import (
	"errors"
	"time"
)

// BrowserID identifies a supported browser kind.
type BrowserID string

const (
	BrowserChrome BrowserID = "chrome"
	BrowserEdge   BrowserID = "edge"
	BrowserSafari BrowserID = "safari"
)

// Sentinel errors shared across layers.
var (
	ErrBrowserNotRunning    = errors.New("browser not running")
	ErrNoURL                = errors.New("no active url")
	ErrUnsupportedBrowser   = errors.New("browser not supported on this platform")
	ErrAutomationDenied     = errors.New("automation permission denied")
	ErrSecretNotFound       = errors.New("secret not found")
	ErrAdminPasswordNotSet  = errors.New("admin password not set")
	ErrInvalidAdminPassword = errors.New("invalid admin password")
	ErrDaemonNotRecorded    = errors.New("daemon not recorded")
)

// BlockPeriod is a daily time window with the domains blocked during it.
// Start and End are zero-padded "HH:MM" strings compared lexicographically,
// so a period with Start > End never matches (no wraparound across midnight).
type BlockPeriod struct {
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Domains []string `json:"domains"`
}

// RuleSet is an immutable snapshot of blocking periods.
// A refresh replaces the whole value; holders must not mutate it.
type RuleSet struct {
	Periods []BlockPeriod `json:"periods"`
}

// Observation is a single tick's read of a browser.
type Observation struct {
	Browser    BrowserID
	Timestamp  time.Time
	Running    bool
	CurrentURL string // empty when the browser reported no usable URL
}

// HasURL reports whether the observation carries an http(s) URL.
func (o Observation) HasURL() bool {
	return o.CurrentURL != ""
}

// MatchedRule is the period/domain pair that produced a block.
type MatchedRule struct {
	Period BlockPeriod `json:"period"`
	Domain string      `json:"domain"`
}

// Decision is the result of evaluating a URL against a RuleSet.
// It is derived purely from its inputs and has no side effects.
type Decision struct {
	Browser      BrowserID    `json:"browser,omitempty"`
	URL          string       `json:"url"`
	CurrentTime  string       `json:"currentTime"`
	Blocked      bool         `json:"isBlocked"`
	MatchedRule  *MatchedRule `json:"matchedRule"`
	ActivePeriod *BlockPeriod `json:"activePeriod"`
	Reason       string       `json:"reason"`
}

// MatchedDomain returns the domain that caused the block, or "".
func (d Decision) MatchedDomain() string {
	if d.MatchedRule == nil {
		return ""
	}
	return d.MatchedRule.Domain
}

// MatchedPeriod returns the period that caused the block, or nil.
func (d Decision) MatchedPeriod() *BlockPeriod {
	if d.MatchedRule == nil {
		return nil
	}
	p := d.MatchedRule.Period
	return &p
}

// Simulation describes what enforcement would have done for a URL.
type Simulation struct {
	Browser       BrowserID `json:"browser"`
	Action        string    `json:"action"` // "would-block" or "would-allow"
	WarningShown  bool      `json:"warningShown"`
	ProcessKilled bool      `json:"processKilled"`
}

// SimulationResult is a Decision plus the simulated action.
type SimulationResult struct {
	Decision
	Simulation Simulation `json:"simulation"`
}

// KillOutcome captures the result of a single browser kill attempt.
type KillOutcome struct {
	Browser    BrowserID
	URL        string
	KilledPIDs []int
	Err        error
	ExecutedAt time.Time
}

// EventType tags a DebugEvent.
type EventType string

const (
	EventBlocklistUpdate EventType = "blocklist-update"
	EventURLCheck        EventType = "url-check"
	EventDomainBlocked   EventType = "domain-blocked"
	EventBrowserKilled   EventType = "browser-killed"
	EventLogEntry        EventType = "log-entry"
	EventSystemStatus    EventType = "system-status"
)

// Event is the envelope published to observers: {type, timestamp, data}.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// URLCheckData is the payload of a url-check event.
type URLCheckData struct {
	Decision
	Running bool   `json:"running"`
	Source  string `json:"source"`
}

// DomainBlockedData is the payload of a domain-blocked event.
type DomainBlockedData struct {
	Decision
	Action     string      `json:"action"`
	Source     string      `json:"source"`
	Simulation *Simulation `json:"simulation,omitempty"`
}

// BrowserKilledData is the payload of a browser-killed event.
type BrowserKilledData struct {
	Browser    BrowserID `json:"browser"`
	URL        string    `json:"url"`
	Reason     string    `json:"reason"`
	KilledPIDs []int     `json:"killedPids"`
	Error      string    `json:"error,omitempty"`
}

// LogLevel is the severity of a LogEntry.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogEntry is one line of the in-memory log history.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	Source    string         `json:"source"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// BrowserStatus is the latest known state of one browser.
type BrowserStatus struct {
	Browser     BrowserID `json:"browser"`
	IsRunning   bool      `json:"isRunning"`
	CurrentURL  *string   `json:"currentUrl"`
	LastChecked time.Time `json:"lastChecked"`
}

// BlocklistStatus describes refresh bookkeeping for the live RuleSet.
type BlocklistStatus struct {
	LastUpdated    time.Time    `json:"lastUpdated"`
	NextUpdate     time.Time    `json:"nextUpdate"`
	UpdateInterval int64        `json:"updateInterval"` // milliseconds
	IsActive       bool         `json:"isActive"`
	CurrentPeriod  *BlockPeriod `json:"currentPeriod"`
}

// BlocklistSnapshot is the live RuleSet with its status and last error.
type BlocklistSnapshot struct {
	Data   RuleSet         `json:"data"`
	Status BlocklistStatus `json:"status"`
	Error  *string         `json:"error"`
}

// SystemInfo describes the host process.
type SystemInfo struct {
	Platform             string `json:"platform"`
	Version              string `json:"version"`
	AccessibilityEnabled bool   `json:"accessibilityEnabled"`
	LogPath              string `json:"logPath"`
}

// ObserverInfo is the serializable view of a connected observer.
type ObserverInfo struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// DebugState is the full aggregate exposed by the query surface.
type DebugState struct {
	SystemInfo   SystemInfo                  `json:"systemInfo"`
	Blocklist    BlocklistSnapshot           `json:"blocklist"`
	Browsers     map[BrowserID]BrowserStatus `json:"browsers"`
	RecentEvents []Event                     `json:"recentEvents"`
	RecentLogs   []LogEntry                  `json:"recentLogs"`
	Clients      []ObserverInfo              `json:"clients"`
}

// StatusSummary is the short status answered by the query surface.
type StatusSummary struct {
	Server           string     `json:"server"`
	Timestamp        time.Time  `json:"timestamp"`
	SystemInfo       SystemInfo `json:"systemInfo"`
	ConnectedClients int        `json:"connectedClients"`
}

// DaemonRecord is persisted so CLI commands can find the running daemon.
type DaemonRecord struct {
	PID        int
	DebugPort  int
	StartedAt  time.Time
	AppVersion string
}
