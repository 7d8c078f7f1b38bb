package domain

import (
	"context"
	"time"
)

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes matching the pattern.
	FindByName(pattern string) ([]int, error)

	// Kill terminates a process by PID (SIGKILL).
	Kill(pid int) error

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// URLReader reads the active tab URL of a browser.
// Implementations are platform specific (AppleScript, PowerShell).
type URLReader interface {
	// CurrentURL returns the active URL, ErrBrowserNotRunning or ErrNoURL.
	CurrentURL(ctx context.Context, browser BrowserID) (string, error)
}

// BrowserDetector reports whether a browser has live processes.
type BrowserDetector interface {
	IsBrowserRunning(browser BrowserID) (bool, error)
}

// BrowserKiller terminates every process of a browser.
type BrowserKiller interface {
	// KillBrowser returns the PIDs it killed and the joined kill errors.
	KillBrowser(browser BrowserID) ([]int, error)
}

// BlocklistFetcher retrieves a RuleSet from a remote endpoint.
type BlocklistFetcher interface {
	Fetch(ctx context.Context) (RuleSet, error)
}

// RuleProvider hands out the current RuleSet without locking.
type RuleProvider interface {
	RuleSet() RuleSet
}

// EventPublisher accepts DebugEvents for history and fan-out.
type EventPublisher interface {
	Publish(event Event)
}

// Telemetry is the publisher plus the latest-known-status cache.
type Telemetry interface {
	EventPublisher
	UpdateBrowser(status BrowserStatus)
	UpdateBlocklist(snapshot BlocklistSnapshot)
}

// Notifier shows a warning to the person at the keyboard.
// killScheduled reports whether the browser is about to be closed.
type Notifier interface {
	NotifyWarning(url string, killScheduled bool)
}

// Ticker is a stoppable periodic channel.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer is a cancellable deferred call.
type Timer interface {
	// Stop prevents the call from firing; false if it already fired or was stopped.
	Stop() bool
}

// Clock is the scheduler abstraction used by every periodic task.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	AfterFunc(d time.Duration, f func()) Timer
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// SecretStore provides encrypted persistent storage for secrets.
type SecretStore interface {
	// GetSecret retrieves a secret by key, ErrSecretNotFound if absent.
	GetSecret(key string) (string, error)

	// SetSecret stores a secret.
	SetSecret(key, value string) error

	// Close releases resources (e.g., database connection).
	Close() error
}

// DaemonRegistry records the running daemon for CLI discovery.
type DaemonRegistry interface {
	RecordDaemon(rec DaemonRecord) error
	GetDaemon() (*DaemonRecord, error)
	ClearDaemon() error
}
