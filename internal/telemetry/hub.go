// Package telemetry holds the in-memory event history, observer fan-out and
// the observation server that exposes them.
package telemetry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

const (
	// DefaultEventHistory is how many non-log events are retained.
	DefaultEventHistory = 100
	// DefaultLogHistory is how many log entries are retained.
	DefaultLogHistory = 200

	observerBuffer = 64
	defaultSource  = "main"
	serverRunning  = "running"
)

// QueryKind selects what Query returns.
type QueryKind string

const (
	QueryStatus  QueryKind = "status"
	QueryState   QueryKind = "state"
	QueryClients QueryKind = "clients"
)

// ErrUnknownQuery is returned by Query for an unrecognised kind.
var ErrUnknownQuery = errors.New("unknown query kind")

// ClientList is the answer to QueryClients.
type ClientList struct {
	Clients []domain.ObserverInfo `json:"clients"`
	Count   int                   `json:"count"`
}

// ConnectionStatus is the payload of the confirmation sent to a new observer.
type ConnectionStatus struct {
	ClientID string `json:"clientId"`
	Status   string `json:"status"`
}

// ControlReply is the payload of a control message answer (pong).
type ControlReply struct {
	Type string `json:"type"`
}

// Observer is one subscriber of the event stream.
type Observer struct {
	id          string
	connectedAt time.Time
	ch          chan domain.Event
}

// ID returns the observer id.
func (o *Observer) ID() string { return o.id }

// ConnectedAt returns when the observer subscribed.
func (o *Observer) ConnectedAt() time.Time { return o.connectedAt }

// Events is closed when the hub drops the observer.
func (o *Observer) Events() <-chan domain.Event { return o.ch }

// Hub keeps bounded event and log history plus the latest known status, and
// fans every event out to connected observers. Delivery never blocks: an
// observer whose buffer is full is dropped.
type Hub struct {
	clock  domain.Clock
	logger *zap.Logger

	mu         sync.RWMutex
	systemInfo domain.SystemInfo
	blocklist  domain.BlocklistSnapshot
	browsers   map[domain.BrowserID]domain.BrowserStatus
	events     *Ring[domain.Event]
	logs       *Ring[domain.LogEntry]
	observers  map[string]*Observer
}

// NewHub creates a hub with the default history sizes.
// logger must not be teed back into this hub.
func NewHub(info domain.SystemInfo, clock domain.Clock, logger *zap.Logger) *Hub {
	return NewHubWithHistory(info, clock, logger, DefaultEventHistory, DefaultLogHistory)
}

// NewHubWithHistory creates a hub with custom history sizes.
func NewHubWithHistory(info domain.SystemInfo, clock domain.Clock, logger *zap.Logger, events, logs int) *Hub {
	return &Hub{
		clock:      clock,
		logger:     logger,
		systemInfo: info,
		browsers:   make(map[domain.BrowserID]domain.BrowserStatus),
		events:     NewRing[domain.Event](events),
		logs:       NewRing[domain.LogEntry](logs),
		observers:  make(map[string]*Observer),
	}
}

// SetBrowsers seeds a not-running status for each known browser.
func (h *Hub) SetBrowsers(ids []domain.BrowserID) {
	now := h.clock.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		if _, ok := h.browsers[id]; ok {
			continue
		}
		h.browsers[id] = domain.BrowserStatus{Browser: id, LastChecked: now}
	}
}

// SetAccessibility records whether browser automation is permitted.
func (h *Hub) SetAccessibility(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.systemInfo.AccessibilityEnabled = enabled
}

// UpdateBrowser replaces the latest status of one browser.
func (h *Hub) UpdateBrowser(status domain.BrowserStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.browsers[status.Browser] = status
}

// UpdateBlocklist replaces the latest blocklist snapshot.
func (h *Hub) UpdateBlocklist(snapshot domain.BlocklistSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.blocklist = snapshot
}

// Publish records event and delivers it to every observer.
func (h *Hub) Publish(event domain.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = h.clock.Now()
	}

	h.mu.Lock()
	if entry, ok := event.Data.(domain.LogEntry); ok && event.Type == domain.EventLogEntry {
		h.logs.Push(entry)
	} else {
		h.events.Push(event)
	}
	dropped := h.broadcastLocked(event)
	h.mu.Unlock()

	for _, id := range dropped {
		h.logger.Debug("dropped slow observer", zap.String("client_id", id))
	}
}

// Log records a log entry and delivers it as a log-entry event.
func (h *Hub) Log(entry domain.LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = h.clock.Now()
	}
	if entry.Source == "" {
		entry.Source = defaultSource
	}
	h.Publish(domain.Event{
		Type:      domain.EventLogEntry,
		Timestamp: entry.Timestamp,
		Data:      entry,
	})
}

func (h *Hub) broadcastLocked(event domain.Event) []string {
	var dropped []string
	for id, o := range h.observers {
		select {
		case o.ch <- event:
		default:
			h.removeLocked(id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// Subscribe registers a new observer and queues its connection confirmation.
func (h *Hub) Subscribe() *Observer {
	o := &Observer{
		id:          "client_" + uuid.NewString(),
		connectedAt: h.clock.Now(),
		ch:          make(chan domain.Event, observerBuffer),
	}
	o.ch <- domain.Event{
		Type:      domain.EventSystemStatus,
		Timestamp: o.connectedAt,
		Data:      ConnectionStatus{ClientID: o.id, Status: "connected"},
	}

	h.mu.Lock()
	h.observers[o.id] = o
	count := len(h.observers)
	h.mu.Unlock()

	h.logger.Info("debug client connected",
		zap.String("client_id", o.id),
		zap.Int("clients", count))
	return o
}

// Unsubscribe removes an observer and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	_, ok := h.observers[id]
	if ok {
		h.removeLocked(id)
	}
	h.mu.Unlock()

	if ok {
		h.logger.Info("debug client disconnected", zap.String("client_id", id))
	}
}

func (h *Hub) removeLocked(id string) {
	if o, ok := h.observers[id]; ok {
		delete(h.observers, id)
		close(o.ch)
	}
}

// Send delivers event to a single observer. It reports false if the observer
// is gone or was dropped for being full.
func (h *Hub) Send(id string, event domain.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.observers[id]
	if !ok {
		return false
	}
	select {
	case o.ch <- event:
		return true
	default:
		h.removeLocked(id)
		return false
	}
}

// Pong answers an observer's ping.
func (h *Hub) Pong(id string) bool {
	return h.Send(id, domain.Event{
		Type:      domain.EventSystemStatus,
		Timestamp: h.clock.Now(),
		Data:      ControlReply{Type: "pong"},
	})
}

// Observers lists connected observers, oldest first.
func (h *Hub) Observers() []domain.ObserverInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.observersLocked()
}

func (h *Hub) observersLocked() []domain.ObserverInfo {
	out := make([]domain.ObserverInfo, 0, len(h.observers))
	for _, o := range h.observers {
		out = append(out, domain.ObserverInfo{ID: o.id, ConnectedAt: o.connectedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// State returns a copy of the full aggregate.
func (h *Hub) State() domain.DebugState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	browsers := make(map[domain.BrowserID]domain.BrowserStatus, len(h.browsers))
	for id, st := range h.browsers {
		browsers[id] = st
	}
	return domain.DebugState{
		SystemInfo:   h.systemInfo,
		Blocklist:    h.blocklist,
		Browsers:     browsers,
		RecentEvents: h.events.Newest(),
		RecentLogs:   h.logs.Newest(),
		Clients:      h.observersLocked(),
	}
}

// Status returns the short status summary.
func (h *Hub) Status() domain.StatusSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return domain.StatusSummary{
		Server:           serverRunning,
		Timestamp:        h.clock.Now(),
		SystemInfo:       h.systemInfo,
		ConnectedClients: len(h.observers),
	}
}

// Query answers a pull-style read of the aggregate.
func (h *Hub) Query(kind QueryKind) (any, error) {
	switch kind {
	case QueryStatus:
		return h.Status(), nil
	case QueryState:
		return h.State(), nil
	case QueryClients:
		clients := h.Observers()
		return ClientList{Clients: clients, Count: len(clients)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuery, kind)
	}
}

// Close drops every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.observers {
		h.removeLocked(id)
	}
}

// Ensure Hub implements domain.Telemetry.
var _ domain.Telemetry = (*Hub)(nil)
