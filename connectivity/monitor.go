// Package connectivity tracks the host's online/offline state from
// platform-supplied network events.
package connectivity

import (
	"log/slog"
	"sync"
)

// Status is one network-state transition as reported by the platform.
// InternetReachable is a tri-state: nil means the platform could not
// determine reachability.
type Status struct {
	Connected         bool
	InternetReachable *bool
}

// Online derives the effective online flag. Unknown reachability counts as
// reachable so an inconclusive signal never blocks fetching.
func (s Status) Online() bool {
	return s.Connected && (s.InternetReachable == nil || *s.InternetReachable)
}

// Callback receives every status transition.
type Callback func(Status)

// Monitor exposes a single online/offline boolean, updated by Apply. It is
// purely event-driven; if the platform never reports, the monitor stays
// online. That default is deliberate: failing open means a missing signal
// degrades to extra fetch attempts rather than a permanently offline app.
type Monitor struct {
	mu          sync.RWMutex
	online      bool
	nextID      int
	subscribers map[int]Callback
}

// NewMonitor creates a monitor that reports online until told otherwise.
func NewMonitor() *Monitor {
	return &Monitor{
		online:      true,
		subscribers: make(map[int]Callback),
	}
}

// IsOnline returns the current derived online flag.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Apply records a platform network event and notifies subscribers.
func (m *Monitor) Apply(status Status) {
	m.mu.Lock()
	previous := m.online
	m.online = status.Online()
	callbacks := make([]Callback, 0, len(m.subscribers))
	for _, cb := range m.subscribers {
		callbacks = append(callbacks, cb)
	}
	m.mu.Unlock()

	if previous != status.Online() {
		slog.Info("connectivity changed", "online", status.Online(), "connected", status.Connected)
	}

	for _, cb := range callbacks {
		cb(status)
	}
}

// Subscribe registers a callback invoked on every transition and returns an
// unsubscribe function.
func (m *Monitor) Subscribe(cb Callback) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = cb
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}
