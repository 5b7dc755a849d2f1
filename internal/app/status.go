package app

import (
	"sync"
	"time"

	"github.com/alanyoungcy/polywatch/internal/server/handler"
)

// statusTracker accumulates cycle outcomes for the ops status endpoint.
type statusTracker struct {
	mu        sync.Mutex
	startedAt time.Time
	addresses int
	window    int
	cycles    int64
	last      *handler.CycleSnapshot
}

func newStatusTracker(addresses, windowMinutes int) *statusTracker {
	return &statusTracker{
		startedAt: time.Now().UTC(),
		addresses: addresses,
		window:    windowMinutes,
	}
}

// record stores the outcome of a finished cycle.
func (s *statusTracker) record(snap handler.CycleSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	s.last = &snap
}

// snapshot returns the current watcher state for the status handler.
func (s *statusTracker) snapshot() handler.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := handler.StatusSnapshot{
		StartedAt:     s.startedAt,
		Addresses:     s.addresses,
		WindowMinutes: s.window,
		Cycles:        s.cycles,
	}
	if s.last != nil {
		last := *s.last
		out.LastCycle = &last
	}
	return out
}
