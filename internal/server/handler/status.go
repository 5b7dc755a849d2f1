package handler

import (
	"net/http"
	"time"
)

// StatusSnapshot is the watcher state returned by GET /api/v1/status.
type StatusSnapshot struct {
	StartedAt     time.Time      `json:"started_at"`
	Addresses     int            `json:"addresses"`
	WindowMinutes int            `json:"window_minutes"`
	Cycles        int64          `json:"cycles"`
	LastCycle     *CycleSnapshot `json:"last_cycle,omitempty"`
}

// CycleSnapshot summarises the most recent polling cycle.
type CycleSnapshot struct {
	ID              string    `json:"id"`
	At              time.Time `json:"at"`
	DurationMS      int64     `json:"duration_ms"`
	Fetched         int       `json:"fetched"`
	Kept            int       `json:"kept"`
	APICalls        int       `json:"api_calls"`
	FailedAddresses int       `json:"failed_addresses"`
	Error           string    `json:"error,omitempty"`
}

// StatusHandler serves the watcher status for operators.
type StatusHandler struct {
	source func() StatusSnapshot
}

// NewStatusHandler creates a StatusHandler reading from the given source.
func NewStatusHandler(source func() StatusSnapshot) *StatusHandler {
	return &StatusHandler{source: source}
}

// GetStatus responds with the current watcher state.
// GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source())
}
