package monitoring

import (
	"net/http"
	"sync"
	"time"
)

const maxRecentErrors = 10

// HealthChecker tracks liveness of the polling loop
type HealthChecker struct {
	mu          sync.RWMutex
	startedAt   time.Time
	staleAfter  time.Duration
	lastRound   time.Time
	lastSignal  time.Time
	lastSymbol  string
	isConnected bool
	errors      []string
	now         func() time.Time
}

// HealthStatus is the JSON body of the health endpoint
type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastRound   time.Time `json:"last_round"`
	LastSignal  time.Time `json:"last_signal,omitempty"`
	LastSymbol  string    `json:"last_symbol,omitempty"`
	IsConnected bool      `json:"is_connected"`
	Uptime      string    `json:"uptime"`
	Errors      []string  `json:"errors,omitempty"`
}

// NewHealthChecker reports degraded once no round completed within
// staleAfter
func NewHealthChecker(staleAfter time.Duration) *HealthChecker {
	return newHealthChecker(staleAfter, time.Now)
}

func newHealthChecker(staleAfter time.Duration, now func() time.Time) *HealthChecker {
	return &HealthChecker{
		startedAt:  now(),
		staleAfter: staleAfter,
		errors:     make([]string, 0),
		now:        now,
	}
}

// RecordRound marks a finished round. A nil error clears the recent error
// list and marks the data source connected.
func (h *HealthChecker) RecordRound(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastRound = h.now()
	if err == nil {
		h.isConnected = true
		h.errors = h.errors[:0]
		return
	}
	h.isConnected = false
	h.errors = append(h.errors, err.Error())
	if len(h.errors) > maxRecentErrors {
		h.errors = h.errors[len(h.errors)-maxRecentErrors:]
	}
}

// RecordSignal notes the latest emitted signal
func (h *HealthChecker) RecordSignal(symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSignal = h.now()
	h.lastSymbol = symbol
}

// Status returns the current status and the HTTP code to serve it with
func (h *HealthChecker) Status() (HealthStatus, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status, code := "healthy", http.StatusOK
	if !h.isConnected || (h.staleAfter > 0 && now.Sub(h.lastRound) > h.staleAfter) {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	if len(h.errors) > 0 {
		status, code = "unhealthy", http.StatusInternalServerError
	}

	return HealthStatus{
		Status:      status,
		Timestamp:   now,
		LastRound:   h.lastRound,
		LastSignal:  h.lastSignal,
		LastSymbol:  h.lastSymbol,
		IsConnected: h.isConnected,
		Uptime:      now.Sub(h.startedAt).Round(time.Second).String(),
		Errors:      append([]string(nil), h.errors...),
	}, code
}
