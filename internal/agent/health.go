package agent

import (
	"sync"
	"sync/atomic"
	"time"

	"rmf-simulator/internal/engine"
)

type SinkStatus struct {
	OK                  bool      `json:"ok"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccessAt       time.Time `json:"last_success_at,omitzero"`
	LastDurationMs      int64     `json:"last_duration_ms"`
}

type HealthStatus struct {
	running     atomic.Bool
	lastTickAt  atomic.Int64
	ticks       atomic.Int64
	lastSamples atomic.Int64
	lastDropped atomic.Int64

	mu    sync.Mutex
	sinks map[string]SinkStatus
}

func NewHealthStatus() *HealthStatus {
	return &HealthStatus{sinks: make(map[string]SinkStatus)}
}

func (h *HealthStatus) SetRunning(ok bool) {
	h.running.Store(ok)
}

// RegisterSinks makes sinks visible in snapshots before their first write.
func (h *HealthStatus) RegisterSinks(names []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range names {
		if _, ok := h.sinks[n]; !ok {
			h.sinks[n] = SinkStatus{}
		}
	}
}

func (h *HealthStatus) ObserveTick(res engine.BatchResult) {
	h.lastTickAt.Store(res.Tick.UnixNano())
	h.ticks.Add(1)
	h.lastSamples.Store(int64(res.Samples))
	h.lastDropped.Store(int64(len(res.DroppedLPARs)))

	h.mu.Lock()
	defer h.mu.Unlock()
	for name, r := range res.Sinks {
		st := h.sinks[name]
		st.LastDurationMs = r.Duration.Milliseconds()
		if r.OK() {
			st.OK = true
			st.LastError = ""
			st.ConsecutiveFailures = 0
			st.LastSuccessAt = res.Tick.UTC()
		} else {
			st.OK = false
			st.LastError = r.Err.Error()
			st.ConsecutiveFailures++
		}
		h.sinks[name] = st
	}
}

// Healthy reports whether the scheduler is running and a tick completed within maxAge.
func (h *HealthStatus) Healthy(now time.Time, maxAge time.Duration) bool {
	if !h.running.Load() {
		return false
	}
	v := h.lastTickAt.Load()
	if v == 0 {
		return false
	}
	return now.Sub(time.Unix(0, v)) <= maxAge
}

func (h *HealthStatus) Sinks() map[string]SinkStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]SinkStatus, len(h.sinks))
	for k, v := range h.sinks {
		out[k] = v
	}
	return out
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"running":      h.running.Load(),
		"ticks":        h.ticks.Load(),
		"last_samples": h.lastSamples.Load(),
		"last_dropped": h.lastDropped.Load(),
		"sinks":        h.Sinks(),
	}
	if v := h.lastTickAt.Load(); v > 0 {
		out["last_tick_at"] = time.Unix(0, v).UTC()
	}
	return out
}
