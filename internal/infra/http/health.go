package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// RunStatus is the scheduler's view of its runs.
type RunStatus struct {
	Running   bool      `json:"running"`
	Runs      int       `json:"runs"`
	LastRunAt time.Time `json:"last_run_at,omitempty"`
	LastState string    `json:"last_state,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	NextRunAt time.Time `json:"next_run_at,omitempty"`
}

// StatusFunc returns the current run status.
type StatusFunc func() RunStatus

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	status StatusFunc
}

// NewHealthHandler creates a new health handler. status may be nil.
func NewHealthHandler(status StatusFunc) *HealthHandler {
	return &HealthHandler{status: status}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles the /health endpoint (liveness check).
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Run       *RunStatus `json:"run,omitempty"`
}

// Ready handles the /ready endpoint. It returns 503 while the most recent
// run has failed.
func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	resp := ReadyResponse{Status: "ready", Timestamp: time.Now().UTC()}
	code := http.StatusOK

	if h.status != nil {
		st := h.status()
		resp.Run = &st
		if st.LastError != "" {
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
