package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sawpanic/mlt/internal/experiment"
	"github.com/sawpanic/mlt/internal/persistence"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                   `json:"status"` // "healthy" or "degraded"
	Timestamp time.Time                `json:"timestamp"`
	Uptime    string                   `json:"uptime"`
	Running   bool                     `json:"running"`
	Database  *persistence.HealthCheck `json:"database,omitempty"`
}

// RunStatus is the /runs/latest body
type RunStatus struct {
	Running bool                  `json:"running"`
	Error   string                `json:"error,omitempty"`
	Result  *experiment.RunResult `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value(requestIDKey).(string)
	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Running:   running,
	}
	status := http.StatusOK

	if s.health != nil {
		check := s.health.Health(r.Context())
		resp.Database = &check
		if !check.Healthy {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := RunStatus{Running: s.running, Error: s.lastErr, Result: s.latest}
	s.mu.Unlock()

	if resp.Result == nil && resp.Error == "" && !resp.Running {
		writeError(w, r, http.StatusNotFound, "no_runs", "No run has been started yet")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	if s.run == nil {
		writeError(w, r, http.StatusNotImplemented, "runs_disabled", "This server cannot start runs")
		return
	}
	if !s.tryStart() {
		writeError(w, r, http.StatusConflict, "run_in_progress", "A run is already in progress")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, r, http.StatusNotFound, "endpoint_not_found", "The requested endpoint does not exist")
}
