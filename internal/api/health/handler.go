// Package health provides health check endpoints for the API.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/pkg/config"
)

// checkTimeout bounds one readiness pass across all dependencies.
const checkTimeout = 5 * time.Second

// Checker defines the interface for health checkers.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler manages health check endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewHandler creates a new health handler.
func NewHandler() *Handler {
	return &Handler{
		checkers: make([]Checker, 0),
	}
}

// RegisterChecker adds a dependency checker.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health returns basic health status.
// This endpoint is for simple "is the process running" checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, HealthResponse{Status: "ok", Version: config.ShortVersionString()})
}

// Live returns liveness probe status.
// Returns 200 if the process is running.
// Use for Kubernetes liveness probes.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, HealthResponse{Status: "live", Version: config.ShortVersionString()})
}

// Ready returns readiness probe status.
// Checks every registered dependency (the control-plane database, the
// event store, the live stream) and returns 200 only if all pass.
// Use for Kubernetes readiness probes.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	results := make(map[string]string)
	allHealthy := true

	for _, checker := range checkers {
		start := time.Now()
		err := checker.Check(ctx)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			results[checker.Name()] = fmt.Sprintf("%v (after %s)", err, elapsed)
			allHealthy = false
		} else {
			results[checker.Name()] = fmt.Sprintf("ok (%s)", elapsed)
		}
	}

	resp := HealthResponse{
		Status:  "ready",
		Version: config.ShortVersionString(),
		Checks:  results,
	}
	status := http.StatusOK
	if !allHealthy {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeResponse(w, status, resp)
}

func writeResponse(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
