// Package dashboard provides the read-side HTTP handlers: event
// timelines, message summaries, and alert history.
package dashboard

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AustinWheel/diving-duck-sub000/internal/aggregate"
	"github.com/AustinWheel/diving-duck-sub000/internal/api/middleware"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

// Response helpers (local to avoid import cycle)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

// Handler serves dashboard reads for one authenticated tenant.
type Handler struct {
	store      storage.Storage
	aggregator *aggregate.Aggregator
}

// NewHandler creates a dashboard handler.
func NewHandler(store storage.Storage, aggregator *aggregate.Aggregator) *Handler {
	return &Handler{store: store, aggregator: aggregator}
}

// recentAlertsLimit caps the alerts embedded in the metrics payload;
// the paged /alerts endpoint serves anything beyond it.
const recentAlertsLimit = 50

// timelineResponse is the GET /v1/dashboard/metrics payload.
type timelineResponse struct {
	Start    time.Time                `json:"start"`
	End      time.Time                `json:"end"`
	StepMins int                      `json:"step_minutes"`
	Points   []aggregate.StepPoint    `json:"points"`
	Messages []aggregate.MessageCount `json:"messages"`
	Alerts   []*models.Alert          `json:"alerts"`
}

// alertsResponse is the GET /v1/dashboard/alerts payload.
type alertsResponse struct {
	Items  []*models.Alert `json:"items"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// Metrics handles GET /v1/dashboard/metrics. Query parameters:
// start, end (RFC 3339, default last 24h), step (minutes, default 60),
// types (comma-separated event types), message (exact match filter for
// the message aggregates).
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenant(r.Context())
	if tenant == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing token")
		return
	}

	now := time.Now().UTC()
	start, end, err := parseRange(r, now.Add(-24*time.Hour), now)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	step := 60
	if raw := r.URL.Query().Get("step"); raw != "" {
		step, err = strconv.Atoi(raw)
		if err != nil || !aggregate.ValidStep(step) {
			jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid step")
			return
		}
	}

	types, err := parseTypes(r.URL.Query().Get("types"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	points, err := h.aggregator.Timeline(r.Context(), tenant, start, end, step, types)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	messages, err := h.aggregator.Messages(r.Context(), tenant, start, end, types)
	if err != nil {
		log.Printf("aggregate messages for tenant %s: %v", tenant.ID, err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	if msg := r.URL.Query().Get("message"); msg != "" {
		filtered := messages[:0]
		for _, m := range messages {
			if m.Message == msg {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}

	alerts, err := h.store.Alerts().ListSince(r.Context(), tenant.ID, start, recentAlertsLimit)
	if err != nil {
		log.Printf("list recent alerts for tenant %s: %v", tenant.ID, err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	jsonOK(w, timelineResponse{
		Start:    start,
		End:      end,
		StepMins: step,
		Points:   points,
		Messages: messages,
		Alerts:   alerts,
	})
}

// Alerts handles GET /v1/dashboard/alerts with limit/offset paging.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenant(r.Context())
	if tenant == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing token")
		return
	}

	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	alerts, total, err := h.store.Alerts().List(r.Context(), tenant.ID, limit, offset)
	if err != nil {
		log.Printf("list alerts for tenant %s: %v", tenant.ID, err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	jsonOK(w, alertsResponse{
		Items:  alerts,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Acknowledge handles POST /v1/dashboard/alerts/{id}/ack. Only alerts
// in a terminal dispatch state can be acknowledged.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenant(r.Context())
	if tenant == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing token")
		return
	}

	id := chi.URLParam(r, "id")
	alert, err := h.store.Alerts().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get alert %s: %v", id, err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	if alert == nil || alert.TenantID != tenant.ID {
		jsonError(w, http.StatusNotFound, "NOT_FOUND", "Alert not found")
		return
	}
	if !alert.IsTerminal() {
		jsonError(w, http.StatusConflict, "CONFLICT", "Alert is not in a terminal state")
		return
	}

	if err := h.store.Alerts().Acknowledge(r.Context(), id, tenant.ID, time.Now().UTC()); err != nil {
		log.Printf("acknowledge alert %s: %v", id, err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseRange(r *http.Request, defaultStart, defaultEnd time.Time) (time.Time, time.Time, error) {
	start, end := defaultStart, defaultEnd
	var err error
	if raw := r.URL.Query().Get("start"); raw != "" {
		if start, err = time.Parse(time.RFC3339, raw); err != nil {
			return start, end, err
		}
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		if end, err = time.Parse(time.RFC3339, raw); err != nil {
			return start, end, err
		}
	}
	return start, end, nil
}

func parseTypes(raw string) ([]models.EventType, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	types := make([]models.EventType, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if !models.ValidEventType(p) {
			return nil, fmt.Errorf("invalid event type: %q", p)
		}
		types = append(types, models.EventType(p))
	}
	return types, nil
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
