// Package ingest provides the event ingestion HTTP handlers.
package ingest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/api/middleware"
	"github.com/AustinWheel/diving-duck-sub000/internal/events"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/quota"
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

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

// Handler handles event ingestion requests.
type Handler struct {
	service *events.Service
}

// NewHandler creates an ingestion handler.
func NewHandler(service *events.Service) *Handler {
	return &Handler{service: service}
}

// ingestRequest is the event ingestion payload.
type ingestRequest struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// ingestResponse acknowledges a stored event.
type ingestResponse struct {
	ID        string    `json:"id"`
	BucketID  string    `json:"bucket_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Ingest handles POST /v1/events.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, false)
}

// IngestTest handles POST /v1/events/test. Alerts fired from test
// events draw on the tenant's lifetime test allowance.
func (h *Handler) IngestTest(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, true)
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, isTest bool) {
	tenant := middleware.GetTenant(r.Context())
	if tenant == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing api key")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	var ts time.Time
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	event := models.NewEvent(tenant.ID, models.EventType(req.Type), req.Message, ts)
	event.Meta = req.Meta

	var err error
	if isTest {
		err = h.service.IngestTest(r.Context(), tenant, event)
	} else {
		err = h.service.Ingest(r.Context(), tenant, event)
	}
	if err != nil {
		var exceeded *quota.ExceededError
		switch {
		case errors.As(err, &exceeded):
			jsonError(w, http.StatusTooManyRequests, "RATE_LIMITED", exceeded.Error())
		case errors.Is(err, events.ErrInvalidEvent):
			jsonError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		default:
			log.Printf("ingest for tenant %s: %v", tenant.ID, err)
			jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	jsonCreated(w, ingestResponse{
		ID:        event.ID,
		BucketID:  event.BucketID,
		Timestamp: event.Timestamp,
	})
}
