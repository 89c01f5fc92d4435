package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string                    { return c.name }
func (c stubChecker) Check(ctx context.Context) error { return c.err }

func TestHealthReportsVersion(t *testing.T) {
	h := NewHandler()

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version == "" {
		t.Errorf("response = %+v, want ok with a version", resp)
	}
}

func TestReadyAggregatesCheckers(t *testing.T) {
	h := NewHandler()
	h.RegisterChecker(stubChecker{name: "sqlite"})
	h.RegisterChecker(stubChecker{name: "clickhouse", err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "not_ready" {
		t.Errorf("status = %q, want not_ready", resp.Status)
	}
	if !strings.HasPrefix(resp.Checks["sqlite"], "ok") {
		t.Errorf("sqlite check = %q, want ok", resp.Checks["sqlite"])
	}
	if !strings.Contains(resp.Checks["clickhouse"], "connection refused") {
		t.Errorf("clickhouse check = %q, want the checker error", resp.Checks["clickhouse"])
	}
}

func TestReadyWithNoCheckersIsReady(t *testing.T) {
	h := NewHandler()

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
