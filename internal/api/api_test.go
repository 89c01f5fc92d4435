package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AustinWheel/diving-duck-sub000/internal/aggregate"
	"github.com/AustinWheel/diving-duck-sub000/internal/alerting"
	"github.com/AustinWheel/diving-duck-sub000/internal/api/auth"
	"github.com/AustinWheel/diving-duck-sub000/internal/events"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/notifier"
	"github.com/AustinWheel/diving-duck-sub000/internal/quota"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

type nullSender struct{}

func (nullSender) Send(ctx context.Context, destination, message string) error { return nil }

type apiEnv struct {
	router http.Handler
	store  *storage.SQLiteStorage
	tenant *models.Tenant
	apiKey string // plaintext ingestion key
	jwt    *auth.JWTService
	secret []byte
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "warden.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tenant := models.NewTenant("acme")
	tenant.ID = uuid.New().String()
	if err := store.Tenants().Create(context.Background(), tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	key, plain, err := models.NewAPIKey(tenant.ID, "ci")
	if err != nil {
		t.Fatalf("new api key: %v", err)
	}
	if err := store.APIKeys().Create(context.Background(), key); err != nil {
		t.Fatalf("create api key: %v", err)
	}

	mem := storage.NewMemoryEventStorage()
	quotaSvc := quota.NewService(store)
	dispatcher := notifier.NewDispatcher(nullSender{}, store.Alerts(), quotaSvc)
	eval := alerting.NewEvaluator(store, mem.Events(), quotaSvc, dispatcher)
	svc := events.NewService(mem.Events(), quotaSvc, eval, nil)
	aggregator := aggregate.NewAggregator(mem.Events())

	secret := []byte("test-jwt-secret")
	server, err := New(&Config{
		Address:   ":0",
		JWTSecret: secret,
	}, store, svc, aggregator)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	return &apiEnv{
		router: server.setupRouter(),
		store:  store,
		tenant: tenant,
		apiKey: plain,
		jwt:    auth.NewJWTService(secret, 24*time.Hour),
		secret: secret,
	}
}

func (env *apiEnv) postEvents(t *testing.T, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestIngestRequiresAPIKey(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.postEvents(t, "", `{"type":"log","message":"hello"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	rec = env.postEvents(t, "wd_bogus_key", `{"type":"log","message":"hello"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus key status = %d, want 401", rec.Code)
	}
}

func TestIngestStoresEvent(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.postEvents(t, env.apiKey, `{"type":"error","message":"db down"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			ID       string `json:"id"`
			BucketID string `json:"bucket_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.ID == "" || resp.Data.BucketID == "" {
		t.Errorf("response missing ids: %+v", resp.Data)
	}

	usage, err := env.store.Usage().Get(context.Background(), env.tenant.ID, time.Now())
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.DailyEvents != 1 {
		t.Errorf("daily events = %d, want 1", usage.DailyEvents)
	}
}

func TestIngestRejectsInvalidType(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.postEvents(t, env.apiKey, `{"type":"nonsense","message":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestQuotaReturns429(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	limit := env.tenant.Tier.Limits().DailyEvents
	for i := int64(0); i < limit; i++ {
		if err := env.store.Usage().IncrementDailyEvents(ctx, env.tenant.ID, time.Now()); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	rec := env.postEvents(t, env.apiKey, `{"type":"log","message":"over"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestRevokedKeyRejected(t *testing.T) {
	env := newAPIEnv(t)

	keyID, _, err := models.ParseAPIKey(env.apiKey)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	if err := env.store.APIKeys().Revoke(context.Background(), keyID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	rec := env.postEvents(t, env.apiKey, `{"type":"log","message":"x"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 after revocation", rec.Code)
	}
}

func TestDashboardMetricsRequiresJWT(t *testing.T) {
	env := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/metrics", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestDashboardMetricsReturnsTimeline(t *testing.T) {
	env := newAPIEnv(t)

	// Ingest a few events first.
	for i := 0; i < 3; i++ {
		rec := env.postEvents(t, env.apiKey, `{"type":"error","message":"boom"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("ingest %d: status %d", i, rec.Code)
		}
	}

	token, err := env.jwt.GenerateToken(env.tenant.ID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/metrics?step=60", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Points []struct {
				Total int `json:"total"`
			} `json:"points"`
			Messages []struct {
				Message string `json:"message"`
				Count   int    `json:"count"`
			} `json:"messages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	total := 0
	for _, p := range resp.Data.Points {
		total += p.Total
	}
	if total != 3 {
		t.Errorf("timeline total = %d, want 3", total)
	}
	if len(resp.Data.Messages) != 1 || resp.Data.Messages[0].Message != "boom" {
		t.Errorf("messages = %+v, want one entry for boom", resp.Data.Messages)
	}
}

func TestDashboardMetricsIncludesRecentAlerts(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	alert := models.NewAlert(env.tenant.ID, models.ScopeMessage, models.NotificationText, "boom")
	if err := env.store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	// An alert for another tenant must never leak into the response.
	other := models.NewAlert(uuid.New().String(), models.ScopeGlobal, models.NotificationText, "")
	if err := env.store.Alerts().Create(ctx, other); err != nil {
		t.Fatalf("create other alert: %v", err)
	}

	token, err := env.jwt.GenerateToken(env.tenant.ID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Alerts []struct {
				ID      string `json:"id"`
				Message string `json:"message"`
			} `json:"alerts"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(resp.Data.Alerts))
	}
	if resp.Data.Alerts[0].ID != alert.ID || resp.Data.Alerts[0].Message != "boom" {
		t.Errorf("alert = %+v, want %s/boom", resp.Data.Alerts[0], alert.ID)
	}
}

func TestAcknowledgeAlertFlow(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	alert := models.NewAlert(env.tenant.ID, models.ScopeGlobal, models.NotificationText, "m")
	if err := env.store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	token, err := env.jwt.GenerateToken(env.tenant.ID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	ack := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/dashboard/alerts/%s/ack", alert.ID), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	// Pending alerts cannot be acknowledged.
	if rec := ack(); rec.Code != http.StatusConflict {
		t.Errorf("ack pending: status = %d, want 409", rec.Code)
	}

	if err := env.store.Alerts().MarkFailed(ctx, alert.ID, "no destinations"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if rec := ack(); rec.Code != http.StatusNoContent {
		t.Errorf("ack failed alert: status = %d, want 204", rec.Code)
	}

	got, err := env.store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if got.Status != models.AlertStatusAcknowledged {
		t.Errorf("status = %q, want acknowledged", got.Status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
