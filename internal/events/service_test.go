package events

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AustinWheel/diving-duck-sub000/internal/alerting"
	"github.com/AustinWheel/diving-duck-sub000/internal/bucket"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/notifier"
	"github.com/AustinWheel/diving-duck-sub000/internal/quota"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

type okSender struct{}

func (okSender) Send(ctx context.Context, destination, message string) error { return nil }

func newTestService(t *testing.T) (*Service, *storage.SQLiteStorage, storage.EventRepository, *models.Tenant) {
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

	mem := storage.NewMemoryEventStorage()
	quotaSvc := quota.NewService(store)
	dispatcher := notifier.NewDispatcher(okSender{}, store.Alerts(), quotaSvc)
	eval := alerting.NewEvaluator(store, mem.Events(), quotaSvc, dispatcher)

	return NewService(mem.Events(), quotaSvc, eval, nil), store, mem.Events(), tenant
}

func TestIngestAssignsBucketAndCounts(t *testing.T) {
	svc, store, events, tenant := newTestService(t)
	ctx := context.Background()

	ev := models.NewEvent(tenant.ID, models.EventTypeLog, "user signup", time.Now().UTC())
	if err := svc.Ingest(ctx, tenant, ev); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	wantBucket := bucket.Key(tenant.ID, ev.Timestamp, tenant.Tier.Limits().BucketMinutes)
	if ev.BucketID != wantBucket {
		t.Errorf("bucket id = %q, want %q", ev.BucketID, wantBucket)
	}

	count, err := events.CountRange(ctx, tenant.ID, []string{wantBucket},
		ev.Timestamp.Add(-time.Minute), ev.Timestamp.Add(time.Minute), nil, "")
	if err != nil {
		t.Fatalf("count range: %v", err)
	}
	if count != 1 {
		t.Errorf("stored event count = %d, want 1", count)
	}

	usage, err := store.Usage().Get(ctx, tenant.ID, time.Now())
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.DailyEvents != 1 {
		t.Errorf("daily events = %d, want 1", usage.DailyEvents)
	}
}

func TestIngestRejectsInvalidEvent(t *testing.T) {
	svc, store, _, tenant := newTestService(t)
	ctx := context.Background()

	ev := models.NewEvent(tenant.ID, "bogus", "msg", time.Now())
	if err := svc.Ingest(ctx, tenant, ev); err == nil {
		t.Fatal("expected validation error for bogus type")
	}

	usage, err := store.Usage().Get(ctx, tenant.ID, time.Now())
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.DailyEvents != 0 {
		t.Errorf("rejected event incremented counter: %d", usage.DailyEvents)
	}
}

func TestIngestEnforcesDailyQuota(t *testing.T) {
	svc, store, _, tenant := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	limit := tenant.Tier.Limits().DailyEvents
	for i := int64(0); i < limit; i++ {
		if err := store.Usage().IncrementDailyEvents(ctx, tenant.ID, now); err != nil {
			t.Fatalf("increment daily events: %v", err)
		}
	}

	ev := models.NewEvent(tenant.ID, models.EventTypeLog, "over quota", now)
	err := svc.Ingest(ctx, tenant, ev)

	var exceeded *quota.ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("error = %v, want *quota.ExceededError", err)
	}
	if exceeded.Limit != limit {
		t.Errorf("exceeded limit = %d, want %d", exceeded.Limit, limit)
	}
}

func TestIngestEvaluatesAlertsInline(t *testing.T) {
	svc, store, _, tenant := newTestService(t)
	ctx := context.Background()

	cfg := &models.AlertConfig{
		ID:               uuid.New().String(),
		TenantID:         tenant.ID,
		NotificationType: models.NotificationText,
		Enabled:          true,
		Global:           models.GlobalLimit{Enabled: true, WindowMinutes: 10, MaxAlerts: 3},
	}
	if err := store.AlertConfigs().Create(ctx, cfg); err != nil {
		t.Fatalf("create config: %v", err)
	}
	if err := store.Destinations().Create(ctx, &models.Destination{
		ID: uuid.New().String(), TenantID: tenant.ID, PhoneNumber: "+15550100", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("create destination: %v", err)
	}

	for i := 0; i < 3; i++ {
		ev := models.NewEvent(tenant.ID, models.EventTypeError, "boom", time.Now().UTC())
		if err := svc.Ingest(ctx, tenant, ev); err != nil {
			t.Fatalf("ingest event %d: %v", i, err)
		}
	}

	alerts, _, err := store.Alerts().List(ctx, tenant.ID, 10, 0)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert fired from ingestion, got %d", len(alerts))
	}
	if alerts[0].Status != models.AlertStatusSent {
		t.Errorf("alert status = %q, want sent", alerts[0].Status)
	}
}

func TestIngestTestAlertDrawsTestAllowance(t *testing.T) {
	svc, store, _, tenant := newTestService(t)
	ctx := context.Background()

	cfg := &models.AlertConfig{
		ID:               uuid.New().String(),
		TenantID:         tenant.ID,
		NotificationType: models.NotificationText,
		Enabled:          true,
		Global:           models.GlobalLimit{Enabled: true, WindowMinutes: 10, MaxAlerts: 1},
	}
	if err := store.AlertConfigs().Create(ctx, cfg); err != nil {
		t.Fatalf("create config: %v", err)
	}
	if err := store.Destinations().Create(ctx, &models.Destination{
		ID: uuid.New().String(), TenantID: tenant.ID, PhoneNumber: "+15550100", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("create destination: %v", err)
	}

	ev := models.NewEvent(tenant.ID, models.EventTypeError, "test fire", time.Now().UTC())
	if err := svc.IngestTest(ctx, tenant, ev); err != nil {
		t.Fatalf("ingest test: %v", err)
	}

	usage, err := store.Usage().Get(ctx, tenant.ID, time.Now())
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.TotalTestAlerts != 1 {
		t.Errorf("total test alerts = %d, want 1", usage.TotalTestAlerts)
	}
	if usage.DailyAlerts != 0 {
		t.Errorf("test alert consumed daily quota: %d", usage.DailyAlerts)
	}
}

func TestNilLivePublisherIsSafe(t *testing.T) {
	var p *LivePublisher
	p.Publish("tenant", &models.Event{ID: "x"})
	p.Close()
}
