package quota

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

func newTestService(t *testing.T) (*Service, *models.Tenant, storage.Storage) {
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

	return NewService(store), tenant, store
}

func TestCanSendEventUnderLimit(t *testing.T) {
	svc, tenant, _ := newTestService(t)

	if err := svc.CanSendEvent(context.Background(), tenant, time.Now()); err != nil {
		t.Errorf("CanSendEvent with empty usage: %v", err)
	}
}

func TestCanSendEventAtLimit(t *testing.T) {
	svc, tenant, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	limit := tenant.Tier.Limits().DailyEvents
	for i := int64(0); i < limit; i++ {
		if err := svc.RecordEvent(ctx, tenant.ID, now); err != nil {
			t.Fatalf("record event %d: %v", i, err)
		}
	}

	err := svc.CanSendEvent(ctx, tenant, now)
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("err = %v, want *ExceededError", err)
	}
	if exceeded.Kind != "events" || exceeded.Current != limit {
		t.Errorf("exceeded = %+v, want events at %d", exceeded, limit)
	}
}

func TestDailyCountersResetAcrossDays(t *testing.T) {
	svc, tenant, _ := newTestService(t)
	ctx := context.Background()
	today := time.Now().UTC()
	tomorrow := today.Add(24 * time.Hour)

	limit := tenant.Tier.Limits().DailyEvents
	for i := int64(0); i < limit; i++ {
		if err := svc.RecordEvent(ctx, tenant.ID, today); err != nil {
			t.Fatalf("record event: %v", err)
		}
	}

	if err := svc.CanSendEvent(ctx, tenant, today); err == nil {
		t.Error("expected quota exhaustion today")
	}
	if err := svc.CanSendEvent(ctx, tenant, tomorrow); err != nil {
		t.Errorf("quota should reset tomorrow: %v", err)
	}
}

func TestTestAlertAllowanceIsLifetime(t *testing.T) {
	svc, tenant, _ := newTestService(t)
	ctx := context.Background()
	day := time.Now().UTC()

	limit := tenant.Tier.Limits().TotalTestAlerts
	for i := int64(0); i < limit; i++ {
		if err := svc.RecordTestAlert(ctx, tenant.ID); err != nil {
			t.Fatalf("record test alert: %v", err)
		}
	}

	// Unlike daily counters the test allowance never resets.
	if err := svc.CanSendAlert(ctx, tenant, true, day); err == nil {
		t.Error("expected exhausted test allowance")
	}
	if err := svc.CanSendAlert(ctx, tenant, true, day.Add(48*time.Hour)); err == nil {
		t.Error("test allowance should not reset across days")
	}

	// Regular alerts are unaffected.
	if err := svc.CanSendAlert(ctx, tenant, false, day); err != nil {
		t.Errorf("regular alert quota should be untouched: %v", err)
	}
}

func TestAlertQuotaIndependentOfEventQuota(t *testing.T) {
	svc, tenant, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	limit := tenant.Tier.Limits().DailyAlerts
	for i := int64(0); i < limit; i++ {
		if err := svc.RecordAlert(ctx, tenant.ID, now); err != nil {
			t.Fatalf("record alert: %v", err)
		}
	}

	if err := svc.CanSendAlert(ctx, tenant, false, now); err == nil {
		t.Error("expected exhausted alert quota")
	}
	if err := svc.CanSendEvent(ctx, tenant, now); err != nil {
		t.Errorf("event quota should be untouched: %v", err)
	}
}
