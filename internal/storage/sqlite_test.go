package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store := NewSQLiteStorage(filepath.Join(t.TempDir(), "warden.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func createTestTenant(t *testing.T, store *SQLiteStorage, name string) *models.Tenant {
	t.Helper()

	tenant := models.NewTenant(name)
	tenant.ID = uuid.New().String()
	if err := store.Tenants().Create(context.Background(), tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return tenant
}

func TestTenantRoundTrip(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	tenant := createTestTenant(t, store, "acme")

	got, err := store.Tenants().GetByID(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if got == nil {
		t.Fatal("tenant not found")
	}
	if got.Name != "acme" || got.Tier != models.TierDev {
		t.Errorf("got %+v", got)
	}

	got.Tier = models.TierScale
	if err := store.Tenants().Update(ctx, got); err != nil {
		t.Fatalf("update tenant: %v", err)
	}

	got, err = store.Tenants().GetByName(ctx, "acme")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got.Tier != models.TierScale {
		t.Errorf("tier = %q, want scale", got.Tier)
	}
}

func TestTenantGetMissing(t *testing.T) {
	store := openTestStorage(t)

	got, err := store.Tenants().GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()
	tenant := createTestTenant(t, store, "acme")

	key, plain, err := models.NewAPIKey(tenant.ID, "ci")
	if err != nil {
		t.Fatalf("new api key: %v", err)
	}
	if err := store.APIKeys().Create(ctx, key); err != nil {
		t.Fatalf("create key: %v", err)
	}

	keyID, secret, err := models.ParseAPIKey(plain)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}

	got, err := store.APIKeys().GetByID(ctx, keyID)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if got == nil || !got.IsValid() {
		t.Fatalf("key invalid: %+v", got)
	}
	if !got.VerifySecret(secret) {
		t.Error("secret did not verify")
	}
	if got.VerifySecret("wrong") {
		t.Error("wrong secret verified")
	}

	if err := store.APIKeys().Revoke(ctx, keyID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err = store.APIKeys().GetByID(ctx, keyID)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if got.IsValid() {
		t.Error("revoked key still valid")
	}

	if err := store.APIKeys().Revoke(ctx, keyID); err == nil {
		t.Error("second revoke should fail")
	}
}

func TestAlertConfigRoundTrip(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()
	tenant := createTestTenant(t, store, "acme")

	config := models.NewAlertConfig(tenant.ID)
	config.ID = uuid.New().String()
	config.Global = models.GlobalLimit{
		Enabled:       true,
		WindowMinutes: 10,
		MaxAlerts:     5,
		LogTypes:      []models.EventType{models.EventTypeError},
	}
	config.MessageRules = []models.MessageRule{
		{Message: "db timeout", WindowMinutes: 5, MaxAlerts: 3},
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := store.AlertConfigs().Create(ctx, config); err != nil {
		t.Fatalf("create config: %v", err)
	}

	configs, err := store.AlertConfigs().ListEnabledByTenant(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("list configs: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("got %d configs, want 1", len(configs))
	}
	got := configs[0]
	if !got.Global.Enabled || got.Global.MaxAlerts != 5 {
		t.Errorf("global = %+v", got.Global)
	}
	if len(got.MessageRules) != 1 || got.MessageRules[0].Message != "db timeout" {
		t.Errorf("message rules = %+v", got.MessageRules)
	}

	got.Enabled = false
	if err := store.AlertConfigs().Update(ctx, got); err != nil {
		t.Fatalf("update config: %v", err)
	}
	configs, err = store.AlertConfigs().ListEnabledByTenant(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("list configs: %v", err)
	}
	if len(configs) != 0 {
		t.Errorf("disabled config still listed")
	}
}

func TestAlertLedgerTransitions(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()
	tenant := createTestTenant(t, store, "acme")

	alert := models.NewAlert(tenant.ID, models.ScopeGlobal, models.NotificationText, "error storm")
	alert.EventCount = 7
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	sentAt := time.Now()
	if err := store.Alerts().MarkSent(ctx, alert.ID, sentAt, []string{"+15551234567"}, "+15557654321: gateway error"); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	got, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if got.Status != models.AlertStatusSent {
		t.Errorf("status = %q, want sent", got.Status)
	}
	if len(got.SentTo) != 1 || got.SentTo[0] != "+15551234567" {
		t.Errorf("sent to = %v", got.SentTo)
	}
	if got.Error == "" {
		t.Error("partial failure summary missing")
	}

	// A terminal alert cannot transition again.
	if err := store.Alerts().MarkFailed(ctx, alert.ID, "nope"); err == nil {
		t.Error("mark failed on sent alert should error")
	}

	if err := store.Alerts().Acknowledge(ctx, alert.ID, "ops@acme", time.Now()); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	got, _ = store.Alerts().GetByID(ctx, alert.ID)
	if got.Status != models.AlertStatusAcknowledged {
		t.Errorf("status = %q, want acknowledged", got.Status)
	}
}

func TestAlertCountSince(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()
	tenant := createTestTenant(t, store, "acme")
	now := time.Now()

	old := models.NewAlert(tenant.ID, models.ScopeMessage, models.NotificationText, "db timeout")
	old.CreatedAt = now.Add(-2 * time.Hour)
	recent := models.NewAlert(tenant.ID, models.ScopeMessage, models.NotificationText, "db timeout")
	other := models.NewAlert(tenant.ID, models.ScopeMessage, models.NotificationText, "other message")
	global := models.NewAlert(tenant.ID, models.ScopeGlobal, models.NotificationText, "storm")

	for _, a := range []*models.Alert{old, recent, other, global} {
		if err := store.Alerts().Create(ctx, a); err != nil {
			t.Fatalf("create alert: %v", err)
		}
	}

	since := now.Add(-10 * time.Minute)

	count, err := store.Alerts().CountSince(ctx, tenant.ID, models.ScopeMessage, "db timeout", since)
	if err != nil {
		t.Fatalf("count since: %v", err)
	}
	if count != 1 {
		t.Errorf("message scope count = %d, want 1", count)
	}

	count, err = store.Alerts().CountSince(ctx, tenant.ID, models.ScopeGlobal, "", since)
	if err != nil {
		t.Fatalf("count since: %v", err)
	}
	if count != 1 {
		t.Errorf("global scope count = %d, want 1", count)
	}
}

func TestUsageIncrementAndLazyReset(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()
	tenant := createTestTenant(t, store, "acme")
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if err := store.Usage().IncrementDailyEvents(ctx, tenant.ID, now); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := store.Usage().IncrementDailyAlerts(ctx, tenant.ID, now); err != nil {
		t.Fatalf("increment alerts: %v", err)
	}
	if err := store.Usage().IncrementTestAlerts(ctx, tenant.ID); err != nil {
		t.Fatalf("increment test alerts: %v", err)
	}

	usage, err := store.Usage().Get(ctx, tenant.ID, now)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.DailyEvents != 3 || usage.DailyAlerts != 1 || usage.TotalTestAlerts != 1 {
		t.Errorf("usage = %+v", usage)
	}

	// Crossing the reset boundary zeroes daily counters but not the
	// lifetime test alert counter.
	tomorrow := models.NextUTCMidnight(now).Add(time.Minute)
	usage, err = store.Usage().Get(ctx, tenant.ID, tomorrow)
	if err != nil {
		t.Fatalf("get usage after reset: %v", err)
	}
	if usage.DailyEvents != 0 || usage.DailyAlerts != 0 {
		t.Errorf("daily counters not reset: %+v", usage)
	}
	if usage.TotalTestAlerts != 1 {
		t.Errorf("test alert counter reset unexpectedly: %+v", usage)
	}
	if !usage.DailyEventsResetAt.After(tomorrow) {
		t.Errorf("reset timestamp not advanced: %v", usage.DailyEventsResetAt)
	}

	// Increment after reset starts from zero.
	if err := store.Usage().IncrementDailyEvents(ctx, tenant.ID, tomorrow); err != nil {
		t.Fatalf("increment after reset: %v", err)
	}
	usage, _ = store.Usage().Get(ctx, tenant.ID, tomorrow)
	if usage.DailyEvents != 1 {
		t.Errorf("daily events = %d, want 1", usage.DailyEvents)
	}
}

func TestDestinations(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()
	tenant := createTestTenant(t, store, "acme")

	dest := &models.Destination{
		ID:          uuid.New().String(),
		TenantID:    tenant.ID,
		PhoneNumber: "+15551234567",
		Label:       "oncall",
		CreatedAt:   time.Now(),
	}
	if err := store.Destinations().Create(ctx, dest); err != nil {
		t.Fatalf("create destination: %v", err)
	}

	// Duplicate number for the same tenant is rejected.
	dup := &models.Destination{
		ID:          uuid.New().String(),
		TenantID:    tenant.ID,
		PhoneNumber: "+15551234567",
		CreatedAt:   time.Now(),
	}
	if err := store.Destinations().Create(ctx, dup); err == nil {
		t.Error("duplicate destination accepted")
	}

	dests, err := store.Destinations().ListByTenant(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("list destinations: %v", err)
	}
	if len(dests) != 1 || dests[0].PhoneNumber != "+15551234567" {
		t.Errorf("destinations = %+v", dests)
	}
}
