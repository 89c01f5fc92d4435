// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

// Storage is the main interface for control-plane records: tenants,
// API keys, alert configuration, the alert ledger, and usage counters.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Tenants() TenantRepository
	APIKeys() APIKeyRepository
	AlertConfigs() AlertConfigRepository
	Alerts() AlertRepository
	Destinations() DestinationRepository
	Usage() UsageRepository
}

// TenantRepository defines operations for tenant records.
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	GetByName(ctx context.Context, name string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	List(ctx context.Context) ([]*models.Tenant, error)
}

// APIKeyRepository defines operations for ingestion API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) error
	GetByID(ctx context.Context, id string) (*models.APIKey, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// AlertConfigRepository defines operations for tenant alert rule sets.
// The evaluator re-reads configuration on every evaluation, so rule
// edits take effect on the very next event.
type AlertConfigRepository interface {
	Create(ctx context.Context, config *models.AlertConfig) error
	GetByID(ctx context.Context, id string) (*models.AlertConfig, error)
	Update(ctx context.Context, config *models.AlertConfig) error
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.AlertConfig, error)
	ListEnabledByTenant(ctx context.Context, tenantID string) ([]*models.AlertConfig, error)
}

// AlertRepository is the alert ledger: an append-mostly log of every
// alert attempt. CountSince backs the cooldown guard on the hot path
// of every qualifying event and must be cheap.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time, sentTo []string, errMsg string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Acknowledge(ctx context.Context, id, by string, at time.Time) error
	CountSince(ctx context.Context, tenantID string, scope models.AlertScope, message string, since time.Time) (int64, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]*models.Alert, int64, error)
	ListSince(ctx context.Context, tenantID string, since time.Time, limit int) ([]*models.Alert, error)
}

// DestinationRepository defines operations for notification phone numbers.
type DestinationRepository interface {
	Create(ctx context.Context, dest *models.Destination) error
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Destination, error)
}

// UsageRepository defines operations for per-tenant usage counters.
// Get applies the lazy daily reset before returning; increments are
// atomic updates at the storage layer, never read-modify-write.
type UsageRepository interface {
	Get(ctx context.Context, tenantID string, now time.Time) (*models.Usage, error)
	IncrementDailyEvents(ctx context.Context, tenantID string, now time.Time) error
	IncrementDailyAlerts(ctx context.Context, tenantID string, now time.Time) error
	IncrementTestAlerts(ctx context.Context, tenantID string) error
}
