// Package quota enforces per-tenant daily usage limits.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

// ExceededError is returned when a tenant hits a usage limit. It is
// surfaced to the caller with the current and limit values and is
// never retried automatically.
type ExceededError struct {
	Kind    string // "events", "alerts", or "test alerts"
	Current int64
	Limit   int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("daily %s quota exceeded: %d of %d used", e.Kind, e.Current, e.Limit)
}

// Service answers quota questions and records usage. All counter
// mutations go through atomic storage-layer increments.
type Service struct {
	store storage.Storage
}

// NewService creates a quota service.
func NewService(store storage.Storage) *Service {
	return &Service{store: store}
}

// CanSendEvent checks the tenant's daily event quota. Returns an
// *ExceededError when the quota is spent.
func (s *Service) CanSendEvent(ctx context.Context, tenant *models.Tenant, now time.Time) error {
	usage, err := s.store.Usage().Get(ctx, tenant.ID, now)
	if err != nil {
		return fmt.Errorf("read usage: %w", err)
	}

	limits := tenant.Tier.Limits()
	if usage.DailyEvents >= limits.DailyEvents {
		return &ExceededError{Kind: "events", Current: usage.DailyEvents, Limit: limits.DailyEvents}
	}
	return nil
}

// CanSendAlert checks the daily alert quota, or the lifetime test
// alert allowance when isTest is set.
func (s *Service) CanSendAlert(ctx context.Context, tenant *models.Tenant, isTest bool, now time.Time) error {
	usage, err := s.store.Usage().Get(ctx, tenant.ID, now)
	if err != nil {
		return fmt.Errorf("read usage: %w", err)
	}

	limits := tenant.Tier.Limits()
	if isTest {
		if usage.TotalTestAlerts >= limits.TotalTestAlerts {
			return &ExceededError{Kind: "test alerts", Current: usage.TotalTestAlerts, Limit: limits.TotalTestAlerts}
		}
		return nil
	}
	if usage.DailyAlerts >= limits.DailyAlerts {
		return &ExceededError{Kind: "alerts", Current: usage.DailyAlerts, Limit: limits.DailyAlerts}
	}
	return nil
}

// RecordEvent increments the daily event counter.
func (s *Service) RecordEvent(ctx context.Context, tenantID string, now time.Time) error {
	return s.store.Usage().IncrementDailyEvents(ctx, tenantID, now)
}

// RecordAlert increments the daily alert counter. Called exactly once
// per alert with at least one successful delivery, never per destination.
func (s *Service) RecordAlert(ctx context.Context, tenantID string, now time.Time) error {
	return s.store.Usage().IncrementDailyAlerts(ctx, tenantID, now)
}

// RecordTestAlert increments the lifetime test alert counter.
func (s *Service) RecordTestAlert(ctx context.Context, tenantID string) error {
	return s.store.Usage().IncrementTestAlerts(ctx, tenantID)
}
