// Package events implements the event ingestion path: validation,
// quota enforcement, bucket append, usage accounting, and synchronous
// alert evaluation.
package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/alerting"
	"github.com/AustinWheel/diving-duck-sub000/internal/bucket"
	"github.com/AustinWheel/diving-duck-sub000/internal/metrics"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/quota"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

// ErrInvalidEvent marks producer-side validation failures, as opposed
// to storage or quota problems.
var ErrInvalidEvent = errors.New("invalid event")

// Service handles event ingestion for all tenants.
type Service struct {
	events storage.EventRepository
	quota  *quota.Service
	eval   *alerting.Evaluator
	live   *LivePublisher // nil when live updates are disabled
}

// NewService creates an ingestion service. live may be nil.
func NewService(events storage.EventRepository, quotaSvc *quota.Service, eval *alerting.Evaluator, live *LivePublisher) *Service {
	return &Service{
		events: events,
		quota:  quotaSvc,
		eval:   eval,
		live:   live,
	}
}

// Ingest stores one event and evaluates the tenant's alert rules.
// The event is rejected before any mutation when it is invalid or the
// tenant's daily event quota is spent. Alert evaluation runs in-line
// but its errors never surface to the producer.
func (s *Service) Ingest(ctx context.Context, tenant *models.Tenant, event *models.Event) error {
	return s.ingest(ctx, tenant, event, false)
}

// IngestTest stores a test event. Alerts fired from it draw on the
// tenant's lifetime test alert allowance instead of the daily quota.
func (s *Service) IngestTest(ctx context.Context, tenant *models.Tenant, event *models.Event) error {
	return s.ingest(ctx, tenant, event, true)
}

func (s *Service) ingest(ctx context.Context, tenant *models.Tenant, event *models.Event, isTest bool) error {
	event.TenantID = tenant.ID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		metrics.EventsRejectedTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	now := time.Now().UTC()
	if err := s.quota.CanSendEvent(ctx, tenant, now); err != nil {
		metrics.EventsRejectedTotal.WithLabelValues("quota").Inc()
		return err
	}

	event.BucketID = bucket.Key(tenant.ID, event.Timestamp, tenant.Tier.Limits().BucketMinutes)
	if err := s.events.Append(ctx, event); err != nil {
		metrics.EventsRejectedTotal.WithLabelValues("storage").Inc()
		return fmt.Errorf("append event: %w", err)
	}

	if err := s.quota.RecordEvent(ctx, tenant.ID, now); err != nil {
		// The event is already durable; a counting failure costs one
		// quota tick, not the event.
		log.Printf("record event for tenant %s: %v", tenant.ID, err)
	}
	metrics.EventsIngestedTotal.WithLabelValues(string(event.Type)).Inc()

	s.live.Publish(tenant.ID, event)
	s.eval.Evaluate(ctx, tenant, event, isTest)
	return nil
}
