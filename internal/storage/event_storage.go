package storage

import (
	"context"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

// EventStorage defines operations for event persistence. This is
// separate from the main Storage interface as events have different
// access patterns (high-volume appends, time-bucketed range reads).
type EventStorage interface {
	// Open initializes the event storage connection.
	Open() error
	// Close closes the event storage connection.
	Close() error
	// Migrate creates or updates the event storage schema.
	Migrate() error
	// Ping checks the connection health.
	Ping(ctx context.Context) error

	// Events returns the event repository.
	Events() EventRepository
}

// EventRepository defines bucketed event operations.
//
// Each append is a single atomic row insert keyed by bucket id (an
// append-only log per bucket), so concurrent appends to the same bucket
// never lose events and a bucket's count always equals its row count.
// Bucket membership is coarser than a query window: FetchRange and
// CountRange re-filter at event granularity after resolving buckets,
// and missing buckets simply contribute no rows.
type EventRepository interface {
	// Append stores one event. The event's BucketID must be set.
	Append(ctx context.Context, event *models.Event) error

	// FetchRange returns the events in the given buckets whose exact
	// timestamp falls within [start, end], ordered by timestamp.
	FetchRange(ctx context.Context, tenantID string, bucketIDs []string, start, end time.Time) ([]*models.Event, error)

	// FetchBuckets returns bucket documents (events grouped by bucket
	// with counts) for the given bucket ids. Missing buckets are
	// omitted, not an error.
	FetchBuckets(ctx context.Context, tenantID string, bucketIDs []string, sizeMinutes int) ([]*models.Bucket, error)

	// CountRange counts events in the given buckets within [start, end],
	// optionally filtered by type set and exact message. This is the
	// evaluator's hot-path query.
	CountRange(ctx context.Context, tenantID string, bucketIDs []string, start, end time.Time, types []models.EventType, message string) (int64, error)
}
