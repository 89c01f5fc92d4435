package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/bucket"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

// MemoryEventStorage implements EventStorage in memory. It is used in
// tests and in single-node dev deployments without ClickHouse. Appends
// are atomic under an internal lock, so the bucket count invariant
// holds under concurrent writers.
type MemoryEventStorage struct {
	events *memoryEventRepo
}

// NewMemoryEventStorage creates an empty in-memory event storage.
func NewMemoryEventStorage() *MemoryEventStorage {
	return &MemoryEventStorage{
		events: &memoryEventRepo{
			buckets: make(map[string]*memoryBucket),
		},
	}
}

// Open is a no-op.
func (s *MemoryEventStorage) Open() error { return nil }

// Close is a no-op.
func (s *MemoryEventStorage) Close() error { return nil }

// Migrate is a no-op.
func (s *MemoryEventStorage) Migrate() error { return nil }

// Ping is a no-op.
func (s *MemoryEventStorage) Ping(ctx context.Context) error { return nil }

// Events returns the event repository.
func (s *MemoryEventStorage) Events() EventRepository { return s.events }

type memoryBucket struct {
	tenantID string
	events   []*models.Event
	count    int
}

type memoryEventRepo struct {
	mu      sync.RWMutex
	buckets map[string]*memoryBucket
}

func (r *memoryEventRepo) Append(ctx context.Context, event *models.Event) error {
	if event.BucketID == "" {
		return fmt.Errorf("event bucket id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[event.BucketID]
	if !ok {
		b = &memoryBucket{tenantID: event.TenantID}
		r.buckets[event.BucketID] = b
	}

	copied := *event
	b.events = append(b.events, &copied)
	b.count++
	return nil
}

func (r *memoryEventRepo) FetchRange(ctx context.Context, tenantID string, bucketIDs []string, start, end time.Time) ([]*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Event
	for _, id := range bucketIDs {
		b, ok := r.buckets[id]
		if !ok || b.tenantID != tenantID {
			continue
		}
		for _, event := range b.events {
			if event.Timestamp.Before(start) || event.Timestamp.After(end) {
				continue
			}
			out = append(out, event)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (r *memoryEventRepo) FetchBuckets(ctx context.Context, tenantID string, bucketIDs []string, sizeMinutes int) ([]*models.Bucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Bucket
	for _, id := range bucketIDs {
		mb, ok := r.buckets[id]
		if !ok || mb.tenantID != tenantID {
			continue
		}
		_, slotStart, err := bucket.ParseKey(id)
		if err != nil {
			return nil, err
		}
		b := &models.Bucket{
			ID:         id,
			TenantID:   tenantID,
			Start:      slotStart,
			End:        slotStart.Add(time.Duration(sizeMinutes) * time.Minute),
			Events:     append([]*models.Event(nil), mb.events...),
			EventCount: mb.count,
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryEventRepo) CountRange(ctx context.Context, tenantID string, bucketIDs []string, start, end time.Time, types []models.EventType, message string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeSet := make(map[models.EventType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var count int64
	for _, id := range bucketIDs {
		b, ok := r.buckets[id]
		if !ok || b.tenantID != tenantID {
			continue
		}
		for _, event := range b.events {
			if event.Timestamp.Before(start) || event.Timestamp.After(end) {
				continue
			}
			if len(typeSet) > 0 && !typeSet[event.Type] {
				continue
			}
			if message != "" && event.Message != message {
				continue
			}
			count++
		}
	}
	return count, nil
}
