package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/bucket"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

func TestMemoryConcurrentAppendsLoseNothing(t *testing.T) {
	store := NewMemoryEventStorage()
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	bucketID := bucket.Key("t1", ts, 60)

	const writers = 20
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				event := models.NewEvent("t1", models.EventTypeError, "boom", ts)
				event.BucketID = bucketID
				if err := store.Events().Append(ctx, event); err != nil {
					t.Errorf("append: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	buckets, err := store.Events().FetchBuckets(ctx, "t1", []string{bucketID}, 60)
	if err != nil {
		t.Fatalf("fetch buckets: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("got %d buckets, want 1", len(buckets))
	}

	want := writers * perWriter
	if buckets[0].EventCount != want {
		t.Errorf("event count = %d, want %d", buckets[0].EventCount, want)
	}
	if len(buckets[0].Events) != buckets[0].EventCount {
		t.Errorf("count %d != len(events) %d", buckets[0].EventCount, len(buckets[0].Events))
	}

	// Every appended event is readable exactly once.
	seen := make(map[string]bool, want)
	events, err := store.Events().FetchRange(ctx, "t1", []string{bucketID}, ts.Add(-time.Hour), ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("fetch range: %v", err)
	}
	for _, e := range events {
		if seen[e.ID] {
			t.Errorf("event %s returned twice", e.ID)
		}
		seen[e.ID] = true
	}
	if len(seen) != want {
		t.Errorf("read %d distinct events, want %d", len(seen), want)
	}
}

func TestMemoryMissingBucketsAreEmpty(t *testing.T) {
	store := NewMemoryEventStorage()
	ctx := context.Background()

	events, err := store.Events().FetchRange(ctx, "t1", []string{"t1_0", "t1_3600"}, time.Unix(0, 0), time.Now())
	if err != nil {
		t.Fatalf("fetch range: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}

	count, err := store.Events().CountRange(ctx, "t1", []string{"t1_0"}, time.Unix(0, 0), time.Now(), nil, "")
	if err != nil {
		t.Fatalf("count range: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestMemoryRangeRefiltersAtEventGranularity(t *testing.T) {
	store := NewMemoryEventStorage()
	ctx := context.Background()

	// One 60-minute bucket; events at :05, :30, :55.
	slot := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bucketID := bucket.Key("t1", slot, 60)
	for _, minute := range []int{5, 30, 55} {
		event := models.NewEvent("t1", models.EventTypeLog, "tick", slot.Add(time.Duration(minute)*time.Minute))
		event.BucketID = bucketID
		if err := store.Events().Append(ctx, event); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// Query window covers only the middle of the bucket.
	events, err := store.Events().FetchRange(ctx, "t1", []string{bucketID},
		slot.Add(10*time.Minute), slot.Add(40*time.Minute))
	if err != nil {
		t.Fatalf("fetch range: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if got := events[0].Timestamp; !got.Equal(slot.Add(30 * time.Minute)) {
		t.Errorf("timestamp = %v", got)
	}
}

func TestMemoryCountRangeFilters(t *testing.T) {
	store := NewMemoryEventStorage()
	ctx := context.Background()

	slot := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bucketID := bucket.Key("t1", slot, 60)

	add := func(eventType models.EventType, message string) {
		event := models.NewEvent("t1", eventType, message, slot.Add(time.Minute))
		event.BucketID = bucketID
		if err := store.Events().Append(ctx, event); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	add(models.EventTypeError, "db timeout")
	add(models.EventTypeError, "db timeout")
	add(models.EventTypeWarn, "db timeout")
	add(models.EventTypeError, "other")

	start, end := slot, slot.Add(time.Hour)

	count, err := store.Events().CountRange(ctx, "t1", []string{bucketID}, start, end,
		[]models.EventType{models.EventTypeError}, "db timeout")
	if err != nil {
		t.Fatalf("count range: %v", err)
	}
	if count != 2 {
		t.Errorf("filtered count = %d, want 2", count)
	}

	count, err = store.Events().CountRange(ctx, "t1", []string{bucketID}, start, end, nil, "")
	if err != nil {
		t.Fatalf("count range: %v", err)
	}
	if count != 4 {
		t.Errorf("unfiltered count = %d, want 4", count)
	}
}
