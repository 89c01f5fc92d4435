// Package aggregate computes dashboard-facing summaries over bucketed
// events: dense per-step timelines and per-message counts.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/bucket"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

const (
	// maxRange caps a single aggregation query.
	maxRange = 14 * 24 * time.Hour

	// chunkSpan bounds the buckets fetched per storage round trip.
	// Wider queries are split into chunks and concatenated.
	chunkSpan = 24 * time.Hour
)

// validStepMinutes are the step sizes dashboards may request.
var validStepMinutes = map[int]bool{
	60: true, 120: true, 180: true, 240: true,
	300: true, 360: true, 720: true, 1440: true,
}

// ValidStep reports whether stepMinutes is an allowed timeline step.
func ValidStep(stepMinutes int) bool {
	return validStepMinutes[stepMinutes]
}

// StepPoint is one fixed-size step window in a timeline. Counts holds
// per-type totals; a window with no events still appears with zero
// counts so charts render continuously.
type StepPoint struct {
	Start  time.Time                `json:"start"`
	Total  int                      `json:"total"`
	Counts map[models.EventType]int `json:"counts"`
}

// MessageCount summarizes one distinct message across a range.
type MessageCount struct {
	Message string             `json:"message"`
	Count   int                `json:"count"`
	Types   []models.EventType `json:"types"`
}

// Aggregator answers read-only range queries over the event store,
// caching fetched ranges for a fixed TTL.
type Aggregator struct {
	events storage.EventRepository
	cache  *rangeCache
}

// NewAggregator creates an aggregator for a tenant's tier granularity.
func NewAggregator(events storage.EventRepository) *Aggregator {
	return &Aggregator{
		events: events,
		cache:  newRangeCache(5 * time.Minute),
	}
}

// Timeline returns dense per-step counts for [start, end]. Steps are
// aligned to the epoch grid, so the first point may begin before start.
func (a *Aggregator) Timeline(ctx context.Context, tenant *models.Tenant, start, end time.Time, stepMinutes int, types []models.EventType) ([]StepPoint, error) {
	if !ValidStep(stepMinutes) {
		return nil, fmt.Errorf("invalid step: %d minutes", stepMinutes)
	}
	events, err := a.fetch(ctx, tenant, start, end, types)
	if err != nil {
		return nil, err
	}
	return AggregateByStep(events, stepMinutes, start, end), nil
}

// Messages returns per-message counts for [start, end], sorted by
// count descending.
func (a *Aggregator) Messages(ctx context.Context, tenant *models.Tenant, start, end time.Time, types []models.EventType) ([]MessageCount, error) {
	events, err := a.fetch(ctx, tenant, start, end, types)
	if err != nil {
		return nil, err
	}
	return AggregateByMessage(events), nil
}

// fetch reads the range from cache or storage, splitting wide queries
// into 24-hour chunks.
func (a *Aggregator) fetch(ctx context.Context, tenant *models.Tenant, start, end time.Time, types []models.EventType) ([]*models.Event, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("range end before start")
	}
	if end.Sub(start) > maxRange {
		return nil, fmt.Errorf("range exceeds %s", maxRange)
	}

	key := cacheKey(tenant.ID, start, end, types)
	if events, ok := a.cache.get(key, time.Now()); ok {
		return events, nil
	}

	size := tenant.Tier.Limits().BucketMinutes
	var all []*models.Event
	for chunkStart := start; !chunkStart.After(end); chunkStart = chunkStart.Add(chunkSpan) {
		chunkEnd := chunkStart.Add(chunkSpan - time.Nanosecond)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		bucketIDs, err := bucket.Range(tenant.ID, chunkStart, chunkEnd, size)
		if err != nil {
			return nil, err
		}
		events, err := a.events.FetchRange(ctx, tenant.ID, bucketIDs, chunkStart, chunkEnd)
		if err != nil {
			return nil, fmt.Errorf("fetch range chunk: %w", err)
		}
		all = append(all, events...)
	}

	all = filterTypes(all, types)
	a.cache.put(key, all, time.Now())
	return all, nil
}

// AggregateByStep buckets events into fixed-size, epoch-aligned step
// windows covering [start, end]. The output is dense: every window in
// the span appears exactly once, in order, even with zero events.
func AggregateByStep(events []*models.Event, stepMinutes int, start, end time.Time) []StepPoint {
	step := time.Duration(stepMinutes) * time.Minute
	first := bucket.SlotStart(start, stepMinutes)
	last := bucket.SlotStart(end, stepMinutes)

	points := make([]StepPoint, 0, last.Sub(first)/step+1)
	index := make(map[int64]int)
	for s := first; !s.After(last); s = s.Add(step) {
		index[s.Unix()] = len(points)
		points = append(points, StepPoint{
			Start:  s,
			Counts: make(map[models.EventType]int),
		})
	}

	for _, ev := range events {
		slot := bucket.SlotStart(ev.Timestamp, stepMinutes)
		i, ok := index[slot.Unix()]
		if !ok {
			continue
		}
		points[i].Counts[ev.Type]++
		points[i].Total++
	}
	return points
}

// AggregateByMessage groups events by exact message and reports each
// message's count and distinct types, sorted by count descending with
// message as the tie-breaker.
func AggregateByMessage(events []*models.Event) []MessageCount {
	type acc struct {
		count int
		types map[models.EventType]bool
	}
	byMessage := make(map[string]*acc)
	for _, ev := range events {
		a, ok := byMessage[ev.Message]
		if !ok {
			a = &acc{types: make(map[models.EventType]bool)}
			byMessage[ev.Message] = a
		}
		a.count++
		a.types[ev.Type] = true
	}

	out := make([]MessageCount, 0, len(byMessage))
	for msg, a := range byMessage {
		types := make([]models.EventType, 0, len(a.types))
		for t := range a.types {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
		out = append(out, MessageCount{Message: msg, Count: a.count, Types: types})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Message < out[j].Message
	})
	return out
}

func filterTypes(events []*models.Event, types []models.EventType) []*models.Event {
	if len(types) == 0 {
		return events
	}
	set := make(map[models.EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	kept := make([]*models.Event, 0, len(events))
	for _, ev := range events {
		if set[ev.Type] {
			kept = append(kept, ev)
		}
	}
	return kept
}

func cacheKey(tenantID string, start, end time.Time, types []models.EventType) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, string(t))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s|%d|%d|%s", tenantID, start.Unix(), end.Unix(), strings.Join(parts, ","))
}
