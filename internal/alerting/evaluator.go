// Package alerting evaluates incoming events against tenant alert rules
// and fires notifications when window thresholds are reached.
package alerting

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/bucket"
	"github.com/AustinWheel/diving-duck-sub000/internal/metrics"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/notifier"
	"github.com/AustinWheel/diving-duck-sub000/internal/quota"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

// errDestinationLookup is recorded on alerts whose destination list
// could not be read; distinct from the dispatcher's no-numbers error.
const errDestinationLookup = "Destination lookup failed"

// Evaluator runs the alert rule checks for one incoming event. It is
// called synchronously on the ingestion path; every error is logged and
// swallowed so that alerting problems never fail event ingestion.
//
// Rules are re-read from storage on every evaluation. Rule edits made
// by tenant administrators take effect on the very next event.
type Evaluator struct {
	store      storage.Storage
	events     storage.EventRepository
	quota      *quota.Service
	dispatcher *notifier.Dispatcher
	guard      *CooldownGuard
}

// NewEvaluator creates an evaluator wired to the control-plane store,
// the event store, and the notification dispatcher.
func NewEvaluator(store storage.Storage, events storage.EventRepository, quotaSvc *quota.Service, dispatcher *notifier.Dispatcher) *Evaluator {
	return &Evaluator{
		store:      store,
		events:     events,
		quota:      quotaSvc,
		dispatcher: dispatcher,
		guard:      NewCooldownGuard(store.Alerts()),
	}
}

// Evaluate runs all rule checks for a newly ingested event.
func (e *Evaluator) Evaluate(ctx context.Context, tenant *models.Tenant, newEvent *models.Event, isTest bool) {
	e.EvaluateAt(ctx, tenant, newEvent, isTest, time.Now().UTC())
}

// EvaluateAt evaluates at a specific time. Useful for tests.
//
// Each rule check is independent: one event can fire the global check
// and several message rules at once, and a failure in one check never
// stops the others.
func (e *Evaluator) EvaluateAt(ctx context.Context, tenant *models.Tenant, newEvent *models.Event, isTest bool, now time.Time) {
	start := time.Now()
	defer func() {
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	configs, err := e.store.AlertConfigs().ListEnabledByTenant(ctx, tenant.ID)
	if err != nil {
		log.Printf("list alert configs for tenant %s: %v", tenant.ID, err)
		return
	}

	for _, cfg := range configs {
		if cfg.Global.Enabled {
			e.checkGlobal(ctx, tenant, cfg, isTest, now)
		}
		for i := range cfg.MessageRules {
			rule := &cfg.MessageRules[i]
			// A message rule can only cross its threshold on an event
			// that matches it, so non-matching traffic skips the scan.
			if rule.Message != newEvent.Message {
				continue
			}
			e.checkMessage(ctx, tenant, cfg, rule, isTest, now)
		}
	}
}

// checkGlobal fires when the tenant's total event count in the rule
// window reaches the threshold, optionally filtered by type.
func (e *Evaluator) checkGlobal(ctx context.Context, tenant *models.Tenant, cfg *models.AlertConfig, isTest bool, now time.Time) {
	below, err := e.belowThreshold(ctx, tenant, cfg.Global.Window(), now, cfg.Global.LogTypes, "", cfg.Global.MaxAlerts)
	if err != nil {
		log.Printf("global count for tenant %s: %v", tenant.ID, err)
		return
	}
	if below {
		return
	}

	events, err := e.windowEvents(ctx, tenant, cfg.Global.Window(), now)
	if err != nil {
		log.Printf("global check for tenant %s: %v", tenant.ID, err)
		return
	}

	matched := filterEvents(events, cfg.Global.LogTypes, "")
	if len(matched) < cfg.Global.MaxAlerts {
		return
	}

	e.fire(ctx, tenant, cfg, firing{
		scope:         models.ScopeGlobal,
		windowMinutes: cfg.Global.WindowMinutes,
		events:        matched,
	}, isTest, now)
}

// checkMessage fires when the count of events exactly matching the
// rule's message in the rule window reaches the threshold.
func (e *Evaluator) checkMessage(ctx context.Context, tenant *models.Tenant, cfg *models.AlertConfig, rule *models.MessageRule, isTest bool, now time.Time) {
	below, err := e.belowThreshold(ctx, tenant, rule.Window(), now, rule.LogTypes, rule.Message, rule.MaxAlerts)
	if err != nil {
		log.Printf("message count %q for tenant %s: %v", rule.Message, tenant.ID, err)
		return
	}
	if below {
		return
	}

	events, err := e.windowEvents(ctx, tenant, rule.Window(), now)
	if err != nil {
		log.Printf("message check %q for tenant %s: %v", rule.Message, tenant.ID, err)
		return
	}

	matched := filterEvents(events, rule.LogTypes, rule.Message)
	if len(matched) < rule.MaxAlerts {
		return
	}

	e.fire(ctx, tenant, cfg, firing{
		scope:         models.ScopeMessage,
		message:       rule.Message,
		windowMinutes: rule.WindowMinutes,
		events:        matched,
	}, isTest, now)
}

// firing describes one rule check that crossed its threshold.
type firing struct {
	scope         models.AlertScope
	message       string // rule message, empty for global scope
	windowMinutes int
	events        []*models.Event
}

// fire consults the cooldown guard and quota, writes the pending alert
// to the ledger, and dispatches it. The cooldown lock is held only
// across the ledger check and the pending insert; dispatch runs outside
// the lock so slow gateway calls never serialize unrelated evaluations.
func (e *Evaluator) fire(ctx context.Context, tenant *models.Tenant, cfg *models.AlertConfig, f firing, isTest bool, now time.Time) {
	alert := e.createAlert(ctx, tenant, cfg, f, isTest, now)
	if alert == nil {
		return
	}

	destinations, err := e.store.Destinations().ListByTenant(ctx, tenant.ID)
	if err != nil {
		// Record the lookup failure as the alert's error; dispatching
		// with an empty list would misattribute it to missing numbers.
		log.Printf("list destinations for tenant %s: %v", tenant.ID, err)
		metrics.AlertsFailedTotal.Inc()
		if err := e.store.Alerts().MarkFailed(ctx, alert.ID, errDestinationLookup); err != nil {
			log.Printf("mark alert %s failed: %v", alert.ID, err)
		}
		return
	}
	numbers := make([]string, 0, len(destinations))
	for _, d := range destinations {
		numbers = append(numbers, d.PhoneNumber)
	}

	status, err := e.dispatcher.Dispatch(ctx, alert, numbers, isTest)
	if err != nil {
		log.Printf("dispatch alert %s for tenant %s: %v", alert.ID, tenant.ID, err)
		return
	}
	log.Printf("alert %s for tenant %s (%s scope): %s", alert.ID, tenant.ID, f.scope, status)
}

// createAlert runs the guarded check-then-insert. Returns nil when the
// firing is suppressed by cooldown or quota, or when the ledger write
// fails. A quota-spent firing leaves no ledger record at all.
func (e *Evaluator) createAlert(ctx context.Context, tenant *models.Tenant, cfg *models.AlertConfig, f firing, isTest bool, now time.Time) *models.Alert {
	unlock := e.guard.acquire(tenant.ID, f.scope, f.message)
	defer unlock()

	recent, err := e.guard.HasRecentAlert(ctx, tenant.ID, f.scope, f.message, f.windowMinutes, now)
	if err != nil {
		log.Printf("cooldown lookup for tenant %s: %v", tenant.ID, err)
		return nil
	}
	if recent {
		metrics.AlertsSuppressedTotal.Inc()
		return nil
	}

	if err := e.quota.CanSendAlert(ctx, tenant, isTest, now); err != nil {
		var exceeded *quota.ExceededError
		if errors.As(err, &exceeded) {
			log.Printf("alert for tenant %s dropped: %v", tenant.ID, exceeded)
		} else {
			log.Printf("alert quota check for tenant %s: %v", tenant.ID, err)
		}
		return nil
	}

	alert := models.NewAlert(tenant.ID, f.scope, cfg.NotificationType, f.message)
	alert.EventCount = len(f.events)
	alert.EventIDs = make([]string, 0, len(f.events))
	for _, ev := range f.events {
		alert.EventIDs = append(alert.EventIDs, ev.ID)
	}
	alert.WindowStart = now.Add(-time.Duration(f.windowMinutes) * time.Minute)
	alert.WindowEnd = now

	if err := e.store.Alerts().Create(ctx, alert); err != nil {
		log.Printf("create alert for tenant %s: %v", tenant.ID, err)
		return nil
	}
	metrics.AlertsFiredTotal.WithLabelValues(string(f.scope)).Inc()
	return alert
}

// belowThreshold runs the storage-side count as a cheap pre-check. The
// count is over the inclusive range [now-window, now] so it can only
// overcount relative to the exclusive window; a below-threshold result
// is therefore safe to skip on, and the full fetch settles the rest.
func (e *Evaluator) belowThreshold(ctx context.Context, tenant *models.Tenant, window time.Duration, now time.Time, types []models.EventType, message string, threshold int) (bool, error) {
	windowStart := now.Add(-window)
	size := tenant.Tier.Limits().BucketMinutes

	bucketIDs, err := bucket.Range(tenant.ID, windowStart, now, size)
	if err != nil {
		return false, err
	}

	count, err := e.events.CountRange(ctx, tenant.ID, bucketIDs, windowStart, now, types, message)
	if err != nil {
		return false, err
	}
	return count < int64(threshold), nil
}

// windowEvents reads the tenant's events inside (now-window, now]. The
// left edge is exclusive; bucket reads are inclusive, so the edge is
// re-filtered here at event granularity.
func (e *Evaluator) windowEvents(ctx context.Context, tenant *models.Tenant, window time.Duration, now time.Time) ([]*models.Event, error) {
	windowStart := now.Add(-window)
	size := tenant.Tier.Limits().BucketMinutes

	bucketIDs, err := bucket.Range(tenant.ID, windowStart, now, size)
	if err != nil {
		return nil, err
	}

	events, err := e.events.FetchRange(ctx, tenant.ID, bucketIDs, windowStart, now)
	if err != nil {
		return nil, err
	}

	kept := make([]*models.Event, 0, len(events))
	for _, ev := range events {
		if ev.Timestamp.After(windowStart) {
			kept = append(kept, ev)
		}
	}
	return kept, nil
}

// filterEvents keeps events whose type is in the set (empty set keeps
// all) and, when message is non-empty, whose message matches exactly.
func filterEvents(events []*models.Event, types []models.EventType, message string) []*models.Event {
	var typeSet map[models.EventType]bool
	if len(types) > 0 {
		typeSet = make(map[models.EventType]bool, len(types))
		for _, t := range types {
			typeSet[t] = true
		}
	}

	kept := make([]*models.Event, 0, len(events))
	for _, ev := range events {
		if typeSet != nil && !typeSet[ev.Type] {
			continue
		}
		if message != "" && ev.Message != message {
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}
