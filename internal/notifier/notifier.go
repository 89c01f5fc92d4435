// Package notifier dispatches alert notifications to phone destinations.
package notifier

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AustinWheel/diving-duck-sub000/internal/metrics"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/quota"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

// ErrNoDestinations is recorded on alerts fired for tenants without
// any configured phone numbers.
const ErrNoDestinations = "No phone numbers configured"

// ErrGatewayUnconfigured is recorded when no gateway client exists.
const ErrGatewayUnconfigured = "SMS gateway not configured"

// Sender delivers one message to one destination.
type Sender interface {
	Send(ctx context.Context, destination, message string) error
}

// Dispatcher sends alert texts to a tenant's destinations and records
// the outcome on the alert ledger. Delivery is at-most-once per
// destination; nothing is retried.
type Dispatcher struct {
	sender  Sender // nil when the gateway is unconfigured
	ledger  storage.AlertRepository
	quota   *quota.Service
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. sender may be nil, in which case
// every alert fails with ErrGatewayUnconfigured.
func NewDispatcher(sender Sender, ledger storage.AlertRepository, quotaSvc *quota.Service) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		ledger:  ledger,
		quota:   quotaSvc,
		timeout: 10 * time.Second,
	}
}

// destinationResult is the outcome of one destination send.
type destinationResult struct {
	destination string
	err         error
}

// Dispatch attempts delivery of a pending alert to every destination
// and transitions the alert to sent or failed. Partial failure is a
// sent state: at least one successful destination makes the alert
// sent, with the failures joined into the alert's error summary.
// Returns the terminal status; the error return reports only
// infrastructure problems (ledger updates), never delivery failures.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert, destinations []string, isTest bool) (models.AlertStatus, error) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	if len(destinations) == 0 {
		return d.fail(ctx, alert, ErrNoDestinations)
	}
	if d.sender == nil {
		return d.fail(ctx, alert, ErrGatewayUnconfigured)
	}

	message := composeBody(alert)
	if alert.NotificationType == models.NotificationCall {
		// Voice transport does not exist; deliver as a labeled text.
		message = "[CALL] " + message
	}

	results := make([]destinationResult, len(destinations))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for i, dest := range destinations {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(gCtx, d.timeout)
			defer cancel()

			err := d.sender.Send(sendCtx, dest, message)
			mu.Lock()
			results[i] = destinationResult{destination: dest, err: err}
			mu.Unlock()
			// One destination's failure never cancels the others.
			return nil
		})
	}
	g.Wait()

	var sentTo []string
	var failures []string
	for _, res := range results {
		if res.err == nil {
			sentTo = append(sentTo, res.destination)
			metrics.SMSSentTotal.Inc()
		} else {
			failures = append(failures, fmt.Sprintf("%s: %v", res.destination, res.err))
			metrics.SMSFailedTotal.Inc()
		}
	}

	if len(sentTo) == 0 {
		return d.fail(ctx, alert, strings.Join(failures, "; "))
	}

	if err := d.ledger.MarkSent(ctx, alert.ID, time.Now().UTC(), sentTo, strings.Join(failures, "; ")); err != nil {
		return models.AlertStatusPending, fmt.Errorf("mark alert sent: %w", err)
	}

	// One increment per alert, not per destination.
	if isTest {
		if err := d.quota.RecordTestAlert(ctx, alert.TenantID); err != nil {
			log.Printf("record test alert for tenant %s: %v", alert.TenantID, err)
		}
	} else {
		if err := d.quota.RecordAlert(ctx, alert.TenantID, time.Now()); err != nil {
			log.Printf("record alert for tenant %s: %v", alert.TenantID, err)
		}
	}

	return models.AlertStatusSent, nil
}

// composeBody renders the alert as the outbound message text. Message
// scope alerts store the raw rule message, so the body is built here
// rather than at alert creation.
func composeBody(alert *models.Alert) string {
	window := alert.WindowEnd.Sub(alert.WindowStart)
	if alert.Scope == models.ScopeMessage {
		return fmt.Sprintf("Warden alert: %q occurred %d times in the last %s", alert.Message, alert.EventCount, window)
	}
	return fmt.Sprintf("Warden alert: %d events in the last %s", alert.EventCount, window)
}

func (d *Dispatcher) fail(ctx context.Context, alert *models.Alert, reason string) (models.AlertStatus, error) {
	metrics.AlertsFailedTotal.Inc()
	if err := d.ledger.MarkFailed(ctx, alert.ID, reason); err != nil {
		return models.AlertStatusPending, fmt.Errorf("mark alert failed: %w", err)
	}
	return models.AlertStatusFailed, nil
}
