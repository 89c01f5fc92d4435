package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertStatus represents the lifecycle state of an alert.
type AlertStatus string

const (
	// AlertStatusPending is the initial state set by the evaluator.
	AlertStatusPending AlertStatus = "pending"
	// AlertStatusSent means at least one destination succeeded.
	AlertStatusSent AlertStatus = "sent"
	// AlertStatusFailed means no destination received the alert.
	AlertStatusFailed AlertStatus = "failed"
	// AlertStatusAcknowledged is a manual transition layered on top of
	// sent/failed, driven from the dashboard.
	AlertStatusAcknowledged AlertStatus = "acknowledged"
)

// AlertScope identifies which kind of rule check fired.
type AlertScope string

const (
	ScopeGlobal  AlertScope = "global"
	ScopeMessage AlertScope = "message"
)

// Alert is a durable record of one alert attempt, written to the
// ledger in pending state and updated by the dispatcher.
type Alert struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenant_id"`
	Status           AlertStatus      `json:"status"`
	Scope            AlertScope       `json:"scope"`
	NotificationType NotificationType `json:"notification_type"`
	Message          string           `json:"message"`
	EventIDs         []string         `json:"event_ids,omitempty"`
	EventCount       int              `json:"event_count"`
	WindowStart      time.Time        `json:"window_start"`
	WindowEnd        time.Time        `json:"window_end"`
	CreatedAt        time.Time        `json:"created_at"`
	SentAt           *time.Time       `json:"sent_at,omitempty"`
	SentTo           []string         `json:"sent_to,omitempty"`
	Error            string           `json:"error,omitempty"`
	AcknowledgedAt   *time.Time       `json:"acknowledged_at,omitempty"`
	AcknowledgedBy   string           `json:"acknowledged_by,omitempty"`
}

// NewAlert creates a pending alert for a fired rule check.
func NewAlert(tenantID string, scope AlertScope, notificationType NotificationType, message string) *Alert {
	return &Alert{
		ID:               uuid.New().String(),
		TenantID:         tenantID,
		Status:           AlertStatusPending,
		Scope:            scope,
		NotificationType: notificationType,
		Message:          message,
		CreatedAt:        time.Now().UTC(),
	}
}

// IsTerminal reports whether the alert reached a dispatch outcome.
func (a *Alert) IsTerminal() bool {
	return a.Status == AlertStatusSent || a.Status == AlertStatusFailed
}
