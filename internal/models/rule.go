package models

import (
	"fmt"
	"time"
)

// NotificationType represents the delivery channel for alerts.
type NotificationType string

const (
	// NotificationText delivers alerts as SMS text messages.
	NotificationText NotificationType = "text"
	// NotificationCall is accepted in configuration but has no voice
	// transport; it is delivered as a labeled SMS.
	NotificationCall NotificationType = "call"
)

const (
	// MinWindowMinutes and MaxWindowMinutes bound rule windows (1m..24h).
	MinWindowMinutes = 1
	MaxWindowMinutes = 1440

	// MinMaxAlerts and MaxMaxAlerts bound rule thresholds.
	MinMaxAlerts = 1
	MaxMaxAlerts = 1000
)

// GlobalLimit fires when the total event count for a tenant inside a
// sliding window reaches the threshold, optionally filtered by type.
type GlobalLimit struct {
	Enabled       bool        `json:"enabled"`
	WindowMinutes int         `json:"window_minutes"`
	MaxAlerts     int         `json:"max_alerts"`
	LogTypes      []EventType `json:"log_types,omitempty"`
}

// Window returns the sliding window as a duration.
func (g *GlobalLimit) Window() time.Duration {
	return time.Duration(g.WindowMinutes) * time.Minute
}

// MessageRule fires when the count of events with an exactly matching
// message inside a sliding window reaches the threshold.
type MessageRule struct {
	Message       string      `json:"message"`
	WindowMinutes int         `json:"window_minutes"`
	MaxAlerts     int         `json:"max_alerts"`
	LogTypes      []EventType `json:"log_types,omitempty"`
}

// Window returns the sliding window as a duration.
func (m *MessageRule) Window() time.Duration {
	return time.Duration(m.WindowMinutes) * time.Minute
}

// AlertConfig is a tenant's alert rule set. Rules are edited out of
// band by tenant administrators and are read-only during evaluation.
type AlertConfig struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenant_id"`
	NotificationType NotificationType `json:"notification_type"`
	Enabled          bool             `json:"enabled"`
	Global           GlobalLimit      `json:"global"`
	MessageRules     []MessageRule    `json:"message_rules"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewAlertConfig creates a disabled-global config for a tenant.
func NewAlertConfig(tenantID string) *AlertConfig {
	now := time.Now()
	return &AlertConfig{
		TenantID:         tenantID,
		NotificationType: NotificationText,
		Enabled:          true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Validate checks configuration bounds. This runs at the configuration
// boundary; the evaluator tolerates any value that passes here.
func (c *AlertConfig) Validate() error {
	if c.TenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	switch c.NotificationType {
	case NotificationText, NotificationCall:
	default:
		return fmt.Errorf("invalid notification type: %q", c.NotificationType)
	}
	if c.Global.Enabled {
		if err := validateRuleBounds(c.Global.WindowMinutes, c.Global.MaxAlerts); err != nil {
			return fmt.Errorf("global limit: %w", err)
		}
		for _, t := range c.Global.LogTypes {
			if !ValidEventType(string(t)) {
				return fmt.Errorf("global limit: invalid log type: %q", t)
			}
		}
	}
	for i, mr := range c.MessageRules {
		if mr.Message == "" {
			return fmt.Errorf("message rule %d: message is required", i)
		}
		if err := validateRuleBounds(mr.WindowMinutes, mr.MaxAlerts); err != nil {
			return fmt.Errorf("message rule %d: %w", i, err)
		}
		for _, t := range mr.LogTypes {
			if !ValidEventType(string(t)) {
				return fmt.Errorf("message rule %d: invalid log type: %q", i, t)
			}
		}
	}
	return nil
}

func validateRuleBounds(windowMinutes, maxAlerts int) error {
	if windowMinutes < MinWindowMinutes || windowMinutes > MaxWindowMinutes {
		return fmt.Errorf("window must be between %d and %d minutes", MinWindowMinutes, MaxWindowMinutes)
	}
	if maxAlerts < MinMaxAlerts || maxAlerts > MaxMaxAlerts {
		return fmt.Errorf("max alerts must be between %d and %d", MinMaxAlerts, MaxMaxAlerts)
	}
	return nil
}
