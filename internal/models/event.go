// Package models contains the core data structures for Warden.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the kind of log event emitted by a client application.
type EventType string

const (
	EventTypeText     EventType = "text"
	EventTypeCall     EventType = "call"
	EventTypeCallText EventType = "callText"
	EventTypeLog      EventType = "log"
	EventTypeWarn     EventType = "warn"
	EventTypeError    EventType = "error"
)

// ValidEventType reports whether s names a known event type.
func ValidEventType(s string) bool {
	switch EventType(s) {
	case EventTypeText, EventTypeCall, EventTypeCallText, EventTypeLog, EventTypeWarn, EventTypeError:
		return true
	}
	return false
}

// Event represents a single structured log event. Events are immutable
// once stored; they are never mutated or individually deleted.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// TenantID identifies the tenant that emitted the event.
	TenantID string `json:"tenant_id"`

	// BucketID is the time bucket the event belongs to, derived from
	// the tenant and the event timestamp at append time.
	BucketID string `json:"bucket_id"`

	// Type is the event type (text, call, callText, log, warn, error).
	Type EventType `json:"type"`

	// Message is the event message content.
	Message string `json:"message"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Meta holds opaque key-value data supplied by the producer.
	Meta map[string]string `json:"meta,omitempty"`
}

// NewEvent creates an Event with a generated ID. A zero timestamp is
// replaced with the current time.
func NewEvent(tenantID string, eventType EventType, message string, timestamp time.Time) *Event {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	return &Event{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Type:      eventType,
		Message:   message,
		Timestamp: timestamp,
	}
}

// Validate checks the event for required fields.
func (e *Event) Validate() error {
	if e.TenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if !ValidEventType(string(e.Type)) {
		return fmt.Errorf("invalid event type: %q", e.Type)
	}
	if e.Message == "" {
		return fmt.Errorf("message is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// Bucket is a time-slot document grouping events for one tenant.
// The bucket's time span never changes after creation, and
// EventCount always equals the number of contained events.
type Bucket struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Events     []*Event  `json:"events"`
	EventCount int       `json:"event_count"`
}
