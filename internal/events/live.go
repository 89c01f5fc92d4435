package events

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

// liveSubjectPrefix is the per-tenant subject for live event updates.
// Dashboards subscribe to warden.events.<tenantID>.
const liveSubjectPrefix = "warden.events."

// LivePublisher pushes ingested events to NATS so connected dashboards
// see traffic without polling. Delivery is best effort: publish errors
// are logged and the event stays durable in the bucket store either way.
type LivePublisher struct {
	nc *nats.Conn
}

// NewLivePublisher connects to the NATS server at url.
func NewLivePublisher(url string) (*LivePublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("warden-server"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &LivePublisher{nc: nc}, nil
}

// Publish sends one event on the tenant's live subject. Safe to call
// on a nil publisher.
func (p *LivePublisher) Publish(tenantID string, event *models.Event) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal live event %s: %v", event.ID, err)
		return
	}
	if err := p.nc.Publish(liveSubjectPrefix+tenantID, data); err != nil {
		log.Printf("publish live event for tenant %s: %v", tenantID, err)
	}
}

// IsConnected reports whether the NATS connection is up.
func (p *LivePublisher) IsConnected() bool {
	return p != nil && p.nc != nil && p.nc.IsConnected()
}

// Close drains the connection.
func (p *LivePublisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		log.Printf("drain nats connection: %v", err)
	}
}
