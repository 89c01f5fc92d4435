package models

import (
	"time"
)

// Tier represents a tenant's subscription tier. The tier fixes the
// event bucket granularity and the daily usage quotas.
type Tier string

const (
	TierDev    Tier = "dev"
	TierGrowth Tier = "growth"
	TierScale  Tier = "scale"
)

// TierLimits holds the limits attached to a subscription tier.
type TierLimits struct {
	// BucketMinutes is the event bucket granularity. Coarser buckets
	// cost less to store and read but delay alert detection.
	BucketMinutes int

	// DailyEvents is the maximum events ingested per UTC day.
	DailyEvents int64

	// DailyAlerts is the maximum alerts dispatched per UTC day.
	DailyAlerts int64

	// TotalTestAlerts is the lifetime test alert allowance.
	TotalTestAlerts int64
}

var tierLimits = map[Tier]TierLimits{
	TierDev:    {BucketMinutes: 60, DailyEvents: 1_000, DailyAlerts: 10, TotalTestAlerts: 5},
	TierGrowth: {BucketMinutes: 10, DailyEvents: 20_000, DailyAlerts: 100, TotalTestAlerts: 50},
	TierScale:  {BucketMinutes: 1, DailyEvents: 200_000, DailyAlerts: 500, TotalTestAlerts: 100},
}

// Limits returns the limits for the tier. Unknown tiers get dev limits.
func (t Tier) Limits() TierLimits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierDev]
}

// ParseTier converts a string to a Tier, defaulting to dev.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierDev, TierGrowth, TierScale:
		return Tier(s)
	default:
		return TierDev
	}
}

// Tenant represents a customer project. Identity and membership are
// owned by an external collaborator; the engine only reads the record.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tier      Tier      `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTenant creates a tenant on the dev tier.
func NewTenant(name string) *Tenant {
	now := time.Now()
	return &Tenant{
		Name:      name,
		Tier:      TierDev,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Destination is a phone number that receives alert notifications.
type Destination struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	PhoneNumber string    `json:"phone_number"`
	Label       string    `json:"label,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
