package models

import "time"

// Usage holds per-tenant usage counters. Daily counters reset lazily:
// when now >= the reset timestamp, the counter is zeroed and the reset
// timestamp advances to the next UTC midnight. Increments happen at the
// storage layer as atomic updates, never read-modify-write.
type Usage struct {
	TenantID           string    `json:"tenant_id"`
	DailyEvents        int64     `json:"daily_events"`
	DailyEventsResetAt time.Time `json:"daily_events_reset_at"`
	DailyAlerts        int64     `json:"daily_alerts"`
	DailyAlertsResetAt time.Time `json:"daily_alerts_reset_at"`
	TotalTestAlerts    int64     `json:"total_test_alerts"`
}

// NextUTCMidnight returns the first UTC midnight after t.
func NextUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
