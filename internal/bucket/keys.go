// Package bucket derives deterministic time-bucket keys for event storage.
//
// A bucket key names one fixed-size time slot for one tenant. Keys are
// pure functions of (tenant, timestamp, bucket size): every caller that
// derives a key for the same tenant and slot gets the same string, which
// is what makes append and read paths agree on where events live.
package bucket

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key returns the bucket key for the slot containing t.
// The slot grid is aligned to the Unix epoch.
func Key(tenantID string, t time.Time, sizeMinutes int) string {
	return keyAt(tenantID, SlotStart(t, sizeMinutes))
}

func keyAt(tenantID string, slotStart time.Time) string {
	return tenantID + "_" + strconv.FormatInt(slotStart.Unix(), 10)
}

// SlotStart aligns t down to the nearest multiple of sizeMinutes from
// the Unix epoch.
func SlotStart(t time.Time, sizeMinutes int) time.Time {
	size := int64(sizeMinutes) * 60
	sec := t.Unix()
	aligned := sec - modFloor(sec, size)
	return time.Unix(aligned, 0).UTC()
}

// modFloor is a true floored modulus, correct for pre-1970 timestamps.
func modFloor(a, n int64) int64 {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// Range returns the ordered bucket keys covering [start, end] for a
// tenant. Returns an empty list when end is before start. A bucket size
// of zero or less is an input error.
func Range(tenantID string, start, end time.Time, sizeMinutes int) ([]string, error) {
	if sizeMinutes <= 0 {
		return nil, fmt.Errorf("bucket size must be positive, got %d", sizeMinutes)
	}
	if end.Before(start) {
		return []string{}, nil
	}

	step := time.Duration(sizeMinutes) * time.Minute
	first := SlotStart(start, sizeMinutes)
	last := SlotStart(end, sizeMinutes)

	keys := make([]string, 0, last.Sub(first)/step+1)
	for slot := first; !slot.After(last); slot = slot.Add(step) {
		keys = append(keys, keyAt(tenantID, slot))
	}
	return keys, nil
}

// ParseKey splits a bucket key into its tenant and slot start parts.
func ParseKey(key string) (tenantID string, slotStart time.Time, err error) {
	i := strings.LastIndex(key, "_")
	if i <= 0 || i == len(key)-1 {
		return "", time.Time{}, fmt.Errorf("malformed bucket key: %q", key)
	}
	sec, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed bucket key: %q", key)
	}
	return key[:i], time.Unix(sec, 0).UTC(), nil
}
