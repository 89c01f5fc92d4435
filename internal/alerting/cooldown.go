package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

// maxCooldown caps the suppression window regardless of how wide the
// rule's own window is. A 24-hour rule still re-fires hourly while its
// condition holds.
const maxCooldown = 60 * time.Minute

// CooldownGuard suppresses repeat alerts for a rule scope by consulting
// the alert ledger. The ledger lookup and the subsequent pending insert
// are a check-then-act sequence, so callers must hold the scope's lock
// (see acquire) across both steps; without it two concurrent evaluations
// for the same scope could each pass the check and double-fire.
type CooldownGuard struct {
	ledger storage.AlertRepository

	mu    sync.Mutex
	locks map[string]*lockEntry
}

// lockEntry is one evaluation slot. refs counts holders plus waiters
// so the entry can be evicted on last release; without it the map
// would grow by one entry per distinct message forever.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewCooldownGuard creates a cooldown guard backed by the alert ledger.
func NewCooldownGuard(ledger storage.AlertRepository) *CooldownGuard {
	return &CooldownGuard{
		ledger: ledger,
		locks:  make(map[string]*lockEntry),
	}
}

// CooldownWindow returns the suppression window for a rule window,
// capped at maxCooldown.
func CooldownWindow(windowMinutes int) time.Duration {
	w := time.Duration(windowMinutes) * time.Minute
	if w > maxCooldown {
		return maxCooldown
	}
	return w
}

// acquire locks the (tenant, scope, message) evaluation slot and
// returns the unlock function. Locks are per-process; they serialize
// concurrent evaluations within one instance, which is where the
// check-then-act race lives.
func (g *CooldownGuard) acquire(tenantID string, scope models.AlertScope, message string) func() {
	key := tenantID + "|" + string(scope) + "|" + message

	g.mu.Lock()
	entry, ok := g.locks[key]
	if !ok {
		entry = &lockEntry{}
		g.locks[key] = entry
	}
	entry.refs++
	g.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		g.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(g.locks, key)
		}
		g.mu.Unlock()
	}
}

// HasRecentAlert reports whether any alert for this tenant and scope
// (and, for message scope, this exact message) was created within the
// cooldown window ending at now. Alerts count from creation, so a
// pending alert suppresses followers even before dispatch finishes.
func (g *CooldownGuard) HasRecentAlert(ctx context.Context, tenantID string, scope models.AlertScope, message string, windowMinutes int, now time.Time) (bool, error) {
	since := now.Add(-CooldownWindow(windowMinutes))
	count, err := g.ledger.CountSince(ctx, tenantID, scope, message, since)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
