package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

type sqliteUsageRepo struct {
	db *sql.DB
}

// Get returns the usage row for a tenant after applying any due daily
// reset. The reset and the read run in one transaction.
func (r *sqliteUsageRepo) Get(ctx context.Context, tenantID string, now time.Time) (*models.Usage, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := resetIfDue(ctx, tx, tenantID, now); err != nil {
		return nil, err
	}

	usage := &models.Usage{}
	err = tx.QueryRowContext(ctx, `
		SELECT tenant_id, daily_events, daily_events_reset_at,
			daily_alerts, daily_alerts_reset_at, total_test_alerts
		FROM usage WHERE tenant_id = ?
	`, tenantID).Scan(&usage.TenantID, &usage.DailyEvents, &usage.DailyEventsResetAt,
		&usage.DailyAlerts, &usage.DailyAlertsResetAt, &usage.TotalTestAlerts)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("usage row not found for tenant: %s", tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return usage, nil
}

// IncrementDailyEvents adds one to the daily event counter. The
// increment is a single UPDATE, atomic at the storage layer.
func (r *sqliteUsageRepo) IncrementDailyEvents(ctx context.Context, tenantID string, now time.Time) error {
	return r.increment(ctx, tenantID, now, "daily_events")
}

// IncrementDailyAlerts adds one to the daily alert counter.
func (r *sqliteUsageRepo) IncrementDailyAlerts(ctx context.Context, tenantID string, now time.Time) error {
	return r.increment(ctx, tenantID, now, "daily_alerts")
}

// IncrementTestAlerts adds one to the lifetime test alert counter.
func (r *sqliteUsageRepo) IncrementTestAlerts(ctx context.Context, tenantID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE usage SET total_test_alerts = total_test_alerts + 1 WHERE tenant_id = ?
	`, tenantID)
	if err != nil {
		return fmt.Errorf("increment test alerts: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("usage row not found for tenant: %s", tenantID)
	}
	return nil
}

func (r *sqliteUsageRepo) increment(ctx context.Context, tenantID string, now time.Time, column string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := resetIfDue(ctx, tx, tenantID, now); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE usage SET %s = %s + 1 WHERE tenant_id = ?", column, column),
		tenantID)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("usage row not found for tenant: %s", tenantID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// resetIfDue zeroes any daily counter whose reset time has passed and
// advances its reset timestamp to the next UTC midnight.
func resetIfDue(ctx context.Context, tx *sql.Tx, tenantID string, now time.Time) error {
	next := models.NextUTCMidnight(now)

	_, err := tx.ExecContext(ctx, `
		UPDATE usage SET daily_events = 0, daily_events_reset_at = ?
		WHERE tenant_id = ? AND daily_events_reset_at <= ?
	`, next, tenantID, now)
	if err != nil {
		return fmt.Errorf("reset daily events: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE usage SET daily_alerts = 0, daily_alerts_reset_at = ?
		WHERE tenant_id = ? AND daily_alerts_reset_at <= ?
	`, next, tenantID, now)
	if err != nil {
		return fmt.Errorf("reset daily alerts: %w", err)
	}
	return nil
}
