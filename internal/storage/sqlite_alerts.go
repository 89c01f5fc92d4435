package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

type sqliteAlertRepo struct {
	db *sql.DB
}

const alertColumns = `id, tenant_id, status, scope, notification_type, message,
	event_ids_json, event_count, window_start, window_end, created_at,
	sent_at, sent_to_json, error, acknowledged_at, acknowledged_by`

func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	eventIDs := alert.EventIDs
	if eventIDs == nil {
		eventIDs = []string{}
	}
	eventIDsJSON, err := json.Marshal(eventIDs)
	if err != nil {
		return fmt.Errorf("marshal event ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO alerts (id, tenant_id, status, scope, notification_type, message,
			event_ids_json, event_count, window_start, window_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.TenantID, string(alert.Status), string(alert.Scope),
		string(alert.NotificationType), alert.Message, string(eventIDsJSON),
		alert.EventCount, alert.WindowStart, alert.WindowEnd, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)

	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	return alert, nil
}

func (r *sqliteAlertRepo) MarkSent(ctx context.Context, id string, sentAt time.Time, sentTo []string, errMsg string) error {
	if sentTo == nil {
		sentTo = []string{}
	}
	sentToJSON, err := json.Marshal(sentTo)
	if err != nil {
		return fmt.Errorf("marshal sent to: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, sent_at = ?, sent_to_json = ?, error = ?
		WHERE id = ? AND status = ?
	`, string(models.AlertStatusSent), sentAt, string(sentToJSON), nullString(errMsg),
		id, string(models.AlertStatusPending))
	if err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found or not pending: %s", id)
	}
	return nil
}

func (r *sqliteAlertRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, error = ? WHERE id = ? AND status = ?
	`, string(models.AlertStatusFailed), errMsg, id, string(models.AlertStatusPending))
	if err != nil {
		return fmt.Errorf("mark alert failed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found or not pending: %s", id)
	}
	return nil
}

func (r *sqliteAlertRepo) Acknowledge(ctx context.Context, id, by string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, acknowledged_at = ?, acknowledged_by = ?
		WHERE id = ? AND status IN (?, ?)
	`, string(models.AlertStatusAcknowledged), at, by, id,
		string(models.AlertStatusSent), string(models.AlertStatusFailed))
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found or not in a terminal state: %s", id)
	}
	return nil
}

func (r *sqliteAlertRepo) CountSince(ctx context.Context, tenantID string, scope models.AlertScope, message string, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM alerts WHERE tenant_id = ? AND scope = ? AND created_at >= ?`
	args := []any{tenantID, string(scope), since}
	if scope == models.ScopeMessage {
		query += ` AND message = ?`
		args = append(args, message)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return count, nil
}

func (r *sqliteAlertRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*models.Alert, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE tenant_id = ?`, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts WHERE tenant_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (r *sqliteAlertRepo) ListSince(ctx context.Context, tenantID string, since time.Time, limit int) ([]*models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts WHERE tenant_id = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT ?
	`, tenantID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlerts(rows *sql.Rows) ([]*models.Alert, error) {
	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var status, scope, notificationType, eventIDsJSON string
	var windowStart, windowEnd, sentAt, acknowledgedAt sql.NullTime
	var sentToJSON, errMsg, acknowledgedBy sql.NullString

	err := row.Scan(&alert.ID, &alert.TenantID, &status, &scope, &notificationType,
		&alert.Message, &eventIDsJSON, &alert.EventCount, &windowStart, &windowEnd,
		&alert.CreatedAt, &sentAt, &sentToJSON, &errMsg, &acknowledgedAt, &acknowledgedBy)
	if err != nil {
		return nil, err
	}

	alert.Status = models.AlertStatus(status)
	alert.Scope = models.AlertScope(scope)
	alert.NotificationType = models.NotificationType(notificationType)
	alert.Error = errMsg.String
	alert.AcknowledgedBy = acknowledgedBy.String
	if windowStart.Valid {
		alert.WindowStart = windowStart.Time
	}
	if windowEnd.Valid {
		alert.WindowEnd = windowEnd.Time
	}
	if sentAt.Valid {
		alert.SentAt = &sentAt.Time
	}
	if acknowledgedAt.Valid {
		alert.AcknowledgedAt = &acknowledgedAt.Time
	}

	if err := json.Unmarshal([]byte(eventIDsJSON), &alert.EventIDs); err != nil {
		return nil, fmt.Errorf("unmarshal event ids: %w", err)
	}
	if sentToJSON.Valid {
		if err := json.Unmarshal([]byte(sentToJSON.String), &alert.SentTo); err != nil {
			return nil, fmt.Errorf("unmarshal sent to: %w", err)
		}
	}
	return alert, nil
}
