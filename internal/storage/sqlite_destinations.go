package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

type sqliteDestinationRepo struct {
	db *sql.DB
}

func (r *sqliteDestinationRepo) Create(ctx context.Context, dest *models.Destination) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO destinations (id, tenant_id, phone_number, label, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, dest.ID, dest.TenantID, dest.PhoneNumber, nullString(dest.Label), dest.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert destination: %w", err)
	}
	return nil
}

func (r *sqliteDestinationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM destinations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete destination: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("destination not found: %s", id)
	}
	return nil
}

func (r *sqliteDestinationRepo) ListByTenant(ctx context.Context, tenantID string) ([]*models.Destination, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, phone_number, label, created_at
		FROM destinations WHERE tenant_id = ? ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query destinations: %w", err)
	}
	defer rows.Close()

	var dests []*models.Destination
	for rows.Next() {
		d := &models.Destination{}
		var label sql.NullString
		if err := rows.Scan(&d.ID, &d.TenantID, &d.PhoneNumber, &label, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}
		d.Label = label.String
		dests = append(dests, d)
	}
	return dests, rows.Err()
}
