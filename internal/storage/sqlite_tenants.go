package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

type sqliteTenantRepo struct {
	db *sql.DB
}

func (r *sqliteTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, tier, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, tenant.ID, tenant.Name, string(tenant.Tier), tenant.CreatedAt, tenant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	// Seed the usage row so increments always have a target.
	resetAt := models.NextUTCMidnight(tenant.CreatedAt)
	_, err = r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO usage (tenant_id, daily_events_reset_at, daily_alerts_reset_at)
		VALUES (?, ?, ?)
	`, tenant.ID, resetAt, resetAt)
	if err != nil {
		return fmt.Errorf("seed usage row: %w", err)
	}
	return nil
}

func (r *sqliteTenantRepo) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, tier, created_at, updated_at FROM tenants WHERE id = ?
	`, id)
	return scanTenant(row)
}

func (r *sqliteTenantRepo) GetByName(ctx context.Context, name string) (*models.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, tier, created_at, updated_at FROM tenants WHERE name = ?
	`, name)
	return scanTenant(row)
}

func (r *sqliteTenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET name = ?, tier = ?, updated_at = ? WHERE id = ?
	`, tenant.Name, string(tenant.Tier), time.Now(), tenant.ID)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("tenant not found: %s", tenant.ID)
	}
	return nil
}

func (r *sqliteTenantRepo) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, tier, created_at, updated_at FROM tenants ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t := &models.Tenant{}
		var tier string
		if err := rows.Scan(&t.ID, &t.Name, &tier, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		t.Tier = models.ParseTier(tier)
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func scanTenant(row *sql.Row) (*models.Tenant, error) {
	t := &models.Tenant{}
	var tier string
	err := row.Scan(&t.ID, &t.Name, &tier, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	t.Tier = models.ParseTier(tier)
	return t, nil
}
