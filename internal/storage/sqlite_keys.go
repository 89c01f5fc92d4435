package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

type sqliteAPIKeyRepo struct {
	db *sql.DB
}

func (r *sqliteAPIKeyRepo) Create(ctx context.Context, key *models.APIKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, tenant_id, secret_hash, label, created_at, revoked)
		VALUES (?, ?, ?, ?, ?, 0)
	`, key.ID, key.TenantID, key.SecretHash, nullString(key.Label), key.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

func (r *sqliteAPIKeyRepo) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, secret_hash, label, created_at, revoked, revoked_at
		FROM api_keys WHERE id = ?
	`, id)

	key := &models.APIKey{}
	var label sql.NullString
	var revoked int
	var revokedAt sql.NullTime
	err := row.Scan(&key.ID, &key.TenantID, &key.SecretHash, &label, &key.CreatedAt, &revoked, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan api key: %w", err)
	}

	key.Label = label.String
	key.Revoked = revoked != 0
	if revokedAt.Valid {
		key.RevokedAt = &revokedAt.Time
	}
	return key, nil
}

func (r *sqliteAPIKeyRepo) ListByTenant(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, secret_hash, label, created_at, revoked, revoked_at
		FROM api_keys WHERE tenant_id = ? ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key := &models.APIKey{}
		var label sql.NullString
		var revoked int
		var revokedAt sql.NullTime
		if err := rows.Scan(&key.ID, &key.TenantID, &key.SecretHash, &label, &key.CreatedAt, &revoked, &revokedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		key.Label = label.String
		key.Revoked = revoked != 0
		if revokedAt.Valid {
			key.RevokedAt = &revokedAt.Time
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *sqliteAPIKeyRepo) Revoke(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET revoked = 1, revoked_at = ? WHERE id = ? AND revoked = 0
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("api key not found or already revoked: %s", id)
	}
	return nil
}
