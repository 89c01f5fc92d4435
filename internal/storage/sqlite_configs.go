package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

type sqliteAlertConfigRepo struct {
	db *sql.DB
}

const alertConfigColumns = `id, tenant_id, notification_type, enabled, global_json, message_rules_json, created_at, updated_at`

func (r *sqliteAlertConfigRepo) Create(ctx context.Context, config *models.AlertConfig) error {
	globalJSON, rulesJSON, err := marshalConfig(config)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO alert_configs (id, tenant_id, notification_type, enabled, global_json, message_rules_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, config.ID, config.TenantID, string(config.NotificationType), boolToInt(config.Enabled),
		globalJSON, rulesJSON, config.CreatedAt, config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert alert config: %w", err)
	}
	return nil
}

func (r *sqliteAlertConfigRepo) GetByID(ctx context.Context, id string) (*models.AlertConfig, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+alertConfigColumns+` FROM alert_configs WHERE id = ?`, id)
	return scanAlertConfig(row)
}

func (r *sqliteAlertConfigRepo) Update(ctx context.Context, config *models.AlertConfig) error {
	globalJSON, rulesJSON, err := marshalConfig(config)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE alert_configs SET notification_type = ?, enabled = ?, global_json = ?,
			message_rules_json = ?, updated_at = ?
		WHERE id = ?
	`, string(config.NotificationType), boolToInt(config.Enabled), globalJSON, rulesJSON,
		time.Now(), config.ID)
	if err != nil {
		return fmt.Errorf("update alert config: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert config not found: %s", config.ID)
	}
	return nil
}

func (r *sqliteAlertConfigRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alert_configs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete alert config: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert config not found: %s", id)
	}
	return nil
}

func (r *sqliteAlertConfigRepo) ListByTenant(ctx context.Context, tenantID string) ([]*models.AlertConfig, error) {
	return r.queryConfigs(ctx,
		`SELECT `+alertConfigColumns+` FROM alert_configs WHERE tenant_id = ? ORDER BY created_at`, tenantID)
}

func (r *sqliteAlertConfigRepo) ListEnabledByTenant(ctx context.Context, tenantID string) ([]*models.AlertConfig, error) {
	return r.queryConfigs(ctx,
		`SELECT `+alertConfigColumns+` FROM alert_configs WHERE tenant_id = ? AND enabled = 1 ORDER BY created_at`, tenantID)
}

func (r *sqliteAlertConfigRepo) queryConfigs(ctx context.Context, query string, args ...any) ([]*models.AlertConfig, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alert configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.AlertConfig
	for rows.Next() {
		config, err := scanAlertConfigRow(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	return configs, rows.Err()
}

func marshalConfig(config *models.AlertConfig) (globalJSON, rulesJSON string, err error) {
	g, err := json.Marshal(config.Global)
	if err != nil {
		return "", "", fmt.Errorf("marshal global limit: %w", err)
	}
	rules := config.MessageRules
	if rules == nil {
		rules = []models.MessageRule{}
	}
	m, err := json.Marshal(rules)
	if err != nil {
		return "", "", fmt.Errorf("marshal message rules: %w", err)
	}
	return string(g), string(m), nil
}

func scanAlertConfig(row *sql.Row) (*models.AlertConfig, error) {
	config := &models.AlertConfig{}
	var notificationType, globalJSON, rulesJSON string
	var enabled int

	err := row.Scan(&config.ID, &config.TenantID, &notificationType, &enabled,
		&globalJSON, &rulesJSON, &config.CreatedAt, &config.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert config: %w", err)
	}
	return unmarshalConfig(config, notificationType, enabled, globalJSON, rulesJSON)
}

func scanAlertConfigRow(rows *sql.Rows) (*models.AlertConfig, error) {
	config := &models.AlertConfig{}
	var notificationType, globalJSON, rulesJSON string
	var enabled int

	err := rows.Scan(&config.ID, &config.TenantID, &notificationType, &enabled,
		&globalJSON, &rulesJSON, &config.CreatedAt, &config.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan alert config: %w", err)
	}
	return unmarshalConfig(config, notificationType, enabled, globalJSON, rulesJSON)
}

func unmarshalConfig(config *models.AlertConfig, notificationType string, enabled int, globalJSON, rulesJSON string) (*models.AlertConfig, error) {
	config.NotificationType = models.NotificationType(notificationType)
	config.Enabled = enabled != 0

	if err := json.Unmarshal([]byte(globalJSON), &config.Global); err != nil {
		return nil, fmt.Errorf("unmarshal global limit: %w", err)
	}
	if err := json.Unmarshal([]byte(rulesJSON), &config.MessageRules); err != nil {
		return nil, fmt.Errorf("unmarshal message rules: %w", err)
	}
	return config, nil
}
