package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Tenants table
			CREATE TABLE IF NOT EXISTS tenants (
				id TEXT PRIMARY KEY,
				name TEXT UNIQUE NOT NULL,
				tier TEXT NOT NULL DEFAULT 'dev',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Ingestion API keys
			CREATE TABLE IF NOT EXISTS api_keys (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				secret_hash TEXT NOT NULL,
				label TEXT,
				created_at DATETIME NOT NULL,
				revoked INTEGER NOT NULL DEFAULT 0,
				revoked_at DATETIME,
				FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
			);

			-- Alert rule sets
			CREATE TABLE IF NOT EXISTS alert_configs (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				notification_type TEXT NOT NULL DEFAULT 'text',
				enabled INTEGER NOT NULL DEFAULT 1,
				global_json TEXT NOT NULL,
				message_rules_json TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
			);

			-- Alert ledger
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				status TEXT NOT NULL,
				scope TEXT NOT NULL,
				notification_type TEXT NOT NULL,
				message TEXT NOT NULL,
				event_ids_json TEXT NOT NULL DEFAULT '[]',
				event_count INTEGER NOT NULL DEFAULT 0,
				window_start DATETIME,
				window_end DATETIME,
				created_at DATETIME NOT NULL,
				sent_at DATETIME,
				sent_to_json TEXT,
				error TEXT,
				acknowledged_at DATETIME,
				acknowledged_by TEXT
			);

			-- Notification destinations
			CREATE TABLE IF NOT EXISTS destinations (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				phone_number TEXT NOT NULL,
				label TEXT,
				created_at DATETIME NOT NULL,
				UNIQUE (tenant_id, phone_number),
				FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
			);

			-- Usage counters, one row per tenant
			CREATE TABLE IF NOT EXISTS usage (
				tenant_id TEXT PRIMARY KEY,
				daily_events INTEGER NOT NULL DEFAULT 0,
				daily_events_reset_at DATETIME NOT NULL,
				daily_alerts INTEGER NOT NULL DEFAULT 0,
				daily_alerts_reset_at DATETIME NOT NULL,
				total_test_alerts INTEGER NOT NULL DEFAULT 0,
				FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_api_keys_tenant ON api_keys(tenant_id);
			CREATE INDEX IF NOT EXISTS idx_alert_configs_tenant ON alert_configs(tenant_id);
			-- Cooldown guard lookup: alerts created after T for tenant X (and message M)
			CREATE INDEX IF NOT EXISTS idx_alerts_cooldown ON alerts(tenant_id, scope, created_at);
			CREATE INDEX IF NOT EXISTS idx_alerts_tenant_created ON alerts(tenant_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_destinations_tenant ON destinations(tenant_id);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
