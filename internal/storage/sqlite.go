package storage

import (
	"context"
	"database/sql"
	"fmt"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB

	tenants      *sqliteTenantRepo
	apiKeys      *sqliteAPIKeyRepo
	alertConfigs *sqliteAlertConfigRepo
	alerts       *sqliteAlertRepo
	destinations *sqliteDestinationRepo
	usage        *sqliteUsageRepo
}

// NewSQLiteStorage creates a new SQLite storage.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", s.path))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db

	s.tenants = &sqliteTenantRepo{db: db}
	s.apiKeys = &sqliteAPIKeyRepo{db: db}
	s.alertConfigs = &sqliteAlertConfigRepo{db: db}
	s.alerts = &sqliteAlertRepo{db: db}
	s.destinations = &sqliteDestinationRepo{db: db}
	s.usage = &sqliteUsageRepo{db: db}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate runs all pending migrations.
func (s *SQLiteStorage) Migrate() error {
	if s.db == nil {
		return fmt.Errorf("storage not open")
	}
	return runMigrations(s.db)
}

// Tenants returns the tenant repository.
func (s *SQLiteStorage) Tenants() TenantRepository { return s.tenants }

// APIKeys returns the API key repository.
func (s *SQLiteStorage) APIKeys() APIKeyRepository { return s.apiKeys }

// AlertConfigs returns the alert config repository.
func (s *SQLiteStorage) AlertConfigs() AlertConfigRepository { return s.alertConfigs }

// Alerts returns the alert ledger repository.
func (s *SQLiteStorage) Alerts() AlertRepository { return s.alerts }

// Destinations returns the destination repository.
func (s *SQLiteStorage) Destinations() DestinationRepository { return s.destinations }

// Usage returns the usage counter repository.
func (s *SQLiteStorage) Usage() UsageRepository { return s.usage }

// DB exposes the underlying connection for health checks.
func (s *SQLiteStorage) DB() *sql.DB { return s.db }

// Helper functions shared by the sqlite repositories.

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
