package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"github.com/AustinWheel/diving-duck-sub000/internal/bucket"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool

	// RetentionDays is the TTL in days for event retention.
	RetentionDays int
}

// ClickHouseStorage implements EventStorage for ClickHouse. Events are
// stored one row per event keyed by bucket id, which gives the engine
// its atomic append primitive: a bucket is an append-only log of rows,
// and its count is always the number of rows it holds.
type ClickHouseStorage struct {
	config *ClickHouseConfig
	db     *sql.DB
	events *clickhouseEventRepo
}

// NewClickHouseStorage creates a new ClickHouse storage.
func NewClickHouseStorage(config *ClickHouseConfig) *ClickHouseStorage {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 30
	}

	return &ClickHouseStorage{config: config}
}

// Open initializes the ClickHouse connection.
func (s *ClickHouseStorage) Open() error {
	opts := &clickhouse.Options{
		Addr: s.config.Addresses,
		Auth: clickhouse.Auth{
			Database: s.config.Database,
			Username: s.config.Username,
			Password: s.config.Password,
		},
		DialTimeout:  s.config.DialTimeout,
		MaxOpenConns: s.config.MaxOpenConns,
		MaxIdleConns: s.config.MaxIdleConns,
	}

	if s.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	s.db = db
	s.events = &clickhouseEventRepo{db: db}
	return nil
}

// Close closes the database connection.
func (s *ClickHouseStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the events table if it doesn't exist.
func (s *ClickHouseStorage) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS events (
			id UUID DEFAULT generateUUIDv4(),
			bucket_id String,
			tenant_id String,
			type LowCardinality(String),
			message String,
			timestamp DateTime64(3, 'UTC'),
			meta String,
			_date Date DEFAULT toDate(timestamp)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (tenant_id, bucket_id, timestamp, id)
		TTL _date + INTERVAL %d DAY DELETE
		SETTINGS index_granularity = 8192
	`, s.config.RetentionDays)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	indexes := []string{
		"ALTER TABLE events ADD INDEX IF NOT EXISTS idx_message message TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 4",
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			// Index creation may not be supported in all ClickHouse versions
			log.Printf("create clickhouse index: %v", err)
		}
	}

	return nil
}

// Ping checks the connection health.
func (s *ClickHouseStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Events returns the event repository.
func (s *ClickHouseStorage) Events() EventRepository {
	return s.events
}

// clickhouseEventRepo implements EventRepository for ClickHouse.
type clickhouseEventRepo struct {
	db *sql.DB
}

// Append stores one event as a single row insert.
func (r *clickhouseEventRepo) Append(ctx context.Context, event *models.Event) error {
	if event.BucketID == "" {
		return fmt.Errorf("event bucket id is required")
	}

	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}

	metaJSON, _ := json.Marshal(event.Meta)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, bucket_id, tenant_id, type, message, timestamp, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, event.BucketID, event.TenantID, string(event.Type), event.Message,
		event.Timestamp, string(metaJSON))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// FetchRange returns events in the covering buckets re-filtered to the
// exact [start, end] window.
func (r *clickhouseEventRepo) FetchRange(ctx context.Context, tenantID string, bucketIDs []string, start, end time.Time) ([]*models.Event, error) {
	if len(bucketIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, bucket_id, tenant_id, type, message, timestamp, meta
		FROM events
		WHERE tenant_id = ? AND bucket_id IN (%s) AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp
	`, placeholders(len(bucketIDs)))

	args := make([]any, 0, len(bucketIDs)+3)
	args = append(args, tenantID)
	for _, id := range bucketIDs {
		args = append(args, id)
	}
	args = append(args, start, end)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// FetchBuckets returns bucket documents for the given ids, grouping
// fetched rows by bucket. Buckets without rows are omitted.
func (r *clickhouseEventRepo) FetchBuckets(ctx context.Context, tenantID string, bucketIDs []string, sizeMinutes int) ([]*models.Bucket, error) {
	if len(bucketIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, bucket_id, tenant_id, type, message, timestamp, meta
		FROM events
		WHERE tenant_id = ? AND bucket_id IN (%s)
		ORDER BY bucket_id, timestamp
	`, placeholders(len(bucketIDs)))

	args := make([]any, 0, len(bucketIDs)+1)
	args = append(args, tenantID)
	for _, id := range bucketIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	return groupBuckets(events, sizeMinutes)
}

// CountRange counts events in the covering buckets within [start, end],
// filtered by type set and exact message when given.
func (r *clickhouseEventRepo) CountRange(ctx context.Context, tenantID string, bucketIDs []string, start, end time.Time, types []models.EventType, message string) (int64, error) {
	if len(bucketIDs) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString("SELECT count() FROM events WHERE tenant_id = ? AND bucket_id IN (")
	sb.WriteString(placeholders(len(bucketIDs)))
	sb.WriteString(") AND timestamp >= ? AND timestamp <= ?")

	args := make([]any, 0, len(bucketIDs)+len(types)+4)
	args = append(args, tenantID)
	for _, id := range bucketIDs {
		args = append(args, id)
	}
	args = append(args, start, end)

	if len(types) > 0 {
		sb.WriteString(" AND type IN (")
		sb.WriteString(placeholders(len(types)))
		sb.WriteString(")")
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	if message != "" {
		sb.WriteString(" AND message = ?")
		args = append(args, message)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func scanEvents(rows *sql.Rows) ([]*models.Event, error) {
	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		var eventType, metaJSON string

		err := rows.Scan(&event.ID, &event.BucketID, &event.TenantID, &eventType,
			&event.Message, &event.Timestamp, &metaJSON)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		event.Type = models.EventType(eventType)
		if metaJSON != "" && metaJSON != "null" {
			if err := json.Unmarshal([]byte(metaJSON), &event.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal meta: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// groupBuckets assembles bucket documents from events ordered by bucket id.
func groupBuckets(events []*models.Event, sizeMinutes int) ([]*models.Bucket, error) {
	var buckets []*models.Bucket
	byID := make(map[string]*models.Bucket)

	for _, event := range events {
		b, ok := byID[event.BucketID]
		if !ok {
			tenantID, slotStart, err := bucket.ParseKey(event.BucketID)
			if err != nil {
				return nil, err
			}
			b = &models.Bucket{
				ID:       event.BucketID,
				TenantID: tenantID,
				Start:    slotStart,
				End:      slotStart.Add(time.Duration(sizeMinutes) * time.Minute),
			}
			byID[event.BucketID] = b
			buckets = append(buckets, b)
		}
		b.Events = append(b.Events, event)
		b.EventCount++
	}
	return buckets, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
