package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database schema for the audit trail.
const schema = `
CREATE TABLE IF NOT EXISTS admission_denials (
	id            TEXT PRIMARY KEY,
	occurred_at   INTEGER NOT NULL,
	identity      TEXT NOT NULL,
	operation     TEXT NOT NULL,
	retry_after_ms INTEGER NOT NULL,
	new_block     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_denials_identity
	ON admission_denials(identity, occurred_at DESC);

CREATE INDEX IF NOT EXISTS idx_denials_occurred_at
	ON admission_denials(occurred_at);
`

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger

	storeStmt *sql.Stmt
	listStmt  *sql.Stmt
	pruneStmt *sql.Stmt
}

// NewSQLiteStorage creates a SQLite audit backend, initializing the schema
// and enabling WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("%w: db path cannot be empty", ErrStorageFailure)
	}
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrStorageFailure, config.Path, err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "audit.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

// initialize sets pragmas, creates the schema, and prepares statements.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("%w: enable wal: %v", ErrStorageFailure, err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("%w: set busy_timeout: %v", ErrStorageFailure, err)
	}

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: create schema: %v", ErrStorageFailure, err)
	}

	var err error
	s.storeStmt, err = s.db.Prepare(`
		INSERT INTO admission_denials
			(id, occurred_at, identity, operation, retry_after_ms, new_block)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare store: %v", ErrStorageFailure, err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, occurred_at, identity, operation, retry_after_ms, new_block
		FROM admission_denials
		WHERE identity = ?
		ORDER BY occurred_at DESC
		LIMIT ?`)
	if err != nil {
		return fmt.Errorf("%w: prepare list: %v", ErrStorageFailure, err)
	}

	s.pruneStmt, err = s.db.Prepare(`
		DELETE FROM admission_denials WHERE occurred_at < ?`)
	if err != nil {
		return fmt.Errorf("%w: prepare prune: %v", ErrStorageFailure, err)
	}

	return nil
}

// Store persists one event.
func (s *SQLiteStorage) Store(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	newBlock := 0
	if event.NewBlock {
		newBlock = 1
	}

	_, err := s.storeStmt.ExecContext(ctx,
		event.ID,
		event.Time.UnixNano(),
		event.Identity,
		event.Operation,
		event.RetryAfter.Milliseconds(),
		newBlock,
	)
	if err != nil {
		return fmt.Errorf("%w: store: %v", ErrStorageFailure, err)
	}
	return nil
}

// ListByIdentity returns the most recent events for an identity, newest first.
func (s *SQLiteStorage) ListByIdentity(ctx context.Context, identity string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.listStmt.QueryContext(ctx, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStorageFailure, err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			event        Event
			occurredAt   int64
			retryAfterMs int64
			newBlock     int
		)
		if err := rows.Scan(&event.ID, &occurredAt, &event.Identity,
			&event.Operation, &retryAfterMs, &newBlock); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStorageFailure, err)
		}
		event.Time = time.Unix(0, occurredAt)
		event.RetryAfter = time.Duration(retryAfterMs) * time.Millisecond
		event.NewBlock = newBlock != 0
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrStorageFailure, err)
	}
	return events, nil
}

// Prune deletes events older than the cutoff.
func (s *SQLiteStorage) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.pruneStmt.ExecContext(ctx, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("%w: prune: %v", ErrStorageFailure, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", ErrStorageFailure, err)
	}
	return int(affected), nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStorage) Close() error {
	for _, stmt := range []*sql.Stmt{s.storeStmt, s.listStmt, s.pruneStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
