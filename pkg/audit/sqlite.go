package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		BusyTimeout:  5 * time.Second,
	}
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	actor      TEXT,
	action     TEXT NOT NULL,
	category   TEXT NOT NULL,
	target     TEXT,
	metadata   TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_user_id    ON audit_log(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_category   ON audit_log(category);
CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_log(created_at);
`

// SQLiteStore implements Store using SQLite in WAL mode.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the audit database at the configured
// path and ensures the schema exists.
func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %q: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "audit.sqlite"),
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	s.logger.Info("audit storage initialized", "path", cfg.Path)
	return s, nil
}

// Store persists one audit record.
func (s *SQLiteStore) Store(ctx context.Context, record *Record) error {
	var metadata []byte
	if record.Metadata != nil {
		var err error
		metadata, err = json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, user_id, actor, action, category, target, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.Actor, record.Action,
		record.Category, record.Target, string(metadata), record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// Query retrieves records matching the filters, newest first.
func (s *SQLiteStore) Query(ctx context.Context, query *Query) ([]*Record, error) {
	where, args := buildWhere(query)

	q := "SELECT id, user_id, actor, action, category, target, metadata, created_at FROM audit_log" +
		where + " ORDER BY created_at DESC"
	if query != nil && query.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", query.Limit)
		if query.Offset > 0 {
			q += fmt.Sprintf(" OFFSET %d", query.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var r Record
		var actor, target, metadata sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &actor, &r.Action, &r.Category, &target, &metadata, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		r.Actor = actor.String
		r.Target = target.String
		if metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				s.logger.Warn("corrupt audit metadata", "id", r.ID, "error", err)
			}
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// Count returns the number of records matching the filters.
func (s *SQLiteStore) Count(ctx context.Context, query *Query) (int64, error) {
	where, args := buildWhere(query)

	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes records created before the cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_log WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit records: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func buildWhere(query *Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var conds []string
	var args []any
	if query.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, query.UserID)
	}
	if query.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, query.Category)
	}
	if query.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, query.Action)
	}
	if query.StartTime != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, query.StartTime.UTC())
	}
	if query.EndTime != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, query.EndTime.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
