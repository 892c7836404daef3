package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists approval requests in a SQLite database. It uses
// the pure-Go driver so the approvals CLI cross-compiles without cgo.
type SQLiteStore struct {
	db *sql.DB
}

const approvalSchema = `
CREATE TABLE IF NOT EXISTS approval_requests (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	status      TEXT NOT NULL,
	action      TEXT NOT NULL,
	risk_level  TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	expires_at  TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP,
	resolved_by TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_approval_status ON approval_requests(status);
CREATE INDEX IF NOT EXISTS idx_approval_user ON approval_requests(user_id, status);
`

// NewSQLiteStore opens (and if necessary creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open approval database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure approval database: %w", err)
	}
	if _, err := db.Exec(approvalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create approval schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, req *Request) error {
	payload, err := marshalPayload(req.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO approval_requests
			(id, user_id, status, action, risk_level, reason, payload,
			 created_at, expires_at, resolved_at, resolved_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.UserID, string(req.Status), req.Action, string(req.RiskLevel),
		req.Reason, payload, req.CreatedAt, req.ExpiresAt, req.ResolvedAt, req.ResolvedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert approval request: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, action, risk_level, reason, payload,
		       created_at, expires_at, resolved_at, resolved_by
		FROM approval_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return req, err
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, req *Request) error {
	payload, err := marshalPayload(req.Payload)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE approval_requests
		SET status = ?, reason = ?, payload = ?, expires_at = ?,
		    resolved_at = ?, resolved_by = ?
		WHERE id = ?`,
		string(req.Status), req.Reason, payload, req.ExpiresAt,
		req.ResolvedAt, req.ResolvedBy, req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPending implements Store.
func (s *SQLiteStore) ListPending(ctx context.Context, userID string) ([]*Request, error) {
	query := `
		SELECT id, user_id, status, action, risk_level, reason, payload,
		       created_at, expires_at, resolved_at, resolved_by
		FROM approval_requests WHERE status = 'pending'`
	args := []any{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*Request, error) {
	var (
		req        Request
		status     string
		risk       string
		payload    string
		resolvedAt sql.NullTime
	)
	err := row.Scan(&req.ID, &req.UserID, &status, &req.Action, &risk,
		&req.Reason, &payload, &req.CreatedAt, &req.ExpiresAt,
		&resolvedAt, &req.ResolvedBy)
	if err != nil {
		return nil, err
	}
	req.Status = Status(status)
	req.RiskLevel = RiskLevel(risk)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode approval payload: %w", err)
		}
	}
	return &req, nil
}

func marshalPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode approval payload: %w", err)
	}
	return string(data), nil
}
