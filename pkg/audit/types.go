package audit

import (
	"context"
	"errors"
	"time"
)

// Record is a single audit log entry. One record is written for every
// guardrail trigger, budget violation, approval transition, and
// enforcement block.
type Record struct {
	// ID is a UUID assigned by the recorder if empty.
	ID string `json:"id"`

	// UserID is the user the audited action belongs to.
	UserID string `json:"user_id"`

	// Actor is who performed the action, when different from the user
	// (e.g., the approver resolving a request). Optional.
	Actor string `json:"actor,omitempty"`

	// Action names what happened, conventionally "<domain>.<verb>"
	// (e.g., "approval.created", "guardrail.triggered").
	Action string `json:"action"`

	// Category groups records for querying: "guardrail", "budget",
	// "approval", "enforcement".
	Category string `json:"category"`

	// Target is what the action applied to (a path, command, or record
	// ID). Optional.
	Target string `json:"target,omitempty"`

	// Metadata holds structured detail, stored as JSON text.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the record was emitted.
	CreatedAt time.Time `json:"created_at"`
}

// Query defines filter parameters for reading audit records.
type Query struct {
	UserID    string     `json:"user_id,omitempty"`
	Category  string     `json:"category,omitempty"`
	Action    string     `json:"action,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

// Store defines the interface for audit storage backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Store persists one audit record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the filters, newest first.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteOlderThan removes records created before the cutoff.
	// Returns the number of records deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases resources held by the store.
	Close() error
}

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("audit store is closed")
