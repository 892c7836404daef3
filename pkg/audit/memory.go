package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory audit store for development and tests.
// Records are held in insertion order; queries return newest first.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
	closed  bool
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Store appends a record.
func (s *MemoryStore) Store(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	// Copy so later caller mutation cannot corrupt the store.
	r := *record
	s.records = append(s.records, &r)
	return nil
}

// Query returns records matching the filters, newest first.
func (s *MemoryStore) Query(ctx context.Context, query *Query) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var matched []*Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if matches(s.records[i], query) {
			matched = append(matched, s.records[i])
		}
	}

	if query != nil && query.Offset > 0 {
		if query.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[query.Offset:]
	}
	if query != nil && query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

// Count returns the number of matching records.
func (s *MemoryStore) Count(ctx context.Context, query *Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}

	var n int64
	for _, r := range s.records {
		if matches(r, query) {
			n++
		}
	}
	return n, nil
}

// DeleteOlderThan removes records created before the cutoff.
func (s *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	kept := s.records[:0]
	var deleted int64
	for _, r := range s.records {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return deleted, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

func matches(r *Record, q *Query) bool {
	if q == nil {
		return true
	}
	if q.UserID != "" && r.UserID != q.UserID {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if q.Action != "" && r.Action != q.Action {
		return false
	}
	if q.StartTime != nil && r.CreatedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.CreatedAt.After(*q.EndTime) {
		return false
	}
	return true
}
