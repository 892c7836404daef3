package approval

import "context"

// Store persists approval requests.
//
// Implementations must be safe for concurrent use. Get and ListPending
// return copies; callers never share memory with the store.
type Store interface {
	// Create persists a new request.
	Create(ctx context.Context, req *Request) error

	// Get returns the request by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Request, error)

	// Update overwrites an existing request, or returns ErrNotFound.
	Update(ctx context.Context, req *Request) error

	// ListPending returns all pending requests, optionally filtered by
	// user ID (empty matches all), oldest first.
	ListPending(ctx context.Context, userID string) ([]*Request, error)

	// Close releases store resources.
	Close() error
}
