package approval

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "approvals.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	req := &Request{
		ID:        "apr-1",
		UserID:    "alice",
		Status:    StatusPending,
		Action:    "git.push",
		RiskLevel: RiskHigh,
		Reason:    "forced push to main",
		Payload:   map[string]any{"branch": "main"},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.Create(ctx, req); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "apr-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusPending || got.RiskLevel != RiskHigh {
		t.Errorf("fields lost in round trip: %+v", got)
	}
	if got.Payload["branch"] != "main" {
		t.Errorf("payload lost in round trip: %v", got.Payload)
	}
	if got.ResolvedAt != nil {
		t.Errorf("unresolved request has resolved_at: %v", got.ResolvedAt)
	}
}

func TestSQLiteStoreUpdateAndListPending(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, id := range []string{"apr-1", "apr-2"} {
		store.Create(ctx, &Request{
			ID: id, UserID: "alice", Status: StatusPending, Action: "tool.run",
			RiskLevel: RiskLow,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
			ExpiresAt: now.Add(24 * time.Hour),
		})
	}

	req, _ := store.Get(ctx, "apr-1")
	req.Status = StatusApproved
	resolved := now.Add(time.Minute)
	req.ResolvedAt = &resolved
	req.ResolvedBy = "bob"
	if err := store.Update(ctx, req); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	pending, err := store.ListPending(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != "apr-2" {
		t.Errorf("pending = %+v, want only apr-2", pending)
	}

	got, _ := store.Get(ctx, "apr-1")
	if got.Status != StatusApproved || got.ResolvedBy != "bob" || got.ResolvedAt == nil {
		t.Errorf("update lost fields: %+v", got)
	}
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	if _, err := store.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := store.Update(context.Background(), &Request{ID: "nope"}); err != ErrNotFound {
		t.Errorf("update err = %v, want ErrNotFound", err)
	}
}

func TestWorkflowOnSQLiteStore(t *testing.T) {
	w := NewWorkflow(newTestSQLiteStore(t), testApprovalConfig(), nil)
	ctx := context.Background()

	req, err := w.Create(ctx, "alice", "git.push", RiskHigh, "forced push", nil, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := w.Resolve(ctx, req.ID, "bob", DecisionApprove, "")
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != StatusApproved {
		t.Errorf("status = %s, want approved", resolved.Status)
	}
}
