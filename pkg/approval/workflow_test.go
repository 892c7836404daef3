package approval

import (
	"context"
	"testing"
	"time"

	"veritas-hq/bastion/pkg/config"
)

func testApprovalConfig() config.ApprovalConfig {
	return config.ApprovalConfig{
		Backend:            "memory",
		WaitTimeout:        60 * time.Second,
		PollInterval:       time.Second,
		LowRiskExpiry:      24 * time.Hour,
		MediumRiskExpiry:   4 * time.Hour,
		HighRiskExpiry:     time.Hour,
		AutoApproveLowRisk: true,
	}
}

func newTestWorkflow(t *testing.T) (*Workflow, *time.Time) {
	t.Helper()
	w := NewWorkflow(NewMemoryStore(), testApprovalConfig(), nil)
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }
	return w, &clock
}

func TestCreateExpiryByRiskLevel(t *testing.T) {
	w, clock := newTestWorkflow(t)
	ctx := context.Background()

	tests := []struct {
		risk RiskLevel
		want time.Duration
	}{
		{RiskLow, 24 * time.Hour},
		{RiskMedium, 4 * time.Hour},
		{RiskHigh, time.Hour},
	}
	for _, tt := range tests {
		req, err := w.Create(ctx, "alice", "tool.run", tt.risk, "", nil, time.Time{})
		if err != nil {
			t.Fatalf("Create(%s) failed: %v", tt.risk, err)
		}
		if req.Status != StatusPending {
			t.Errorf("%s: status = %s, want pending", tt.risk, req.Status)
		}
		if got := req.ExpiresAt.Sub(req.CreatedAt); got != tt.want {
			t.Errorf("%s: expiry window = %v, want %v", tt.risk, got, tt.want)
		}
		if !req.CreatedAt.Equal(*clock) {
			t.Errorf("%s: created_at = %v, want %v", tt.risk, req.CreatedAt, *clock)
		}
	}
}

func TestCreateExplicitExpiryOverride(t *testing.T) {
	w, clock := newTestWorkflow(t)

	custom := clock.Add(10 * time.Minute)
	req, err := w.Create(context.Background(), "alice", "tool.run", RiskHigh, "", nil, custom)
	if err != nil {
		t.Fatal(err)
	}
	if !req.ExpiresAt.Equal(custom) {
		t.Errorf("expires_at = %v, want override %v", req.ExpiresAt, custom)
	}
}

func TestResolveApprove(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	req, _ := w.Create(ctx, "alice", "git.push", RiskHigh, "forced push", nil, time.Time{})

	resolved, err := w.Resolve(ctx, req.ID, "bob", DecisionApprove, "looks fine")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != StatusApproved {
		t.Errorf("status = %s, want approved", resolved.Status)
	}
	if resolved.ResolvedBy != "bob" || resolved.ResolvedAt == nil {
		t.Errorf("resolution fields not set: %+v", resolved)
	}
	if resolved.Reason != "looks fine" {
		t.Errorf("reason = %q, want resolver comment", resolved.Reason)
	}
}

func TestResolveIdempotent(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	req, _ := w.Create(ctx, "alice", "git.push", RiskHigh, "", nil, time.Time{})
	first, err := w.Resolve(ctx, req.ID, "bob", DecisionReject, "no")
	if err != nil {
		t.Fatal(err)
	}

	// A second resolve, even with the opposite decision, is a no-op.
	second, err := w.Resolve(ctx, req.ID, "carol", DecisionApprove, "yes")
	if err != nil {
		t.Fatalf("second Resolve errored: %v", err)
	}
	if second.Status != StatusRejected {
		t.Errorf("second resolve changed status to %s", second.Status)
	}
	if second.ResolvedBy != first.ResolvedBy {
		t.Errorf("second resolve changed resolver to %s", second.ResolvedBy)
	}
}

func TestResolveMissingRequest(t *testing.T) {
	w, _ := newTestWorkflow(t)

	_, err := w.Resolve(context.Background(), "no-such-id", "bob", DecisionApprove, "")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLazyExpiryOnGet(t *testing.T) {
	w, clock := newTestWorkflow(t)
	ctx := context.Background()

	req, _ := w.Create(ctx, "alice", "git.push", RiskHigh, "", nil, time.Time{})

	*clock = clock.Add(61 * time.Minute)
	got, err := w.Get(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}

	// The transition persisted.
	stored, _ := w.store.Get(ctx, req.ID)
	if stored.Status != StatusExpired {
		t.Errorf("stored status = %s, want expired", stored.Status)
	}

	// An expired request cannot be resolved.
	resolved, err := w.Resolve(ctx, req.ID, "bob", DecisionApprove, "")
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != StatusExpired {
		t.Errorf("resolve after expiry produced %s", resolved.Status)
	}
}

func TestListPendingExpiresOverdue(t *testing.T) {
	w, clock := newTestWorkflow(t)
	ctx := context.Background()

	w.Create(ctx, "alice", "a.one", RiskHigh, "", nil, time.Time{})  // expires in 1h
	w.Create(ctx, "alice", "a.two", RiskLow, "", nil, time.Time{})   // expires in 24h
	w.Create(ctx, "bob", "b.three", RiskLow, "", nil, time.Time{})

	*clock = clock.Add(2 * time.Hour)

	pending, err := w.ListPending(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Action != "a.two" {
		t.Errorf("pending = %+v, want only a.two", pending)
	}

	all, _ := w.ListPending(ctx, "")
	if len(all) != 2 {
		t.Errorf("expected 2 pending across users, got %d", len(all))
	}
}

func TestWaitForApprovalResolved(t *testing.T) {
	w := NewWorkflow(NewMemoryStore(), testApprovalConfig(), nil)
	ctx := context.Background()

	req, _ := w.Create(ctx, "alice", "git.push", RiskHigh, "", nil, time.Time{})

	go func() {
		time.Sleep(30 * time.Millisecond)
		w.Resolve(ctx, req.ID, "bob", DecisionApprove, "")
	}()

	status, err := w.WaitForApproval(ctx, req.ID, time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusApproved {
		t.Errorf("status = %s, want approved", status)
	}
}

func TestWaitForApprovalTimeoutLeavesPending(t *testing.T) {
	w := NewWorkflow(NewMemoryStore(), testApprovalConfig(), nil)
	ctx := context.Background()

	req, _ := w.Create(ctx, "alice", "git.push", RiskHigh, "", nil, time.Time{})

	status, err := w.WaitForApproval(ctx, req.ID, 30*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusPending {
		t.Errorf("status = %s, want pending on timeout", status)
	}

	// The record is still resolvable after the wait gave up.
	resolved, err := w.Resolve(ctx, req.ID, "bob", DecisionApprove, "")
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != StatusApproved {
		t.Errorf("post-timeout resolve produced %s", resolved.Status)
	}
}
