package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"veritas-hq/bastion/pkg/audit"
	"veritas-hq/bastion/pkg/config"
)

// Workflow manages the lifecycle of approval requests: creation with a
// risk-derived expiry, explicit resolution, lazy expiry on read, and a
// bounded polling wait.
type Workflow struct {
	store    Store
	cfg      config.ApprovalConfig
	recorder *audit.Recorder // optional
	logger   *slog.Logger

	// now is stubbed in tests to exercise expiry.
	now func() time.Time
}

// NewWorkflow creates a workflow over the given store. The recorder
// may be nil to disable audit emission.
func NewWorkflow(store Store, cfg config.ApprovalConfig, recorder *audit.Recorder) *Workflow {
	return &Workflow{
		store:    store,
		cfg:      cfg,
		recorder: recorder,
		logger:   slog.Default().With("component", "approval"),
		now:      time.Now,
	}
}

// expiryFor maps a risk level to its default request lifetime. Riskier
// actions get shorter windows so stale approvals cannot pile up.
func (w *Workflow) expiryFor(risk RiskLevel) time.Duration {
	switch risk {
	case RiskHigh:
		return w.cfg.HighRiskExpiry
	case RiskMedium:
		return w.cfg.MediumRiskExpiry
	default:
		return w.cfg.LowRiskExpiry
	}
}

// Create persists a new pending request. expiresAt overrides the
// risk-derived expiry when non-zero.
func (w *Workflow) Create(ctx context.Context, userID, action string, risk RiskLevel, reason string, payload map[string]any, expiresAt time.Time) (*Request, error) {
	now := w.now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(w.expiryFor(risk))
	}

	req := &Request{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusPending,
		Action:    action,
		RiskLevel: risk,
		Reason:    reason,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := w.store.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create approval request: %w", err)
	}

	w.audit(req, "approval.created", "")
	w.logger.Info("approval request created",
		"approval_id", req.ID,
		"user_id", userID,
		"action", action,
		"risk_level", risk,
		"expires_at", expiresAt,
	)
	return req, nil
}

// Get returns the request by ID, lazily transitioning it to expired
// when its expiry has passed.
func (w *Workflow) Get(ctx context.Context, id string) (*Request, error) {
	req, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.maybeExpire(ctx, req), nil
}

// Resolve moves a pending request to approved or rejected. Resolution
// is idempotent: resolving a terminal request is a no-op that returns
// the stored record unchanged. A non-empty reason replaces the
// request's reason.
func (w *Workflow) Resolve(ctx context.Context, id, by string, decision Decision, reason string) (*Request, error) {
	req, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req = w.maybeExpire(ctx, req)
	if req.Status.Terminal() {
		return req, nil
	}

	switch decision {
	case DecisionApprove:
		req.Status = StatusApproved
	case DecisionReject:
		req.Status = StatusRejected
	default:
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	now := w.now()
	req.ResolvedAt = &now
	req.ResolvedBy = by
	if reason != "" {
		req.Reason = reason
	}

	if err := w.store.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to resolve approval request: %w", err)
	}

	w.audit(req, "approval.resolved", by)
	w.logger.Info("approval request resolved",
		"approval_id", req.ID,
		"status", req.Status,
		"resolved_by", by,
	)
	return req, nil
}

// WaitForApproval polls the stored request until it leaves pending or
// the timeout elapses. On timeout the stored status is untouched and
// pending is returned; the request remains resolvable later. Zero
// timeout or poll interval fall back to the configured defaults.
func (w *Workflow) WaitForApproval(ctx context.Context, id string, timeout, pollInterval time.Duration) (Status, error) {
	if timeout <= 0 {
		timeout = w.cfg.WaitTimeout
	}
	if pollInterval <= 0 {
		pollInterval = w.cfg.PollInterval
	}

	deadline := w.now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		req, err := w.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if req.Status != StatusPending {
			return req.Status, nil
		}
		if !w.now().Before(deadline) {
			return StatusPending, nil
		}

		select {
		case <-ctx.Done():
			return StatusPending, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ListPending returns pending requests for the user (empty userID
// matches all), lazily expiring overdue entries and excluding them.
func (w *Workflow) ListPending(ctx context.Context, userID string) ([]*Request, error) {
	reqs, err := w.store.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := reqs[:0]
	for _, req := range reqs {
		if req = w.maybeExpire(ctx, req); req.Status == StatusPending {
			out = append(out, req)
		}
	}
	return out, nil
}

// maybeExpire transitions a pending request past its expiry to
// expired, persisting the change. Persistence failures are logged and
// the expired view is still returned so callers never act on an
// overdue approval.
func (w *Workflow) maybeExpire(ctx context.Context, req *Request) *Request {
	if req.Status != StatusPending || w.now().Before(req.ExpiresAt) {
		return req
	}

	req.Status = StatusExpired
	if err := w.store.Update(ctx, req); err != nil {
		w.logger.Error("failed to persist approval expiry", "approval_id", req.ID, "error", err)
	}
	w.audit(req, "approval.expired", "")
	return req
}

func (w *Workflow) audit(req *Request, action, actor string) {
	if w.recorder == nil {
		return
	}
	w.recorder.Emit(&audit.Record{
		UserID:   req.UserID,
		Actor:    actor,
		Action:   action,
		Category: "approval",
		Target:   req.ID,
		Metadata: map[string]any{
			"action":     req.Action,
			"status":     string(req.Status),
			"risk_level": string(req.RiskLevel),
		},
	})
}
