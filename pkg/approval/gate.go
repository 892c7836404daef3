package approval

import (
	"context"
	"fmt"
	"time"

	"veritas-hq/bastion/pkg/audit"
)

// GateContext is everything the gate needs to decide whether an action
// may proceed without a human.
type GateContext struct {
	// UserID is the acting user.
	UserID string

	// Action is the canonical action name, e.g. "git.push".
	Action string

	// Classification is the pattern-table result for the raw descriptor.
	Classification Classification

	// Privileged marks callers whose role may receive auto-approvals.
	Privileged bool

	// Payload is opaque context attached to any created request.
	Payload map[string]any
}

// GateDecision is the outcome of CheckApprovalGate.
type GateDecision struct {
	// RequiresApproval is true when the action cannot proceed without
	// an approval (human or auto).
	RequiresApproval bool

	// AutoApprove is true when the approval may be granted without a
	// human round-trip.
	AutoApprove bool

	// Reason explains the decision.
	Reason string
}

// GateOutcome is the final result of RequestApprovalForGate.
type GateOutcome struct {
	// Allowed is true when the action may proceed now.
	Allowed bool

	// AutoApproved is true when no human was involved.
	AutoApproved bool

	// Status is the approval status that produced the outcome; empty
	// when no request was needed.
	Status Status

	// Request is the created approval record, if any. A pending status
	// means the wait timed out and the record is still resolvable.
	Request *Request

	// Reason explains a denial.
	Reason string
}

// CheckApprovalGate decides whether the action needs approval and
// whether that approval may be automatic.
//
// Auto-approval requires all of: auto-approve enabled in config, risk
// below high, a non-security category, and a privileged caller. High
// risk is never auto-approved, regardless of role.
func (w *Workflow) CheckApprovalGate(gctx GateContext) GateDecision {
	cls := gctx.Classification

	if !cls.RequiresApproval && !RequiresApproval(gctx.Action, cls.RiskLevel) {
		return GateDecision{Reason: "no approval required"}
	}

	decision := GateDecision{RequiresApproval: true}
	switch {
	case cls.RiskLevel == RiskHigh:
		decision.Reason = "high risk actions always require human approval"
	case cls.Category == CategorySecurityConfig:
		decision.Reason = "security configuration changes require human approval"
	case !gctx.Privileged:
		decision.Reason = "caller role is not privileged"
	case !w.cfg.AutoApproveLowRisk:
		decision.Reason = "auto-approval disabled"
	default:
		decision.AutoApprove = true
		decision.Reason = "auto-approved for privileged caller"
	}
	return decision
}

// RequestApprovalForGate turns a gate decision into an immediate pass,
// an audited auto-approval, or a full create-and-wait cycle bounded by
// the configured wait timeout.
func (w *Workflow) RequestApprovalForGate(ctx context.Context, gctx GateContext) (*GateOutcome, error) {
	decision := w.CheckApprovalGate(gctx)

	if !decision.RequiresApproval {
		return &GateOutcome{Allowed: true}, nil
	}

	if decision.AutoApprove {
		w.auditAutoApproval(gctx)
		return &GateOutcome{Allowed: true, AutoApproved: true, Status: StatusApproved}, nil
	}

	req, err := w.Create(ctx, gctx.UserID, gctx.Action, gctx.Classification.RiskLevel,
		decision.Reason, gctx.Payload, time.Time{})
	if err != nil {
		return nil, err
	}

	status, err := w.WaitForApproval(ctx, req.ID, 0, 0)
	if err != nil && ctx.Err() == nil {
		return nil, err
	}

	outcome := &GateOutcome{Status: status, Request: req}
	switch status {
	case StatusApproved:
		outcome.Allowed = true
	case StatusRejected:
		outcome.Reason = fmt.Sprintf("approval %s was rejected", req.ID)
	case StatusExpired:
		outcome.Reason = fmt.Sprintf("approval %s expired before resolution", req.ID)
	default:
		outcome.Reason = fmt.Sprintf("approval %s still pending after wait timeout", req.ID)
	}
	return outcome, nil
}

func (w *Workflow) auditAutoApproval(gctx GateContext) {
	if w.recorder == nil {
		return
	}
	w.recorder.Emit(&audit.Record{
		UserID:   gctx.UserID,
		Action:   "approval.auto_approved",
		Category: "approval",
		Target:   gctx.Action,
		Metadata: map[string]any{
			"category":   gctx.Classification.Category,
			"risk_level": string(gctx.Classification.RiskLevel),
		},
	})
}
