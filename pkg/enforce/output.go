package enforce

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veritas-hq/bastion/pkg/guardrail"
)

// EnforceOutput vets a completed model response. Real usage, when
// supplied, is recorded against the budget first so the counters
// reflect the finished call even if the content is then blocked. A
// filter block wins over a budget violation in the reported reason.
func (e *Enforcer) EnforceOutput(ctx context.Context, req OutputRequest) *Result {
	_, span := e.tracer.Start(ctx, "enforce.output",
		trace.WithAttributes(attribute.String("user_id", req.UserID)))
	defer span.End()

	start := time.Now()
	if !e.cfg.Engine.Enabled {
		return allowed()
	}

	result := allowed()
	defer func() { e.observe("output", result, start) }()

	var budgetReason string
	if req.Usage != nil {
		if e.limiter != nil {
			e.limiter.Record(req.UserID, req.Usage.Total())
		}
		check := e.budget.Record(req.UserID, req.SessionID, *req.Usage)
		result.Warnings = append(result.Warnings, check.Warnings...)
		if !check.Allowed {
			if e.metrics != nil {
				e.metrics.BudgetRejections.Inc()
			}
			budgetReason = check.Reason
		}
	}

	verdict := e.filter.Check(guardrail.DirectionOutput, req.Output,
		e.policies(guardrail.DirectionOutput), req.UserID)
	e.observeVerdict(guardrail.DirectionOutput, verdict)

	action := e.escalate(verdict.Action)
	if action == guardrail.ActionBlock {
		warnings := result.Warnings
		result = blocked(triggerReason(verdict))
		result.Warnings = warnings
		result.Details = map[string]any{"triggered": policyIDs(verdict)}
		e.audit(req.UserID, "enforce.output_blocked", "enforcement", req.SessionID,
			map[string]any{"triggered": policyIDs(verdict)})
		return result
	}

	result.Action = action
	result.Warnings = append(result.Warnings, triggerWarnings(verdict)...)
	if budgetReason != "" {
		warnings := result.Warnings
		result = blocked(budgetReason)
		result.Warnings = warnings
	}
	return result
}
