package enforce

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veritas-hq/bastion/pkg/guardrail"
)

// EnforceInput vets a prompt before it is sent to the model: blocked
// users are turned away first, then content filtering, then a rate
// limit check and a budget pre-check with a length-derived token
// estimate.
func (e *Enforcer) EnforceInput(ctx context.Context, req InputRequest) *Result {
	_, span := e.tracer.Start(ctx, "enforce.input",
		trace.WithAttributes(attribute.String("user_id", req.UserID)))
	defer span.End()

	start := time.Now()
	if !e.cfg.Engine.Enabled {
		return allowed()
	}

	result := allowed()
	defer func() { e.observe("input", result, start) }()

	if e.monitor != nil && e.monitor.IsBlocked(req.UserID) {
		result = blocked("user is blocked")
		e.audit(req.UserID, "enforce.user_blocked", "enforcement", req.SessionID, nil)
		return result
	}

	verdict := e.filter.Check(guardrail.DirectionInput, req.Prompt,
		e.policies(guardrail.DirectionInput), req.UserID)
	e.observeVerdict(guardrail.DirectionInput, verdict)

	action := e.escalate(verdict.Action)
	if action == guardrail.ActionBlock {
		e.recordBehavior(req.UserID, verdict, true)
		result = blocked(triggerReason(verdict))
		result.Details = map[string]any{"triggered": policyIDs(verdict)}
		e.audit(req.UserID, "enforce.input_blocked", "enforcement", req.SessionID,
			map[string]any{"triggered": policyIDs(verdict)})
		return result
	}
	e.recordBehavior(req.UserID, verdict, false)
	result.Action = action
	result.Warnings = triggerWarnings(verdict)

	estimated := e.estimator.EstimateText(req.Prompt, req.Model)
	if e.limiter != nil {
		if rl := e.limiter.Check(req.UserID, estimated); !rl.Allowed {
			if e.metrics != nil {
				e.metrics.RateLimitRejections.Inc()
			}
			result = blocked(rl.Reason)
			result.Warnings = triggerWarnings(verdict)
			result.Details = map[string]any{"retry_after": rl.RetryAfter.String()}
			e.audit(req.UserID, "enforce.rate_limited", "enforcement", req.SessionID,
				map[string]any{"reason": rl.Reason})
			return result
		}
	}

	e.budget.StartRequest(req.UserID, req.SessionID)
	check := e.budget.PreCheck(req.UserID, req.SessionID, estimated, req.Model)
	if !check.Allowed {
		if e.metrics != nil {
			e.metrics.BudgetRejections.Inc()
		}
		result = blocked(check.Reason)
		result.Warnings = append(triggerWarnings(verdict), check.Warnings...)
		result.Details = map[string]any{"percent_used": check.PercentUsed}
		return result
	}
	result.Warnings = append(result.Warnings, check.Warnings...)
	result.Details = map[string]any{
		"estimated_tokens": estimated,
		"percent_used":     check.PercentUsed,
	}
	return result
}
