package enforce

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veritas-hq/bastion/pkg/approval"
)

// EnforceTool vets a tool invocation. File operations go through the
// filesystem-policy collaborator, shell commands through the
// command-policy collaborator plus high-risk classification, and git
// pushes, package installs, and network calls are gated purely by
// configuration flags. Gated paths funnel into the approval workflow.
func (e *Enforcer) EnforceTool(ctx context.Context, req ToolRequest) *Result {
	ctx, span := e.tracer.Start(ctx, "enforce.tool",
		trace.WithAttributes(
			attribute.String("user_id", req.UserID),
			attribute.String("tool", req.Tool),
		))
	defer span.End()

	start := time.Now()
	if !e.cfg.Engine.Enabled {
		return allowed()
	}

	var result *Result
	defer func() { e.observe("tool", result, start) }()

	switch req.Tool {
	case "file.read":
		result = e.enforceFileOp(ctx, req, "read")
	case "file.write":
		result = e.enforceFileOp(ctx, req, "write")
	case "file.delete":
		result = e.enforceFileOp(ctx, req, "delete")
	case "shell.exec":
		result = e.enforceShell(ctx, req)
	case "git.push":
		result = e.enforceGitPush(ctx, req)
	case "package.install":
		result = e.enforcePackageInstall(ctx, req)
	case "network.request":
		result = e.enforceNetwork(ctx, req)
	default:
		result = blocked(fmt.Sprintf("unknown tool %q", req.Tool))
	}
	return result
}

func (e *Enforcer) enforceFileOp(ctx context.Context, req ToolRequest, op string) *Result {
	if e.fs != nil {
		var decision PolicyDecision
		switch op {
		case "read":
			decision = e.fs.CheckRead(req.Path)
		case "write":
			decision = e.fs.CheckWrite(req.Path)
		case "delete":
			decision = e.fs.CheckDelete(req.Path)
		}
		if !decision.Allowed {
			e.audit(req.UserID, "enforce.file_denied", "enforcement", req.Path,
				map[string]any{"op": op, "reason": decision.Reason})
			return blocked(decision.Reason)
		}
	}

	cls := approval.ClassifyFileOperation(op, req.Path)
	if !cls.RequiresApproval {
		return allowed()
	}
	return e.gate(ctx, req, "file."+op, cls)
}

func (e *Enforcer) enforceShell(ctx context.Context, req ToolRequest) *Result {
	var collaboratorRisk approval.RiskLevel
	if e.command != nil {
		decision := e.command.CheckCommand(req.Command)
		if !decision.Allowed {
			e.audit(req.UserID, "enforce.command_denied", "enforcement", req.Command,
				map[string]any{"reason": decision.Reason})
			return blocked(decision.Reason)
		}
		collaboratorRisk = decision.RiskLevel
	}

	// High-risk command patterns are tested independently of the
	// command-policy collaborator. The gate grades by whichever risk
	// assessment is higher, the pattern table's or the collaborator's.
	cls := approval.ClassifyCommand(req.Command)
	if collaboratorRisk != "" && collaboratorRisk.Rank() > cls.RiskLevel.Rank() {
		cls.RiskLevel = collaboratorRisk
	}
	needsGate := cls.RequiresApproval ||
		(cls.RiskLevel == approval.RiskHigh && e.cfg.Tools.ShellHighRiskRequiresApproval)
	if !needsGate {
		return allowed()
	}
	return e.gate(ctx, req, "shell.exec", cls)
}

func (e *Enforcer) enforceGitPush(ctx context.Context, req ToolRequest) *Result {
	cls := approval.ClassifyGitOperation("push", req.GitArgs)
	if !e.cfg.Tools.GitPushRequiresApproval && !cls.RequiresApproval {
		return allowed()
	}
	// Gating flag on: every push needs the workflow, graded by its
	// classification.
	cls.RequiresApproval = true
	return e.gate(ctx, req, "git.push", cls)
}

func (e *Enforcer) enforcePackageInstall(ctx context.Context, req ToolRequest) *Result {
	if !e.cfg.Tools.PackageInstallRequiresApproval {
		return allowed()
	}
	cls := approval.ClassifyCommand(req.Command)
	if cls.Category != approval.CategoryPackageInstall {
		cls = approval.Classification{
			Action:    req.Command,
			Category:  approval.CategoryPackageInstall,
			RiskLevel: approval.RiskMedium,
		}
	}
	cls.RequiresApproval = true
	return e.gate(ctx, req, "package.install", cls)
}

func (e *Enforcer) enforceNetwork(ctx context.Context, req ToolRequest) *Result {
	if !e.cfg.Tools.NetworkRequiresApproval {
		return allowed()
	}
	cls := approval.Classification{
		Action:           req.Target,
		Category:         approval.CategoryShellNetwork,
		RiskLevel:        approval.RiskMedium,
		RequiresApproval: true,
		Description:      "outbound network request",
	}
	return e.gate(ctx, req, "network.request", cls)
}

// gate funnels a classified tool action through the approval workflow
// and translates the outcome into an enforcement result.
func (e *Enforcer) gate(ctx context.Context, req ToolRequest, action string, cls approval.Classification) *Result {
	outcome, err := e.workflow.RequestApprovalForGate(ctx, approval.GateContext{
		UserID:         req.UserID,
		Action:         action,
		Classification: cls,
		Privileged:     req.Privileged,
		Payload: map[string]any{
			"session_id": req.SessionID,
			"tool":       req.Tool,
			"descriptor": cls.Action,
		},
	})
	if err != nil {
		// Availability over strictness: a workflow failure denies the
		// action rather than crashing the caller.
		e.logger.Error("approval gate failed", "action", action, "error", err)
		return blocked("approval workflow unavailable")
	}

	if e.metrics != nil && outcome.Request != nil {
		e.metrics.ApprovalsCreated.WithLabelValues(string(cls.RiskLevel)).Inc()
		if outcome.Status.Terminal() {
			e.metrics.ApprovalOutcomes.WithLabelValues(string(outcome.Status)).Inc()
		}
	}

	if outcome.Allowed {
		result := allowed()
		if outcome.AutoApproved {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s auto-approved (%s risk)", action, cls.RiskLevel))
		}
		return result
	}

	result := blocked(outcome.Reason)
	if outcome.Request != nil {
		result.Approval = &ApprovalInfo{
			ID:        outcome.Request.ID,
			Action:    outcome.Request.Action,
			RiskLevel: outcome.Request.RiskLevel,
			ExpiresAt: outcome.Request.ExpiresAt,
		}
	}
	return result
}
