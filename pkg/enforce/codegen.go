package enforce

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veritas-hq/bastion/pkg/guardrail"
)

// EnforceCodeGen vets a batch of generated files: every file passes
// the filesystem write policy and the output content filter, and only
// when no file is blocked do the static validation and optional
// runtime verification stages run.
func (e *Enforcer) EnforceCodeGen(ctx context.Context, req CodeGenRequest) *Result {
	_, span := e.tracer.Start(ctx, "enforce.codegen",
		trace.WithAttributes(
			attribute.String("user_id", req.UserID),
			attribute.Int("file_count", len(req.Files)),
		))
	defer span.End()

	start := time.Now()
	if !e.cfg.Engine.Enabled {
		return allowed()
	}

	result := allowed()
	defer func() { e.observe("codegen", result, start) }()

	type blockedFile struct {
		Path   string `json:"path"`
		Reason string `json:"reason"`
	}
	var blockedFiles []blockedFile

	for _, file := range req.Files {
		if e.fs != nil {
			if decision := e.fs.CheckWrite(file.Path); !decision.Allowed {
				blockedFiles = append(blockedFiles, blockedFile{file.Path, decision.Reason})
				continue
			}
		}

		verdict := e.filter.Check(guardrail.DirectionOutput, file.Content,
			e.policies(guardrail.DirectionOutput), req.UserID)
		e.observeVerdict(guardrail.DirectionOutput, verdict)

		if e.escalate(verdict.Action) == guardrail.ActionBlock {
			blockedFiles = append(blockedFiles, blockedFile{file.Path, triggerReason(verdict)})
			continue
		}
		result.Warnings = append(result.Warnings, triggerWarnings(verdict)...)
	}

	if len(blockedFiles) > 0 {
		warnings := result.Warnings
		result = blocked(fmt.Sprintf("%d of %d generated files blocked", len(blockedFiles), len(req.Files)))
		result.Warnings = warnings
		result.Details = map[string]any{"blocked_files": blockedFiles}
		e.audit(req.UserID, "enforce.codegen_blocked", "enforcement", req.Workspace,
			map[string]any{"blocked_count": len(blockedFiles)})
		return result
	}

	// Validation stages run only on a fully unblocked batch.
	if e.validator != nil {
		for _, file := range req.Files {
			if err := e.validator.ValidateSyntax(file.Path, file.Content); err != nil {
				warnings := result.Warnings
				result = blocked(fmt.Sprintf("syntax validation failed for %s: %v", file.Path, err))
				result.Warnings = warnings
				return result
			}
		}
		if req.Workspace != "" {
			if err := e.validator.ValidateCode(req.Workspace); err != nil {
				warnings := result.Warnings
				result = blocked(fmt.Sprintf("code validation failed: %v", err))
				result.Warnings = warnings
				return result
			}
		}
	}

	if req.RunFullVerification && e.verifier != nil {
		if err := e.verifier.RunFullVerification(req.Workspace); err != nil {
			warnings := result.Warnings
			result = blocked(fmt.Sprintf("runtime verification failed: %v", err))
			result.Warnings = warnings
			return result
		}
	}

	return result
}
