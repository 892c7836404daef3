package enforce

import (
	"time"

	"veritas-hq/bastion/pkg/approval"
	"veritas-hq/bastion/pkg/budget"
	"veritas-hq/bastion/pkg/guardrail"
)

// Result is the uniform outcome of every enforcement entry point.
type Result struct {
	// Allowed is false when the action must not proceed.
	Allowed bool `json:"allowed"`

	// Action is the strongest guardrail action taken.
	Action guardrail.Action `json:"action"`

	// Reason explains a block; empty when allowed.
	Reason string `json:"reason,omitempty"`

	// Warnings are non-blocking findings the caller should surface.
	Warnings []string `json:"warnings,omitempty"`

	// Details carries entry-point specific context (triggered policies,
	// budget percentages, blocked files).
	Details map[string]any `json:"details,omitempty"`

	// Approval is set when the action is waiting on a human decision.
	Approval *ApprovalInfo `json:"approval,omitempty"`
}

// ApprovalInfo describes the approval a blocked action is waiting on.
type ApprovalInfo struct {
	ID        string             `json:"id"`
	Action    string             `json:"action"`
	RiskLevel approval.RiskLevel `json:"risk_level"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// allowed builds a passing result.
func allowed() *Result {
	return &Result{Allowed: true, Action: guardrail.ActionPass}
}

// blocked builds a blocking result.
func blocked(reason string) *Result {
	return &Result{Allowed: false, Action: guardrail.ActionBlock, Reason: reason}
}

// InputRequest is a prompt about to be sent to the model.
type InputRequest struct {
	UserID    string
	SessionID string
	Model     string
	Prompt    string
}

// OutputRequest is a completed model response.
type OutputRequest struct {
	UserID    string
	SessionID string
	Output    string

	// Usage is the real token consumption of the call, recorded against
	// the budget before the output is filtered. Nil skips recording.
	Usage *budget.TokenUsage
}

// ToolRequest is a tool invocation about to execute.
type ToolRequest struct {
	UserID    string
	SessionID string

	// Tool is the canonical tool action: "file.read", "file.write",
	// "file.delete", "shell.exec", "git.push", "package.install", or
	// "network.request".
	Tool string

	// Path is the target for file tools.
	Path string

	// Command is the raw command for shell and package tools.
	Command string

	// GitArgs are the push arguments for git.push.
	GitArgs string

	// Target is the destination for network.request.
	Target string

	// Privileged marks callers eligible for auto-approval.
	Privileged bool
}

// GeneratedFile is one file produced by code generation.
type GeneratedFile struct {
	Path    string
	Content string
}

// CodeGenRequest is a batch of generated files to vet before they are
// written to a workspace.
type CodeGenRequest struct {
	UserID    string
	SessionID string
	Workspace string
	Files     []GeneratedFile

	// RunFullVerification additionally runs the runtime verifier after
	// static validation passes.
	RunFullVerification bool
}
