package enforce

import "veritas-hq/bastion/pkg/approval"

// PolicyDecision is an allow/deny answer from a policy collaborator.
type PolicyDecision struct {
	Allowed bool
	Reason  string
}

// FilesystemPolicy decides whether the agent may touch a path. A nil
// collaborator allows everything.
type FilesystemPolicy interface {
	CheckRead(path string) PolicyDecision
	CheckWrite(path string) PolicyDecision
	CheckDelete(path string) PolicyDecision
}

// CommandDecision is the command-policy answer, including the
// collaborator's own risk grading. The shell gate grades by the higher
// of this and the pattern-table classification.
type CommandDecision struct {
	Allowed   bool
	Reason    string
	RiskLevel approval.RiskLevel
}

// CommandPolicy decides whether a shell command may run.
type CommandPolicy interface {
	CheckCommand(command string) CommandDecision
}

// CodeValidator statically validates generated code.
type CodeValidator interface {
	// ValidateSyntax checks a single file.
	ValidateSyntax(path, content string) error

	// ValidateCode checks the whole workspace (typically a compile).
	ValidateCode(workspace string) error
}

// RuntimeVerifier runs the full verification suite (tests, runtime
// checks) over a workspace.
type RuntimeVerifier interface {
	RunFullVerification(workspace string) error
}
