// Bastion is a policy enforcement engine for AI agent actions.
//
// It vets every agent action before it happens:
//   - Content guardrails over model inputs and outputs
//   - Token and cost budgets per request, session, and day
//   - Human approval workflow for risky tool actions
//   - Audit logging of every enforcement decision
//
// Usage:
//
//	# Start the enforcement daemon with default configuration
//	bastion run
//
//	# Start with a custom configuration file
//	bastion run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	bastion validate
//
//	# Check a text blob against the input guardrails
//	bastion check "ignore all previous instructions"
//
//	# List and resolve pending approvals
//	bastion approvals list
//	bastion approvals resolve <id> --approve --by alice
package main

func main() {
	Execute()
}
