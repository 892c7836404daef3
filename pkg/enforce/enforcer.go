package enforce

import (
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"veritas-hq/bastion/pkg/approval"
	"veritas-hq/bastion/pkg/audit"
	"veritas-hq/bastion/pkg/budget"
	"veritas-hq/bastion/pkg/config"
	"veritas-hq/bastion/pkg/guardrail"
	"veritas-hq/bastion/pkg/ratelimit"
	"veritas-hq/bastion/pkg/telemetry/metrics"
	"veritas-hq/bastion/pkg/tokens"
	"veritas-hq/bastion/pkg/usermon"
)

// Deps are the collaborators an Enforcer is assembled from. Filter,
// Budget, and Workflow are required; everything else may be nil.
type Deps struct {
	Filter    *guardrail.Filter
	Budget    *budget.Manager
	Workflow  *approval.Workflow
	Estimator *tokens.Estimator
	Recorder  *audit.Recorder
	Metrics   *metrics.Metrics

	RateLimiter *ratelimit.Limiter
	Monitor     *usermon.Monitor

	Filesystem FilesystemPolicy
	Command    CommandPolicy
	Validator  CodeValidator
	Verifier   RuntimeVerifier
}

// Enforcer is the orchestrator: it sequences the content filter, the
// budget tracker, and the approval workflow behind four entry points,
// one per kind of agent action.
//
// The enforcer holds no per-request state; policy sets are the only
// mutable field and swap atomically under a lock on reload.
type Enforcer struct {
	cfg config.Config

	filter    *guardrail.Filter
	budget    *budget.Manager
	workflow  *approval.Workflow
	estimator *tokens.Estimator
	recorder  *audit.Recorder
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	monitor   *usermon.Monitor

	fs        FilesystemPolicy
	command   CommandPolicy
	validator CodeValidator
	verifier  RuntimeVerifier

	policyMu       sync.RWMutex
	inputPolicies  []guardrail.Policy
	outputPolicies []guardrail.Policy

	tracer trace.Tracer
	logger *slog.Logger
}

// New assembles an enforcer. The initial policy sets are the defaults
// with the configured overrides applied; SetPolicies swaps them later.
func New(cfg config.Config, deps Deps) *Enforcer {
	if deps.Estimator == nil {
		deps.Estimator = tokens.NewEstimator(nil)
	}
	return &Enforcer{
		cfg:            cfg,
		filter:         deps.Filter,
		budget:         deps.Budget,
		workflow:       deps.Workflow,
		estimator:      deps.Estimator,
		recorder:       deps.Recorder,
		metrics:        deps.Metrics,
		limiter:        deps.RateLimiter,
		monitor:        deps.Monitor,
		fs:             deps.Filesystem,
		command:        deps.Command,
		validator:      deps.Validator,
		verifier:       deps.Verifier,
		inputPolicies:  guardrail.ApplyOverrides(guardrail.DefaultInputPolicies(), cfg.Guardrail.InputPolicies),
		outputPolicies: guardrail.ApplyOverrides(guardrail.DefaultOutputPolicies(), cfg.Guardrail.OutputPolicies),
		tracer:         otel.Tracer("bastion/enforce"),
		logger:         slog.Default().With("component", "enforce"),
	}
}

// SetPolicies atomically replaces both policy sets. A nil slice keeps
// the current set for that direction.
func (e *Enforcer) SetPolicies(input, output []guardrail.Policy) {
	e.policyMu.Lock()
	defer e.policyMu.Unlock()
	if input != nil {
		e.inputPolicies = input
	}
	if output != nil {
		e.outputPolicies = output
	}
}

func (e *Enforcer) policies(direction guardrail.Direction) []guardrail.Policy {
	e.policyMu.RLock()
	defer e.policyMu.RUnlock()
	if direction == guardrail.DirectionOutput {
		return e.outputPolicies
	}
	return e.inputPolicies
}

// EndSession releases the budget tracker for the pair.
func (e *Enforcer) EndSession(userID, sessionID string) {
	e.budget.EndSession(userID, sessionID)
	e.audit(userID, "session.ended", "session", sessionID, nil)
}

// escalate applies strict mode: warn verdicts become blocks.
func (e *Enforcer) escalate(action guardrail.Action) guardrail.Action {
	if e.cfg.Engine.StrictMode && action == guardrail.ActionWarn {
		return guardrail.ActionBlock
	}
	return action
}

// observe records metrics for one finished entry point call.
func (e *Enforcer) observe(entryPoint string, result *Result, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveEnforcement(entryPoint, result.Allowed, time.Since(start))
}

// observeVerdict records filter metrics for one verdict.
func (e *Enforcer) observeVerdict(direction guardrail.Direction, verdict *guardrail.Verdict) {
	if e.metrics == nil {
		return
	}
	e.metrics.GuardrailChecks.WithLabelValues(string(direction), string(verdict.Action)).Inc()
	for _, trig := range verdict.Triggered {
		e.metrics.GuardrailTriggers.WithLabelValues(trig.PolicyID).Inc()
	}
}

// recordBehavior feeds the user monitor from an input verdict. A block
// on an injection-class policy counts as an injection attempt; any
// other block counts as blocked content.
func (e *Enforcer) recordBehavior(userID string, verdict *guardrail.Verdict, wasBlocked bool) {
	if e.monitor == nil {
		return
	}
	if !wasBlocked {
		e.monitor.RecordRequest(userID, false, "")
		return
	}
	for _, trig := range verdict.Triggered {
		if trig.PolicyID == guardrail.PolicyJailbreak || trig.PolicyID == guardrail.PolicyPromptInjection {
			e.monitor.RecordInjectionAttempt(userID, trig.PolicyID)
			return
		}
	}
	reason := ""
	if len(verdict.Triggered) > 0 {
		reason = verdict.Triggered[0].PolicyID
	}
	e.monitor.RecordRequest(userID, true, reason)
}

// audit emits one enforcement audit record, fire-and-forget.
func (e *Enforcer) audit(userID, action, category, target string, metadata map[string]any) {
	if e.recorder == nil {
		return
	}
	e.recorder.Emit(&audit.Record{
		UserID:   userID,
		Action:   action,
		Category: category,
		Target:   target,
		Metadata: metadata,
	})
}

// triggerReason summarizes a blocking verdict for the result reason.
func triggerReason(verdict *guardrail.Verdict) string {
	if len(verdict.Triggered) == 0 {
		return "content blocked"
	}
	return "content blocked by " + verdict.Triggered[0].PolicyID + ": " + verdict.Triggered[0].Reason
}

// triggerWarnings extracts caller-facing warnings from a non-blocking
// verdict.
func triggerWarnings(verdict *guardrail.Verdict) []string {
	var out []string
	for _, trig := range verdict.Triggered {
		out = append(out, trig.PolicyID+": "+trig.Reason)
	}
	return out
}

func policyIDs(verdict *guardrail.Verdict) []string {
	ids := make([]string, len(verdict.Triggered))
	for i, trig := range verdict.Triggered {
		ids[i] = trig.PolicyID
	}
	return ids
}
