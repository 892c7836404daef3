package guardrail

import (
	"fmt"
	"log/slog"
	"time"

	"veritas-hq/bastion/pkg/audit"
	"veritas-hq/bastion/pkg/config"
)

// Filter scores text against the detector battery under a set of
// policies and returns a single verdict per call.
//
// The filter itself is stateless: all mutable inputs (the policy set)
// arrive per call, and pattern compilation happens once at construction.
// It is safe for concurrent use.
type Filter struct {
	detectors map[string]*detector

	maxInputChars  int
	maxOutputChars int

	recorder *audit.Recorder // optional
	logger   *slog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// NewFilter creates a content filter from the guardrail configuration.
// The recorder may be nil to disable audit emission.
func NewFilter(cfg config.GuardrailConfig, recorder *audit.Recorder) *Filter {
	return &Filter{
		detectors:      compileDetectors(),
		maxInputChars:  cfg.MaxInputChars,
		maxOutputChars: cfg.MaxOutputChars,
		recorder:       recorder,
		logger:         slog.Default().With("component", "guardrail"),
		now:            time.Now,
	}
}

// Check runs every enabled policy's detector over text and folds the
// results into one verdict. A policy triggers when its detector matches
// and the detector's family confidence meets the policy threshold. The
// verdict action is the maximum-severity action among triggered
// policies and the length check; passed is true for pass and log.
//
// Detection is synchronous and idempotent; there are no retries. Any
// non-empty trigger list is written to the audit log fire-and-forget.
func (f *Filter) Check(direction Direction, text string, policies []Policy, userID string) *Verdict {
	start := f.now()

	verdict := &Verdict{
		Passed: true,
		Action: ActionPass,
	}

	for _, policy := range policies {
		if !policy.Enabled {
			continue
		}
		d, ok := f.detectors[policy.ID]
		if !ok {
			f.logger.Warn("policy references unknown detector", "policy_id", policy.ID)
			continue
		}

		matched, reason := d.detect(text)
		if !matched || d.confidence < policy.Threshold {
			continue
		}

		verdict.Triggered = append(verdict.Triggered, Trigger{
			PolicyID:   policy.ID,
			Confidence: d.confidence,
			Reason:     reason,
		})
		verdict.Action = MaxAction(verdict.Action, policy.Action)
	}

	// Absolute length check, independent of pattern policies.
	if limit := f.lengthLimit(direction); limit > 0 && len(text) > limit {
		verdict.Triggered = append(verdict.Triggered, Trigger{
			PolicyID:   PolicyLengthLimit,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("%s length %d exceeds limit %d", direction, len(text), limit),
		})
		verdict.Action = MaxAction(verdict.Action, ActionBlock)
	}

	verdict.Passed = verdict.Action.Severity() <= ActionLog.Severity()
	verdict.ProcessingTime = f.now().Sub(start)

	if len(verdict.Triggered) > 0 {
		f.audit(direction, text, userID, verdict)
	}

	return verdict
}

func (f *Filter) lengthLimit(direction Direction) int {
	if direction == DirectionOutput {
		return f.maxOutputChars
	}
	return f.maxInputChars
}

// audit emits one record for a non-empty trigger list. Best effort.
func (f *Filter) audit(direction Direction, text, userID string, verdict *Verdict) {
	if f.recorder == nil {
		return
	}

	policyIDs := make([]string, len(verdict.Triggered))
	for i, t := range verdict.Triggered {
		policyIDs[i] = t.PolicyID
	}

	f.recorder.Emit(&audit.Record{
		UserID:   userID,
		Action:   "guardrail.triggered",
		Category: "guardrail",
		Metadata: map[string]any{
			"direction": string(direction),
			"action":    string(verdict.Action),
			"policies":  policyIDs,
			"sample":    f.recorder.Sample(text),
		},
	})
}
