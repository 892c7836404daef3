package guardrail

import "time"

// Action is what the engine does when a policy triggers.
type Action string

const (
	// ActionPass takes no action.
	ActionPass Action = "pass"

	// ActionLog records the trigger but allows the content.
	ActionLog Action = "log"

	// ActionWarn allows the content but surfaces a warning to the caller.
	ActionWarn Action = "warn"

	// ActionBlock rejects the content.
	ActionBlock Action = "block"
)

// Severity returns the ordering rank of an action
// (pass < log < warn < block). Unknown actions rank as pass.
func (a Action) Severity() int {
	switch a {
	case ActionBlock:
		return 3
	case ActionWarn:
		return 2
	case ActionLog:
		return 1
	default:
		return 0
	}
}

// MaxAction returns the higher-severity of two actions.
func MaxAction(a, b Action) Action {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// Direction identifies which side of the model call is being filtered.
type Direction string

const (
	// DirectionInput filters text sent to the model.
	DirectionInput Direction = "input"

	// DirectionOutput filters text produced by the model.
	DirectionOutput Direction = "output"
)

// Policy is a named detector rule: which detector to run, whether it is
// enabled, what to do when it triggers, and the confidence threshold at
// which it triggers. Policies are configuration data and are immutable
// during a check.
type Policy struct {
	// ID is the detector identifier (e.g., "jailbreak_detection").
	ID string

	// Enabled controls whether the detector runs.
	Enabled bool

	// Action is the verdict action when the detector triggers.
	Action Action

	// Threshold is the confidence in [0,1] at or above which the
	// detector triggers.
	Threshold float64
}

// Trigger records one policy that fired during a check.
type Trigger struct {
	// PolicyID is the detector policy that fired.
	PolicyID string `json:"policy_id"`

	// Confidence is the detector's confidence for this text.
	Confidence float64 `json:"confidence"`

	// Reason describes what was detected.
	Reason string `json:"reason"`
}

// Verdict is the outcome of filtering one text blob.
//
// Action is the maximum-severity action among all triggered policies,
// and Passed is true when that action is pass or log.
type Verdict struct {
	// Passed is true when the content may proceed.
	Passed bool `json:"passed"`

	// Action is the highest-severity action among triggered policies.
	Action Action `json:"action"`

	// Triggered lists every policy whose confidence met its threshold,
	// in policy order.
	Triggered []Trigger `json:"triggered,omitempty"`

	// ProcessingTime is how long the check took.
	ProcessingTime time.Duration `json:"processing_time"`
}
