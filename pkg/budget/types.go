package budget

import "fmt"

// TokenUsage is the token consumption of one completed model call.
type TokenUsage struct {
	// InputTokens counts prompt tokens.
	InputTokens int `json:"input_tokens"`

	// OutputTokens counts completion tokens.
	OutputTokens int `json:"output_tokens"`

	// Model is the model that served the call, used for pricing lookup.
	Model string `json:"model"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// WindowTokens is the token split accumulated in one budget window.
type WindowTokens struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (w WindowTokens) Total() int {
	return w.InputTokens + w.OutputTokens
}

func (w WindowTokens) add(u TokenUsage) WindowTokens {
	w.InputTokens += u.InputTokens
	w.OutputTokens += u.OutputTokens
	return w
}

// Usage is a point-in-time snapshot of a tracker's accumulated counters
// across the three budget windows. Each window keeps its input/output
// token split; caps apply to the window total.
type Usage struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`

	RequestTokens WindowTokens `json:"request_tokens"`
	SessionTokens WindowTokens `json:"session_tokens"`
	DailyTokens   WindowTokens `json:"daily_tokens"`

	RequestCostCents float64 `json:"request_cost_cents"`
	SessionCostCents float64 `json:"session_cost_cents"`
	DailyCostCents   float64 `json:"daily_cost_cents"`

	// DailyResetDate is the calendar day (UTC, YYYY-MM-DD) the daily
	// counters belong to.
	DailyResetDate string `json:"daily_reset_date"`
}

// PercentUsed reports consumption of each cap as a percentage.
// Windows with no cap configured report zero.
type PercentUsed struct {
	RequestTokens float64 `json:"request_tokens"`
	SessionTokens float64 `json:"session_tokens"`
	DailyTokens   float64 `json:"daily_tokens"`
	RequestCost   float64 `json:"request_cost"`
	SessionCost   float64 `json:"session_cost"`
	DailyCost     float64 `json:"daily_cost"`
}

// CheckResult is the outcome of a budget pre-check.
type CheckResult struct {
	// Allowed is false when a cap would be exceeded and hard cutoff is
	// enabled.
	Allowed bool `json:"allowed"`

	// Reason lists every violated cap, "; "-separated; empty when
	// allowed.
	Reason string `json:"reason,omitempty"`

	// Warnings lists windows past the warn threshold but under cap.
	Warnings []string `json:"warnings,omitempty"`

	// Usage is the tracker snapshot before the projected call.
	Usage Usage `json:"usage"`

	// PercentUsed is projected consumption including the pending call.
	PercentUsed PercentUsed `json:"percent_used"`
}

// CostEstimate is the priced cost of a model call.
type CostEstimate struct {
	// Cents is the estimated cost in US cents.
	Cents float64 `json:"cents"`

	// Model is the pricing table entry used; "default" when the model
	// was not in the table.
	Model string `json:"model"`
}

// Dollars renders the estimate as a dollar string, e.g. "$1.25".
func (e CostEstimate) Dollars() string {
	return fmt.Sprintf("$%.2f", e.Cents/100)
}
