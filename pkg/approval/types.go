package approval

import (
	"errors"
	"time"
)

// Status is the lifecycle state of an approval request.
type Status string

const (
	// StatusPending means the request awaits a human decision.
	StatusPending Status = "pending"

	// StatusApproved is terminal: a human approved the action.
	StatusApproved Status = "approved"

	// StatusRejected is terminal: a human rejected the action.
	StatusRejected Status = "rejected"

	// StatusExpired is terminal: the request outlived its expiry without
	// a decision. The transition happens lazily on read.
	StatusExpired Status = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// RiskLevel grades how dangerous an action is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Rank orders risk levels (low < medium < high). Unknown levels rank
// as high so a bad classification fails safe.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 2
	}
}

// Decision is a human resolution of a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Request is one durable approval record.
//
// A request is created pending with an expiry derived from its risk
// level, then transitions exactly once to approved, rejected, or
// expired. Terminal records are immutable.
type Request struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	Action    string    `json:"action"`
	RiskLevel RiskLevel `json:"risk_level"`

	// Reason explains why approval is needed; a resolution comment
	// replaces it when the resolver supplies one.
	Reason string `json:"reason,omitempty"`

	// Payload is opaque caller context carried with the request.
	Payload map[string]any `json:"payload,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	out := *r
	if r.Payload != nil {
		out.Payload = make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			out.Payload[k] = v
		}
	}
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

// ErrNotFound is returned by stores when no record has the given ID.
var ErrNotFound = errors.New("approval request not found")
