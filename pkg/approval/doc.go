// Package approval implements the human approval workflow for risky
// actions: durable approval requests with risk-derived expiry, lazy
// expiry on read, a bounded polling wait, pattern-table risk
// classification, and the auto-approval gate.
//
// Requests persist in a Store (in-memory or SQLite). High-risk actions
// are never auto-approved.
package approval
