// Package audit provides the best-effort audit log for enforcement
// decisions, budget violations, and approval transitions.
//
// Writes go through a Recorder whose Emit is fire-and-forget: records
// are queued to a background writer, a full queue drops rather than
// blocks, and storage errors are logged and swallowed. Enforcement
// outcomes must never depend on audit availability.
//
// Two storage backends are provided: an in-memory store for tests and
// development, and a SQLite store (WAL mode) for durable deployments,
// with cron-scheduled retention pruning.
package audit
