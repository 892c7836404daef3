// Package logging provides the structured logger used across Bastion.
//
// It wraps log/slog with level/format configuration and optional
// redaction of sensitive values (API keys, tokens, emails) in log
// arguments. Library packages obtain component loggers via
// slog.Default().With("component", ...), so installing the configured
// logger as the process default wires the whole tree.
package logging
