// Package policysource loads guardrail policy overrides from outside
// the main configuration: a local YAML file (optionally hot-reloaded
// via filesystem watching) or a file in a Git repository polled for
// changes.
package policysource
