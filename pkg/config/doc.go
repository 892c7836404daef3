// Package config provides configuration loading, defaults, and validation
// for the Bastion enforcement engine.
//
// Configuration is read from a YAML file, merged with built-in defaults,
// optionally overridden by BASTION_* environment variables, and validated
// before use. All numeric limits consumed by the engine (budget caps,
// warning thresholds, approval timeouts, per-tool gating flags) live here
// so the enforcement packages stay free of hard-coded policy.
package config
