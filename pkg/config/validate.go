package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns the first error found.
func Validate(cfg *Config) error {
	if err := validateGuardrail(&cfg.Guardrail); err != nil {
		return fmt.Errorf("guardrail: %w", err)
	}
	if err := validateBudget(&cfg.Budget); err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	if err := validateRateLimit(&cfg.RateLimit); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := validateApproval(&cfg.Approval); err != nil {
		return fmt.Errorf("approval: %w", err)
	}
	if err := validateAudit(&cfg.Audit); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if err := validatePolicySource(&cfg.PolicySource); err != nil {
		return fmt.Errorf("policy_source: %w", err)
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func validateGuardrail(cfg *GuardrailConfig) error {
	if cfg.MaxInputChars < 0 {
		return fmt.Errorf("max_input_chars must not be negative, got %d", cfg.MaxInputChars)
	}
	if cfg.MaxOutputChars < 0 {
		return fmt.Errorf("max_output_chars must not be negative, got %d", cfg.MaxOutputChars)
	}
	for _, set := range [][]PolicyOverride{cfg.InputPolicies, cfg.OutputPolicies} {
		for _, p := range set {
			if p.ID == "" {
				return fmt.Errorf("policy override with empty id")
			}
			switch p.Action {
			case "", "pass", "log", "warn", "block":
			default:
				return fmt.Errorf("policy %q: invalid action %q", p.ID, p.Action)
			}
			if p.Threshold != nil && (*p.Threshold < 0 || *p.Threshold > 1) {
				return fmt.Errorf("policy %q: threshold must be in [0,1], got %v", p.ID, *p.Threshold)
			}
		}
	}
	return nil
}

func validateBudget(cfg *BudgetConfig) error {
	if cfg.MaxTokensPerRequest < 0 || cfg.MaxTokensPerSession < 0 || cfg.MaxTokensPerDay < 0 {
		return fmt.Errorf("token caps must not be negative")
	}
	if cfg.MaxCostPerRequestCents < 0 || cfg.MaxCostPerSessionCents < 0 || cfg.MaxCostPerDayCents < 0 {
		return fmt.Errorf("cost caps must not be negative")
	}
	if cfg.WarnThresholdPercent < 0 || cfg.WarnThresholdPercent > 100 {
		return fmt.Errorf("warn_threshold_percent must be in [0,100], got %v", cfg.WarnThresholdPercent)
	}
	if cfg.TrackerIdleTTL < 0 {
		return fmt.Errorf("tracker_idle_ttl must not be negative")
	}
	if cfg.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			return fmt.Errorf("invalid sweep_schedule %q: %w", cfg.SweepSchedule, err)
		}
	}
	for model, pricing := range cfg.Pricing {
		if pricing.InputPerMillion < 0 || pricing.OutputPerMillion < 0 {
			return fmt.Errorf("pricing for model %q must not be negative", model)
		}
	}
	return nil
}

func validateRateLimit(cfg *RateLimitConfig) error {
	if cfg.RequestsPerMinute < 0 || cfg.RequestsPerHour < 0 || cfg.RequestsPerDay < 0 {
		return fmt.Errorf("request caps must not be negative")
	}
	if cfg.TokensPerMinute < 0 || cfg.TokensPerHour < 0 || cfg.TokensPerDay < 0 {
		return fmt.Errorf("token caps must not be negative")
	}
	if cfg.BurstMultiplier < 1 {
		return fmt.Errorf("burst_multiplier must be at least 1, got %v", cfg.BurstMultiplier)
	}
	if cfg.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	return nil
}

func validateApproval(cfg *ApprovalConfig) error {
	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown backend %q (expected \"memory\" or \"sqlite\")", cfg.Backend)
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required for sqlite backend")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", cfg.PollInterval)
	}
	if cfg.WaitTimeout <= 0 {
		return fmt.Errorf("wait_timeout must be positive, got %v", cfg.WaitTimeout)
	}
	if cfg.LowRiskExpiry <= 0 || cfg.MediumRiskExpiry <= 0 || cfg.HighRiskExpiry <= 0 {
		return fmt.Errorf("risk expiries must be positive")
	}
	return nil
}

func validateAudit(cfg *AuditConfig) error {
	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown backend %q (expected \"memory\" or \"sqlite\")", cfg.Backend)
	}
	if cfg.BufferSize < 0 {
		return fmt.Errorf("buffer_size must not be negative, got %d", cfg.BufferSize)
	}
	if cfg.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative, got %d", cfg.RetentionDays)
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune_schedule %q: %w", cfg.PruneSchedule, err)
		}
	}
	return nil
}

func validatePolicySource(cfg *PolicySourceConfig) error {
	switch cfg.Mode {
	case "none", "file", "git":
	default:
		return fmt.Errorf("unknown mode %q (expected \"none\", \"file\", or \"git\")", cfg.Mode)
	}
	if cfg.Mode == "file" && cfg.FilePath == "" {
		return fmt.Errorf("file_path is required for file mode")
	}
	if cfg.Mode == "git" {
		if cfg.Git.Repository == "" {
			return fmt.Errorf("git.repository is required for git mode")
		}
		if cfg.Git.PollInterval <= 0 {
			return fmt.Errorf("git.poll_interval must be positive")
		}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging: unknown format %q", cfg.Logging.Format)
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing: sample_ratio must be in [0,1], got %v", cfg.Tracing.SampleRatio)
	}
	return nil
}
