package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention BASTION_SECTION_FIELD (e.g., BASTION_BUDGET_HARD_CUTOFF)
// and always take precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	// Engine
	envBool("BASTION_ENGINE_ENABLED", &cfg.Engine.Enabled)
	envBool("BASTION_ENGINE_STRICT_MODE", &cfg.Engine.StrictMode)

	// Guardrail
	envInt("BASTION_GUARDRAIL_MAX_INPUT_CHARS", &cfg.Guardrail.MaxInputChars)
	envInt("BASTION_GUARDRAIL_MAX_OUTPUT_CHARS", &cfg.Guardrail.MaxOutputChars)

	// Budget
	envInt("BASTION_BUDGET_MAX_TOKENS_PER_REQUEST", &cfg.Budget.MaxTokensPerRequest)
	envInt("BASTION_BUDGET_MAX_TOKENS_PER_SESSION", &cfg.Budget.MaxTokensPerSession)
	envInt("BASTION_BUDGET_MAX_TOKENS_PER_DAY", &cfg.Budget.MaxTokensPerDay)
	envFloat("BASTION_BUDGET_MAX_COST_PER_REQUEST_CENTS", &cfg.Budget.MaxCostPerRequestCents)
	envFloat("BASTION_BUDGET_MAX_COST_PER_SESSION_CENTS", &cfg.Budget.MaxCostPerSessionCents)
	envFloat("BASTION_BUDGET_MAX_COST_PER_DAY_CENTS", &cfg.Budget.MaxCostPerDayCents)
	envFloat("BASTION_BUDGET_WARN_THRESHOLD_PERCENT", &cfg.Budget.WarnThresholdPercent)
	envBool("BASTION_BUDGET_HARD_CUTOFF", &cfg.Budget.HardCutoff)
	envDuration("BASTION_BUDGET_TRACKER_IDLE_TTL", &cfg.Budget.TrackerIdleTTL)
	envString("BASTION_BUDGET_SWEEP_SCHEDULE", &cfg.Budget.SweepSchedule)

	// Rate limit
	envBool("BASTION_RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	envInt("BASTION_RATE_LIMIT_REQUESTS_PER_MINUTE", &cfg.RateLimit.RequestsPerMinute)
	envInt("BASTION_RATE_LIMIT_REQUESTS_PER_HOUR", &cfg.RateLimit.RequestsPerHour)
	envInt("BASTION_RATE_LIMIT_REQUESTS_PER_DAY", &cfg.RateLimit.RequestsPerDay)
	envDuration("BASTION_RATE_LIMIT_COOLDOWN", &cfg.RateLimit.Cooldown)

	// Approval
	envString("BASTION_APPROVAL_BACKEND", &cfg.Approval.Backend)
	envString("BASTION_APPROVAL_SQLITE_PATH", &cfg.Approval.SQLitePath)
	envDuration("BASTION_APPROVAL_WAIT_TIMEOUT", &cfg.Approval.WaitTimeout)
	envDuration("BASTION_APPROVAL_POLL_INTERVAL", &cfg.Approval.PollInterval)
	envBool("BASTION_APPROVAL_AUTO_APPROVE_LOW_RISK", &cfg.Approval.AutoApproveLowRisk)

	// Audit
	envBool("BASTION_AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("BASTION_AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("BASTION_AUDIT_SQLITE_PATH", &cfg.Audit.SQLitePath)
	envInt("BASTION_AUDIT_RETENTION_DAYS", &cfg.Audit.RetentionDays)
	envString("BASTION_AUDIT_PRUNE_SCHEDULE", &cfg.Audit.PruneSchedule)

	// Tools
	envBool("BASTION_TOOLS_GIT_PUSH_REQUIRES_APPROVAL", &cfg.Tools.GitPushRequiresApproval)
	envBool("BASTION_TOOLS_PACKAGE_INSTALL_REQUIRES_APPROVAL", &cfg.Tools.PackageInstallRequiresApproval)
	envBool("BASTION_TOOLS_NETWORK_REQUIRES_APPROVAL", &cfg.Tools.NetworkRequiresApproval)
	envBool("BASTION_TOOLS_SHELL_HIGH_RISK_REQUIRES_APPROVAL", &cfg.Tools.ShellHighRiskRequiresApproval)

	// Policy source
	envString("BASTION_POLICY_SOURCE_MODE", &cfg.PolicySource.Mode)
	envString("BASTION_POLICY_SOURCE_FILE_PATH", &cfg.PolicySource.FilePath)
	envBool("BASTION_POLICY_SOURCE_WATCH", &cfg.PolicySource.Watch)
	envString("BASTION_POLICY_SOURCE_GIT_REPOSITORY", &cfg.PolicySource.Git.Repository)
	envString("BASTION_POLICY_SOURCE_GIT_BRANCH", &cfg.PolicySource.Git.Branch)
	envString("BASTION_POLICY_SOURCE_GIT_TOKEN", &cfg.PolicySource.Git.Token)

	// Telemetry
	envString("BASTION_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("BASTION_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("BASTION_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("BASTION_TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envBool("BASTION_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("BASTION_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("BASTION_TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
