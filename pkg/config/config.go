package config

import "time"

// Config is the root configuration structure for Bastion.
// It contains all configuration sections for the enforcement engine,
// guardrails, budgets, approvals, audit storage, tool gating, policy
// sources, and telemetry.
type Config struct {
	// Engine contains top-level engine switches.
	Engine EngineConfig `yaml:"engine"`

	// Guardrail contains content filtering configuration including
	// per-direction policy overrides and absolute length limits.
	Guardrail GuardrailConfig `yaml:"guardrail"`

	// Budget contains token and cost budget configuration for the
	// request, session, and daily windows.
	Budget BudgetConfig `yaml:"budget"`

	// RateLimit contains per-user request and token rate limiting over
	// minute, hour, and day windows.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Approval contains human-approval workflow configuration including
	// expiry windows, wait timeouts, and the backing store.
	Approval ApprovalConfig `yaml:"approval"`

	// Audit contains audit log configuration including backend selection
	// and retention settings.
	Audit AuditConfig `yaml:"audit"`

	// Tools contains per-tool gating flags for the tool enforcement path.
	Tools ToolsConfig `yaml:"tools"`

	// PolicySource contains configuration for loading policy overrides
	// from a local file or a Git repository.
	PolicySource PolicySourceConfig `yaml:"policy_source"`

	// Telemetry contains observability configuration: logging, metrics,
	// and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains top-level engine switches.
type EngineConfig struct {
	// Enabled controls whether enforcement runs at all. When false every
	// enforcement call returns an allowed result without running checks.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// StrictMode escalates warn verdicts to blocks on the input and
	// output enforcement paths.
	// Default: false
	StrictMode bool `yaml:"strict_mode"`
}

// GuardrailConfig contains content filter configuration.
type GuardrailConfig struct {
	// MaxInputChars is the absolute input length limit, checked
	// independently of pattern policies. Zero disables the check.
	// Default: 100000
	MaxInputChars int `yaml:"max_input_chars"`

	// MaxOutputChars is the absolute output length limit.
	// Default: 200000
	MaxOutputChars int `yaml:"max_output_chars"`

	// InputPolicies overrides the default detector policy set for the
	// input direction. Entries are matched to detectors by ID; detectors
	// without an entry keep their defaults.
	InputPolicies []PolicyOverride `yaml:"input_policies"`

	// OutputPolicies overrides the default detector policy set for the
	// output direction.
	OutputPolicies []PolicyOverride `yaml:"output_policies"`
}

// PolicyOverride adjusts a single detector policy from configuration.
type PolicyOverride struct {
	// ID is the detector policy identifier (e.g., "jailbreak_detection").
	ID string `yaml:"id"`

	// Enabled controls whether the detector runs.
	Enabled *bool `yaml:"enabled"`

	// Action is the verdict action when the detector triggers:
	// "pass", "log", "warn", or "block".
	Action string `yaml:"action"`

	// Threshold is the confidence threshold in [0,1] above which the
	// detector triggers.
	Threshold *float64 `yaml:"threshold"`
}

// BudgetConfig contains budget tracking configuration.
//
// A cap of zero means the corresponding limit is not enforced.
type BudgetConfig struct {
	// MaxTokensPerRequest caps total tokens for a single request.
	// Default: 32000
	MaxTokensPerRequest int `yaml:"max_tokens_per_request"`

	// MaxTokensPerSession caps total tokens for a session.
	// Default: 500000
	MaxTokensPerSession int `yaml:"max_tokens_per_session"`

	// MaxTokensPerDay caps total tokens for a calendar day.
	// Default: 2000000
	MaxTokensPerDay int `yaml:"max_tokens_per_day"`

	// MaxCostPerRequestCents caps cost for a single request, in cents.
	// Default: 100 ($1.00)
	MaxCostPerRequestCents float64 `yaml:"max_cost_per_request_cents"`

	// MaxCostPerSessionCents caps cost for a session, in cents.
	// Default: 1000 ($10.00)
	MaxCostPerSessionCents float64 `yaml:"max_cost_per_session_cents"`

	// MaxCostPerDayCents caps cost for a calendar day, in cents.
	// Default: 5000 ($50.00)
	MaxCostPerDayCents float64 `yaml:"max_cost_per_day_cents"`

	// WarnThresholdPercent is the percentage of any cap at which a
	// warning is reported (but the call still proceeds).
	// Default: 80
	WarnThresholdPercent float64 `yaml:"warn_threshold_percent"`

	// HardCutoff makes budget violations block instead of merely warn.
	// With HardCutoff disabled the engine runs in audit-only mode.
	// Default: true
	HardCutoff bool `yaml:"hard_cutoff"`

	// TrackerIdleTTL is how long a tracker may sit untouched before the
	// periodic sweep removes it.
	// Default: 1h
	TrackerIdleTTL time.Duration `yaml:"tracker_idle_ttl"`

	// SweepSchedule is the cron expression for the tracker garbage
	// collection sweep. Empty disables the sweep.
	// Default: "*/10 * * * *" (every 10 minutes)
	SweepSchedule string `yaml:"sweep_schedule"`

	// Pricing maps model names to per-million-token rates in USD.
	// The "default" entry is used for unknown models.
	Pricing map[string]ModelPricing `yaml:"pricing"`
}

// ModelPricing contains per-model token pricing.
type ModelPricing struct {
	// InputPerMillion is the USD cost per one million input tokens.
	InputPerMillion float64 `yaml:"input_per_million"`

	// OutputPerMillion is the USD cost per one million output tokens.
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// RateLimitConfig contains per-user rate limiting configuration.
//
// Rate limits are independent of the spend budget: they bound how
// often a user may call at all, not how much the calls cost. A limit
// of zero disables that window.
type RateLimitConfig struct {
	// Enabled controls whether rate limits are checked at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// RequestsPerMinute caps requests in a rolling minute window.
	// Default: 60
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// RequestsPerHour caps requests in a rolling hour window.
	// Default: 1000
	RequestsPerHour int `yaml:"requests_per_hour"`

	// RequestsPerDay caps requests in a rolling day window.
	// Default: 10000
	RequestsPerDay int `yaml:"requests_per_day"`

	// TokensPerMinute caps tokens (input plus output) per minute.
	// Default: 100000
	TokensPerMinute int `yaml:"tokens_per_minute"`

	// TokensPerHour caps tokens per hour.
	// Default: 1000000
	TokensPerHour int `yaml:"tokens_per_hour"`

	// TokensPerDay caps tokens per day.
	// Default: 10000000
	TokensPerDay int `yaml:"tokens_per_day"`

	// BurstMultiplier relaxes the minute caps for short bursts. A value
	// of 2.0 lets a user briefly run at twice the steady per-minute
	// rate; the hour and day caps still bound the total.
	// Default: 2.0
	BurstMultiplier float64 `yaml:"burst_multiplier"`

	// Cooldown is the default lockout applied when a user is put in
	// cooldown. During cooldown every request is rejected.
	// Default: 1m
	Cooldown time.Duration `yaml:"cooldown"`
}

// ApprovalConfig contains approval workflow configuration.
type ApprovalConfig struct {
	// Backend selects the approval record store: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path when Backend is "sqlite".
	// Default: "data/approvals.db"
	SQLitePath string `yaml:"sqlite_path"`

	// WaitTimeout bounds how long an enforcement call blocks waiting for
	// a human decision before giving up and reporting approval-required.
	// Default: 60s
	WaitTimeout time.Duration `yaml:"wait_timeout"`

	// PollInterval is how often a waiting caller re-reads the approval
	// record.
	// Default: 1s
	PollInterval time.Duration `yaml:"poll_interval"`

	// LowRiskExpiry is the default lifetime of a pending low-risk
	// approval request.
	// Default: 24h
	LowRiskExpiry time.Duration `yaml:"low_risk_expiry"`

	// MediumRiskExpiry is the default lifetime for medium risk.
	// Default: 4h
	MediumRiskExpiry time.Duration `yaml:"medium_risk_expiry"`

	// HighRiskExpiry is the default lifetime for high risk.
	// Default: 1h
	HighRiskExpiry time.Duration `yaml:"high_risk_expiry"`

	// AutoApproveLowRisk lets the gate auto-approve low-risk actions for
	// privileged callers without a human round-trip. High risk is never
	// auto-approved regardless of this flag.
	// Default: true
	AutoApproveLowRisk bool `yaml:"auto_approve_low_risk"`
}

// AuditConfig contains audit log configuration.
type AuditConfig struct {
	// Enabled controls whether audit records are written at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the audit store: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path when Backend is "sqlite".
	// Default: "data/audit.db"
	SQLitePath string `yaml:"sqlite_path"`

	// BufferSize is the async dispatch buffer size. Records are dropped
	// (and counted) when the buffer is full; audit writes never block
	// enforcement.
	// Default: 1024
	BufferSize int `yaml:"buffer_size"`

	// SampleMaxChars caps the length of text samples embedded in audit
	// metadata. Samples are redacted before storage.
	// Default: 200
	SampleMaxChars int `yaml:"sample_max_chars"`

	// RetentionDays is how many days of audit records to keep. Zero
	// disables pruning.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for retention pruning.
	// Empty disables the scheduler.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// ToolsConfig contains per-tool gating flags for tool enforcement.
type ToolsConfig struct {
	// GitPushRequiresApproval gates git pushes behind the approval
	// workflow.
	// Default: true
	GitPushRequiresApproval bool `yaml:"git_push_requires_approval"`

	// PackageInstallRequiresApproval gates package installs.
	// Default: true
	PackageInstallRequiresApproval bool `yaml:"package_install_requires_approval"`

	// NetworkRequiresApproval gates outbound network calls.
	// Default: false
	NetworkRequiresApproval bool `yaml:"network_requires_approval"`

	// ShellHighRiskRequiresApproval gates shell commands classified as
	// high risk even when the command-policy collaborator allows them.
	// Default: true
	ShellHighRiskRequiresApproval bool `yaml:"shell_high_risk_requires_approval"`
}

// PolicySourceConfig configures optional policy overrides loaded from a
// file or Git repository.
type PolicySourceConfig struct {
	// Mode specifies how overrides are loaded: "none", "file", or "git".
	// Default: "none"
	Mode string `yaml:"mode"`

	// FilePath is the override file path when Mode is "file".
	// Default: "./policies.yaml"
	FilePath string `yaml:"file_path"`

	// Watch enables automatic reloading when the override file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Git configures Git-based override loading when Mode is "git".
	Git GitSourceConfig `yaml:"git"`
}

// GitSourceConfig configures Git-backed policy override loading.
type GitSourceConfig struct {
	// Repository is the repository URL (HTTPS or SSH).
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository to the override file.
	// Default: "policies.yaml"
	Path string `yaml:"path"`

	// Token for HTTPS authentication. Empty for public repositories.
	Token string `yaml:"token"`

	// PollInterval is how often to check for upstream changes.
	// Default: 5m
	PollInterval time.Duration `yaml:"poll_interval"`

	// CloneDir is the local working directory for the clone.
	// Default: "data/policy-repo"
	CloneDir string `yaml:"clone_dir"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log output.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic redaction of sensitive values in log
	// arguments.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP server.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the metrics handler.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this process in traces.
	// Default: "bastion"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the trace sampling ratio in [0,1].
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`
}
