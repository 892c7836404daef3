package config

import "time"

// DefaultConfig returns a fully populated configuration with default
// values suitable for local development.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any zero-valued fields.
// It is called automatically by LoadConfig after parsing.
//
// Boolean defaults that are true (engine enabled, hard cutoff, audit
// enabled, tool gating) are only forced when the whole parent section is
// zero-valued, so an explicit `false` in the file survives. YAML cannot
// distinguish "absent" from "false" for plain bools, which is why the
// enabled-by-default switches use the section heuristic rather than
// pointer types.
func ApplyDefaults(cfg *Config) {
	// Engine
	if (cfg.Engine == EngineConfig{}) {
		cfg.Engine.Enabled = true
	}

	// Guardrail
	if cfg.Guardrail.MaxInputChars == 0 {
		cfg.Guardrail.MaxInputChars = 100_000
	}
	if cfg.Guardrail.MaxOutputChars == 0 {
		cfg.Guardrail.MaxOutputChars = 200_000
	}

	// Budget
	b := &cfg.Budget
	zeroBudget := b.MaxTokensPerRequest == 0 && b.MaxTokensPerSession == 0 &&
		b.MaxTokensPerDay == 0 && b.MaxCostPerRequestCents == 0 &&
		b.MaxCostPerSessionCents == 0 && b.MaxCostPerDayCents == 0
	if zeroBudget {
		b.MaxTokensPerRequest = 32_000
		b.MaxTokensPerSession = 500_000
		b.MaxTokensPerDay = 2_000_000
		b.MaxCostPerRequestCents = 100
		b.MaxCostPerSessionCents = 1_000
		b.MaxCostPerDayCents = 5_000
		b.HardCutoff = true
	}
	if b.WarnThresholdPercent == 0 {
		b.WarnThresholdPercent = 80
	}
	if b.TrackerIdleTTL == 0 {
		b.TrackerIdleTTL = time.Hour
	}
	if b.SweepSchedule == "" {
		b.SweepSchedule = "*/10 * * * *"
	}
	if b.Pricing == nil {
		b.Pricing = DefaultPricing()
	}
	if _, ok := b.Pricing["default"]; !ok {
		b.Pricing["default"] = DefaultPricing()["default"]
	}

	// Rate limit
	rl := &cfg.RateLimit
	if (*rl == RateLimitConfig{}) {
		rl.Enabled = true
		rl.RequestsPerMinute = 60
		rl.RequestsPerHour = 1_000
		rl.RequestsPerDay = 10_000
		rl.TokensPerMinute = 100_000
		rl.TokensPerHour = 1_000_000
		rl.TokensPerDay = 10_000_000
	}
	if rl.BurstMultiplier == 0 {
		rl.BurstMultiplier = 2.0
	}
	if rl.Cooldown == 0 {
		rl.Cooldown = time.Minute
	}

	// Approval
	a := &cfg.Approval
	if a.Backend == "" {
		a.Backend = "memory"
		a.AutoApproveLowRisk = true
	}
	if a.SQLitePath == "" {
		a.SQLitePath = "data/approvals.db"
	}
	if a.WaitTimeout == 0 {
		a.WaitTimeout = 60 * time.Second
	}
	if a.PollInterval == 0 {
		a.PollInterval = time.Second
	}
	if a.LowRiskExpiry == 0 {
		a.LowRiskExpiry = 24 * time.Hour
	}
	if a.MediumRiskExpiry == 0 {
		a.MediumRiskExpiry = 4 * time.Hour
	}
	if a.HighRiskExpiry == 0 {
		a.HighRiskExpiry = time.Hour
	}

	// Audit
	au := &cfg.Audit
	if au.Backend == "" {
		au.Backend = "memory"
		au.Enabled = true
	}
	if au.SQLitePath == "" {
		au.SQLitePath = "data/audit.db"
	}
	if au.BufferSize == 0 {
		au.BufferSize = 1024
	}
	if au.SampleMaxChars == 0 {
		au.SampleMaxChars = 200
	}
	if au.RetentionDays == 0 {
		au.RetentionDays = 90
	}
	if au.PruneSchedule == "" {
		au.PruneSchedule = "0 3 * * *"
	}

	// Tools
	if (cfg.Tools == ToolsConfig{}) {
		cfg.Tools.GitPushRequiresApproval = true
		cfg.Tools.PackageInstallRequiresApproval = true
		cfg.Tools.ShellHighRiskRequiresApproval = true
	}

	// Policy source
	ps := &cfg.PolicySource
	if ps.Mode == "" {
		ps.Mode = "none"
	}
	if ps.FilePath == "" {
		ps.FilePath = "./policies.yaml"
	}
	if ps.Git.Branch == "" {
		ps.Git.Branch = "main"
	}
	if ps.Git.Path == "" {
		ps.Git.Path = "policies.yaml"
	}
	if ps.Git.PollInterval == 0 {
		ps.Git.PollInterval = 5 * time.Minute
	}
	if ps.Git.CloneDir == "" {
		ps.Git.CloneDir = "data/policy-repo"
	}

	// Telemetry
	t := &cfg.Telemetry
	if t.Logging.Level == "" {
		t.Logging.Level = "info"
		t.Logging.RedactPII = true
	}
	if t.Logging.Format == "" {
		t.Logging.Format = "json"
	}
	if t.Metrics.ListenAddress == "" {
		t.Metrics.ListenAddress = "127.0.0.1:9464"
		t.Metrics.Enabled = true
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = "/metrics"
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = "bastion"
		t.Tracing.Insecure = true
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = "localhost:4317"
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = 0.1
	}
}

// DefaultPricing returns the built-in per-model pricing table.
// Rates are USD per one million tokens.
func DefaultPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"gpt-4o":            {InputPerMillion: 2.50, OutputPerMillion: 10.00},
		"gpt-4o-mini":       {InputPerMillion: 0.15, OutputPerMillion: 0.60},
		"gpt-4-turbo":       {InputPerMillion: 10.00, OutputPerMillion: 30.00},
		"claude-3-5-sonnet": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
		"claude-3-5-haiku":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
		"claude-3-opus":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},
		"default":           {InputPerMillion: 5.00, OutputPerMillion: 15.00},
	}
}
