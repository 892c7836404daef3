package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Engine.Enabled {
		t.Error("expected engine enabled by default")
	}
	if cfg.Engine.StrictMode {
		t.Error("expected strict mode disabled by default")
	}
	if cfg.Budget.MaxTokensPerRequest != 32_000 {
		t.Errorf("expected default request token cap 32000, got %d", cfg.Budget.MaxTokensPerRequest)
	}
	if !cfg.Budget.HardCutoff {
		t.Error("expected hard cutoff enabled by default")
	}
	if cfg.Budget.WarnThresholdPercent != 80 {
		t.Errorf("expected warn threshold 80, got %v", cfg.Budget.WarnThresholdPercent)
	}
	if cfg.Budget.TrackerIdleTTL != time.Hour {
		t.Errorf("expected tracker idle TTL 1h, got %v", cfg.Budget.TrackerIdleTTL)
	}
	if cfg.Approval.LowRiskExpiry != 24*time.Hour {
		t.Errorf("expected low risk expiry 24h, got %v", cfg.Approval.LowRiskExpiry)
	}
	if cfg.Approval.MediumRiskExpiry != 4*time.Hour {
		t.Errorf("expected medium risk expiry 4h, got %v", cfg.Approval.MediumRiskExpiry)
	}
	if cfg.Approval.HighRiskExpiry != time.Hour {
		t.Errorf("expected high risk expiry 1h, got %v", cfg.Approval.HighRiskExpiry)
	}
	if _, ok := cfg.Budget.Pricing["default"]; !ok {
		t.Error("expected a default pricing entry")
	}
	if !cfg.RateLimit.Enabled {
		t.Error("expected rate limiting enabled by default")
	}
	if cfg.RateLimit.RequestsPerMinute != 60 {
		t.Errorf("expected default 60 requests per minute, got %d", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.RateLimit.BurstMultiplier != 2.0 {
		t.Errorf("expected default burst multiplier 2.0, got %v", cfg.RateLimit.BurstMultiplier)
	}
	if cfg.RateLimit.Cooldown != time.Minute {
		t.Errorf("expected default cooldown 1m, got %v", cfg.RateLimit.Cooldown)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
engine:
  enabled: true
  strict_mode: true
budget:
  max_tokens_per_session: 1000
  hard_cutoff: true
approval:
  backend: sqlite
  sqlite_path: /tmp/approvals.db
telemetry:
  logging:
    level: debug
    format: text
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if !cfg.Engine.StrictMode {
		t.Error("expected strict mode from file")
	}
	if cfg.Budget.MaxTokensPerSession != 1000 {
		t.Errorf("expected session token cap 1000, got %d", cfg.Budget.MaxTokensPerSession)
	}
	if cfg.Approval.Backend != "sqlite" {
		t.Errorf("expected sqlite approval backend, got %q", cfg.Approval.Backend)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Telemetry.Logging.Level)
	}
	// Defaults still fill in untouched sections.
	if cfg.Approval.PollInterval != time.Second {
		t.Errorf("expected default poll interval, got %v", cfg.Approval.PollInterval)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  enabled: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BASTION_BUDGET_MAX_TOKENS_PER_SESSION", "4242")
	t.Setenv("BASTION_ENGINE_STRICT_MODE", "true")
	t.Setenv("BASTION_APPROVAL_WAIT_TIMEOUT", "90s")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}
	if cfg.Budget.MaxTokensPerSession != 4242 {
		t.Errorf("expected env override 4242, got %d", cfg.Budget.MaxTokensPerSession)
	}
	if !cfg.Engine.StrictMode {
		t.Error("expected strict mode from env")
	}
	if cfg.Approval.WaitTimeout != 90*time.Second {
		t.Errorf("expected wait timeout 90s, got %v", cfg.Approval.WaitTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative warn threshold", func(c *Config) { c.Budget.WarnThresholdPercent = -1 }},
		{"warn threshold above 100", func(c *Config) { c.Budget.WarnThresholdPercent = 120 }},
		{"bad approval backend", func(c *Config) { c.Approval.Backend = "postgres" }},
		{"zero poll interval", func(c *Config) { c.Approval.PollInterval = 0 }},
		{"bad audit backend", func(c *Config) { c.Audit.Backend = "s3" }},
		{"bad sweep schedule", func(c *Config) { c.Budget.SweepSchedule = "not a cron" }},
		{"negative request rate cap", func(c *Config) { c.RateLimit.RequestsPerHour = -1 }},
		{"burst multiplier below one", func(c *Config) { c.RateLimit.BurstMultiplier = 0.5 }},
		{"bad logging level", func(c *Config) { c.Telemetry.Logging.Level = "loud" }},
		{"bad policy source mode", func(c *Config) { c.PolicySource.Mode = "ftp" }},
		{"git mode without repository", func(c *Config) { c.PolicySource.Mode = "git" }},
		{"bad override action", func(c *Config) {
			c.Guardrail.InputPolicies = []PolicyOverride{{ID: "pii_detection", Action: "explode"}}
		}},
		{"override threshold out of range", func(c *Config) {
			th := 1.5
			c.Guardrail.InputPolicies = []PolicyOverride{{ID: "pii_detection", Threshold: &th}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
