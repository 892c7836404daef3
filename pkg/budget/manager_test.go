package budget

import (
	"strings"
	"testing"
	"time"

	"veritas-hq/bastion/pkg/config"
)

func testBudgetConfig() config.BudgetConfig {
	return config.BudgetConfig{
		MaxTokensPerRequest:    2000,
		MaxTokensPerSession:    1000,
		MaxTokensPerDay:        5000,
		MaxCostPerRequestCents: 100,
		MaxCostPerSessionCents: 1000,
		MaxCostPerDayCents:     5000,
		WarnThresholdPercent:   80,
		HardCutoff:             true,
		TrackerIdleTTL:         time.Hour,
	}
}

func newTestManager(cfg config.BudgetConfig) (*Manager, *time.Time) {
	m := NewManager(cfg, nil)
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestPreCheckProjectedSessionViolation(t *testing.T) {
	m, _ := newTestManager(testBudgetConfig())

	m.Record("alice", "s1", TokenUsage{InputTokens: 500, OutputTokens: 300, Model: "gpt-4o"})

	result := m.PreCheck("alice", "s1", 300, "gpt-4o")
	if result.Allowed {
		t.Fatal("expected projected violation to reject")
	}
	want := "Session token limit exceeded (1100/1000)"
	if result.Reason != want {
		t.Errorf("reason = %q, want %q", result.Reason, want)
	}
	if got := result.Usage.SessionTokens.Total(); got != 800 {
		t.Errorf("snapshot session tokens = %d, want 800", got)
	}
}

func TestPreCheckNothingRecorded(t *testing.T) {
	m, _ := newTestManager(testBudgetConfig())

	m.PreCheck("alice", "s1", 300, "gpt-4o")
	usage := m.GetUsage("alice", "s1")
	if got := usage.SessionTokens.Total(); got != 0 {
		t.Errorf("PreCheck recorded usage: %d", got)
	}
}

func TestPreCheckWarnThreshold(t *testing.T) {
	m, _ := newTestManager(testBudgetConfig())

	m.Record("alice", "s1", TokenUsage{InputTokens: 700, Model: "gpt-4o"})
	m.StartRequest("alice", "s1")

	result := m.PreCheck("alice", "s1", 150, "gpt-4o")
	if !result.Allowed {
		t.Fatalf("expected allowed, got rejection: %s", result.Reason)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "Session token") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected session token warning at 85%%, got %v", result.Warnings)
	}
	if result.PercentUsed.SessionTokens != 85 {
		t.Errorf("session percent = %v, want 85", result.PercentUsed.SessionTokens)
	}
}

func TestPreCheckNoDuplicateWarningForViolatedWindow(t *testing.T) {
	m, _ := newTestManager(testBudgetConfig())

	m.Record("alice", "s1", TokenUsage{InputTokens: 900, Model: "gpt-4o"})
	m.StartRequest("alice", "s1")

	result := m.PreCheck("alice", "s1", 200, "gpt-4o")
	if result.Allowed {
		t.Fatal("expected rejection")
	}
	for _, w := range result.Warnings {
		if strings.Contains(w, "Session token") {
			t.Errorf("violated window should not also warn: %v", result.Warnings)
		}
	}
}

func TestPreCheckAuditOnlyMode(t *testing.T) {
	cfg := testBudgetConfig()
	cfg.HardCutoff = false
	m, _ := newTestManager(cfg)

	m.Record("alice", "s1", TokenUsage{InputTokens: 900, Model: "gpt-4o"})

	result := m.PreCheck("alice", "s1", 500, "gpt-4o")
	if !result.Allowed {
		t.Fatal("expected audit-only mode to allow")
	}
	if result.Reason != "" {
		t.Errorf("expected empty reason, got %q", result.Reason)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "Session token limit exceeded") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected violation demoted to warning, got %v", result.Warnings)
	}
}

func TestPreCheckZeroCapDisabled(t *testing.T) {
	cfg := testBudgetConfig()
	cfg.MaxTokensPerSession = 0
	m, _ := newTestManager(cfg)

	m.Record("alice", "s1", TokenUsage{InputTokens: 900, Model: "gpt-4o"})
	m.StartRequest("alice", "s1")

	result := m.PreCheck("alice", "s1", 4000000, "gpt-4o")
	if strings.Contains(result.Reason, "Session token") {
		t.Errorf("disabled cap still enforced: %q", result.Reason)
	}
}

func TestPreCheckCostCap(t *testing.T) {
	cfg := testBudgetConfig()
	cfg.MaxTokensPerRequest = 0
	cfg.MaxTokensPerSession = 0
	cfg.MaxTokensPerDay = 0
	cfg.MaxCostPerRequestCents = 50 // $0.50
	m, _ := newTestManager(cfg)

	// 300k input tokens of gpt-4o at $2.50/1M is $0.75.
	result := m.PreCheck("alice", "s1", 300000, "gpt-4o")
	if result.Allowed {
		t.Fatal("expected cost cap rejection")
	}
	want := "Request cost limit exceeded ($0.75/$0.50)"
	if result.Reason != want {
		t.Errorf("reason = %q, want %q", result.Reason, want)
	}
}

func TestRecordAccumulatesAllWindows(t *testing.T) {
	m, _ := newTestManager(testBudgetConfig())

	m.Record("alice", "s1", TokenUsage{InputTokens: 100, OutputTokens: 50, Model: "gpt-4o"})
	result := m.Record("alice", "s1", TokenUsage{InputTokens: 200, Model: "gpt-4o"})

	usage := result.Usage
	if usage.RequestTokens.Total() != 350 || usage.SessionTokens.Total() != 350 || usage.DailyTokens.Total() != 350 {
		t.Errorf("expected 350 in all windows, got %+v", usage)
	}
	if usage.SessionCostCents <= 0 {
		t.Error("expected nonzero session cost")
	}
	if !result.Allowed {
		t.Errorf("expected under-cap record to be allowed: %s", result.Reason)
	}
}

func TestRecordKeepsTokenSplitPerWindow(t *testing.T) {
	m, _ := newTestManager(testBudgetConfig())

	m.Record("alice", "s1", TokenUsage{InputTokens: 100, OutputTokens: 50, Model: "gpt-4o"})
	m.Record("alice", "s1", TokenUsage{InputTokens: 200, OutputTokens: 25, Model: "gpt-4o"})

	usage := m.GetUsage("alice", "s1")
	want := WindowTokens{InputTokens: 300, OutputTokens: 75}
	if usage.RequestTokens != want || usage.SessionTokens != want || usage.DailyTokens != want {
		t.Errorf("expected %+v in all windows, got %+v", want, usage)
	}

	// Zeroing the request window must not disturb the other splits.
	m.StartRequest("alice", "s1")
	usage = m.GetUsage("alice", "s1")
	if usage.RequestTokens != (WindowTokens{}) {
		t.Errorf("request split = %+v, want zero", usage.RequestTokens)
	}
	if usage.SessionTokens != want {
		t.Errorf("session split = %+v, want %+v", usage.SessionTokens, want)
	}
}

func TestRecordReportsActualViolations(t *testing.T) {
	m, _ := newTestManager(testBudgetConfig())

	// 1200 tokens blow both the session cap (1000) and nothing else.
	result := m.Record("alice", "s1", TokenUsage{InputTokens: 1200, Model: "gpt-4o"})
	if result.Allowed {
		t.Fatal("expected recorded over-cap usage to report violation")
	}
	if !strings.Contains(result.Reason, "Session token limit exceeded (1200/1000)") {
		t.Errorf("reason = %q", result.Reason)
	}
}

func TestRecordReasonListsEveryViolatedCap(t *testing.T) {
	cfg := testBudgetConfig()
	cfg.MaxTokensPerRequest = 500
	m, _ := newTestManager(cfg)

	result := m.Record("alice", "s1", TokenUsage{InputTokens: 1200, Model: "gpt-4o"})
	if !strings.Contains(result.Reason, "Request token limit exceeded (1200/500)") ||
		!strings.Contains(result.Reason, "Session token limit exceeded (1200/1000)") {
		t.Errorf("expected both violations listed, got %q", result.Reason)
	}
}

func TestStartRequestResetsOnlyRequestWindow(t *testing.T) {
	m, _ := newTestManager(testBudgetConfig())

	m.Record("alice", "s1", TokenUsage{InputTokens: 400, Model: "gpt-4o"})
	m.StartRequest("alice", "s1")

	usage := m.GetUsage("alice", "s1")
	if usage.RequestTokens != (WindowTokens{}) {
		t.Errorf("request tokens = %+v, want zero window", usage.RequestTokens)
	}
	if usage.SessionTokens.Total() != 400 || usage.DailyTokens.Total() != 400 {
		t.Errorf("session/daily windows touched by StartRequest: %+v", usage)
	}
}

func TestLazyDailyReset(t *testing.T) {
	m, clock := newTestManager(testBudgetConfig())

	m.Record("alice", "s1", TokenUsage{InputTokens: 400, Model: "gpt-4o"})

	*clock = clock.Add(24 * time.Hour)
	usage := m.GetUsage("alice", "s1")

	if usage.DailyTokens != (WindowTokens{}) {
		t.Errorf("daily tokens = %+v, want zero window after day rollover", usage.DailyTokens)
	}
	if usage.DailyCostCents != 0 {
		t.Errorf("daily cost = %v, want 0 after day rollover", usage.DailyCostCents)
	}
	if got := usage.SessionTokens.Total(); got != 400 {
		t.Errorf("session tokens = %d, want 400 to survive rollover", got)
	}
	if usage.DailyResetDate != "2026-03-11" {
		t.Errorf("daily reset date = %q, want 2026-03-11", usage.DailyResetDate)
	}
}

func TestEndSessionDropsTracker(t *testing.T) {
	m, _ := newTestManager(testBudgetConfig())

	m.Record("alice", "s1", TokenUsage{InputTokens: 400, Model: "gpt-4o"})
	m.EndSession("alice", "s1")

	if m.TrackerCount() != 0 {
		t.Errorf("tracker count = %d, want 0", m.TrackerCount())
	}
	if usage := m.GetUsage("alice", "s1"); usage.SessionTokens.Total() != 0 {
		t.Errorf("counters survived EndSession: %+v", usage)
	}
}

func TestSweepRemovesOnlyIdleTrackers(t *testing.T) {
	m, clock := newTestManager(testBudgetConfig())

	m.Record("alice", "s1", TokenUsage{InputTokens: 1, Model: "gpt-4o"})
	m.Record("bob", "s2", TokenUsage{InputTokens: 1, Model: "gpt-4o"})

	*clock = clock.Add(2 * time.Hour)
	m.Record("bob", "s2", TokenUsage{InputTokens: 1, Model: "gpt-4o"})

	removed := m.Sweep()
	if removed != 1 {
		t.Errorf("swept %d trackers, want 1", removed)
	}
	if m.TrackerCount() != 1 {
		t.Errorf("tracker count = %d, want 1", m.TrackerCount())
	}
	if usage := m.GetUsage("bob", "s2"); usage.SessionTokens.Total() != 2 {
		t.Errorf("active tracker swept: %+v", usage)
	}
}

func TestPricerEstimate(t *testing.T) {
	p := NewPricer(config.DefaultPricing())

	est := p.Estimate("gpt-4o", 1000000, 0)
	if est.Cents != 250 {
		t.Errorf("gpt-4o input cost = %v cents, want 250", est.Cents)
	}
	if est.Model != "gpt-4o" {
		t.Errorf("pricing entry = %q, want gpt-4o", est.Model)
	}

	est = p.Estimate("unknown-model", 1000000, 1000000)
	if est.Model != "default" {
		t.Errorf("expected default pricing fallback, got %q", est.Model)
	}
	if est.Cents != 2000 {
		t.Errorf("default cost = %v cents, want 2000", est.Cents)
	}
	if est.Dollars() != "$20.00" {
		t.Errorf("Dollars() = %q, want $20.00", est.Dollars())
	}
}
