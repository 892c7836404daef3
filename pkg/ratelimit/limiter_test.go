package ratelimit

import (
	"strings"
	"testing"
	"time"

	"veritas-hq/bastion/pkg/config"
)

func testRateLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 2,
		RequestsPerHour:   10,
		RequestsPerDay:    20,
		TokensPerMinute:   100,
		TokensPerHour:     1000,
		TokensPerDay:      5000,
		BurstMultiplier:   1.0,
		Cooldown:          time.Minute,
	}
}

func newTestLimiter(cfg config.RateLimitConfig) (*Limiter, *time.Time) {
	l := NewLimiter(cfg)
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestCheckRequestsPerMinute(t *testing.T) {
	l, clock := newTestLimiter(testRateLimitConfig())

	l.Record("alice", 10)
	l.Record("alice", 10)

	result := l.Check("alice", 10)
	if result.Allowed {
		t.Fatal("expected third request in the minute to be rejected")
	}
	if result.Reason != "requests per minute exceeded" {
		t.Errorf("reason = %q", result.Reason)
	}
	if result.RetryAfter <= 0 || result.RetryAfter > time.Minute {
		t.Errorf("retry after = %v, want within the minute", result.RetryAfter)
	}

	// The minute window rolls over and the request passes again.
	*clock = clock.Add(61 * time.Second)
	if result := l.Check("alice", 10); !result.Allowed {
		t.Errorf("expected fresh minute window to allow, got %q", result.Reason)
	}
}

func TestCheckBurstMultiplier(t *testing.T) {
	cfg := testRateLimitConfig()
	cfg.BurstMultiplier = 2.0
	l, _ := newTestLimiter(cfg)

	// Steady rate is 2/minute; the burst multiplier stretches the
	// minute cap to 4.
	for i := 0; i < 3; i++ {
		l.Record("alice", 0)
	}
	if result := l.Check("alice", 0); !result.Allowed {
		t.Fatalf("expected burst allowance to admit, got %q", result.Reason)
	}

	l.Record("alice", 0)
	if result := l.Check("alice", 0); result.Allowed {
		t.Error("expected rejection past the burst allowance")
	}
}

func TestCheckTokensPerMinute(t *testing.T) {
	l, _ := newTestLimiter(testRateLimitConfig())

	l.Record("alice", 60)
	result := l.Check("alice", 50)
	if result.Allowed {
		t.Fatal("expected projected token usage to be rejected")
	}
	if result.Reason != "tokens per minute exceeded" {
		t.Errorf("reason = %q", result.Reason)
	}

	if result := l.Check("alice", 30); !result.Allowed {
		t.Errorf("smaller call should fit under the cap, got %q", result.Reason)
	}
}

func TestCheckHourWindowIgnoresBurst(t *testing.T) {
	cfg := testRateLimitConfig()
	cfg.RequestsPerMinute = 0 // disabled
	cfg.RequestsPerHour = 3
	cfg.BurstMultiplier = 10.0
	l, _ := newTestLimiter(cfg)

	for i := 0; i < 3; i++ {
		l.Record("alice", 0)
	}
	result := l.Check("alice", 0)
	if result.Allowed {
		t.Fatal("burst multiplier must not stretch the hour cap")
	}
	if result.Reason != "requests per hour exceeded" {
		t.Errorf("reason = %q", result.Reason)
	}
}

func TestCooldown(t *testing.T) {
	l, clock := newTestLimiter(testRateLimitConfig())

	l.SetCooldown("alice", 0) // config default, one minute

	result := l.Check("alice", 0)
	if result.Allowed {
		t.Fatal("expected cooldown to reject")
	}
	if !strings.Contains(result.Reason, "cooldown") {
		t.Errorf("reason = %q", result.Reason)
	}
	if result.RetryAfter != time.Minute {
		t.Errorf("retry after = %v, want 1m", result.RetryAfter)
	}

	*clock = clock.Add(61 * time.Second)
	if result := l.Check("alice", 0); !result.Allowed {
		t.Errorf("expected cooldown to expire, got %q", result.Reason)
	}
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	cfg := testRateLimitConfig()
	cfg.Enabled = false
	l, _ := newTestLimiter(cfg)

	for i := 0; i < 100; i++ {
		l.Record("alice", 1000)
	}
	if result := l.Check("alice", 1000000); !result.Allowed {
		t.Errorf("disabled limiter rejected: %q", result.Reason)
	}
}

func TestZeroCapDisablesWindow(t *testing.T) {
	cfg := testRateLimitConfig()
	cfg.RequestsPerMinute = 0
	l, _ := newTestLimiter(cfg)

	for i := 0; i < 5; i++ {
		l.Record("alice", 0)
	}
	// Five requests blow the old minute cap of two but stay under the
	// hour cap of ten.
	if result := l.Check("alice", 0); !result.Allowed {
		t.Errorf("uncapped minute window rejected: %q", result.Reason)
	}
}

func TestRemainingAllowances(t *testing.T) {
	l, _ := newTestLimiter(testRateLimitConfig())

	l.Record("alice", 40)
	result := l.Check("alice", 0)
	if !result.Allowed {
		t.Fatalf("unexpected rejection: %q", result.Reason)
	}
	if result.RemainingRequests != 1 {
		t.Errorf("remaining requests = %d, want 1 (minute window binds)", result.RemainingRequests)
	}
	if result.RemainingTokens != 60 {
		t.Errorf("remaining tokens = %d, want 60", result.RemainingTokens)
	}
}

func TestUsageSnapshot(t *testing.T) {
	l, clock := newTestLimiter(testRateLimitConfig())

	l.Record("alice", 30)
	l.Record("alice", 20)
	l.Check("alice", 100) // rejected, counted

	usage := l.Usage("alice")
	if usage.MinuteRequests != 2 || usage.TotalRequests != 2 {
		t.Errorf("request counters = %+v", usage)
	}
	if usage.MinuteTokens != 50 || usage.TotalTokens != 50 {
		t.Errorf("token counters = %+v", usage)
	}
	if usage.TotalRejections != 1 {
		t.Errorf("rejections = %d, want 1", usage.TotalRejections)
	}

	// Window counters reset with time; lifetime totals do not.
	*clock = clock.Add(25 * time.Hour)
	usage = l.Usage("alice")
	if usage.MinuteRequests != 0 || usage.DayRequests != 0 {
		t.Errorf("expected expired windows to reset, got %+v", usage)
	}
	if usage.TotalRequests != 2 {
		t.Errorf("total requests = %d, want 2", usage.TotalRequests)
	}
}

func TestCleanupDropsIdleUsers(t *testing.T) {
	l, clock := newTestLimiter(testRateLimitConfig())

	l.Record("idle", 1)
	*clock = clock.Add(25 * time.Hour)

	// The idle user's day window has expired; touching another user
	// past the cleanup interval prunes them.
	l.Usage("idle") // resets windows, dayRequests drops to zero
	*clock = clock.Add(25 * time.Hour)
	l.Check("active", 0)

	if l.StateCount() != 1 {
		t.Errorf("state count = %d, want 1 (only the active user)", l.StateCount())
	}
}
