// Package ratelimit bounds how often each user may call the engine,
// independent of what the calls cost. Requests and tokens are counted
// over minute, hour, and day windows; the minute caps stretch by a
// burst multiplier so short spikes pass while the larger windows still
// bound the total.
package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"veritas-hq/bastion/pkg/config"
)

// cleanupInterval is how often Check prunes idle per-user state.
const cleanupInterval = 5 * time.Minute

// Result is the outcome of a rate limit check.
type Result struct {
	// Allowed is false when a window cap is hit or the user is in
	// cooldown.
	Allowed bool `json:"allowed"`

	// Reason names the exhausted window, empty when allowed.
	Reason string `json:"reason,omitempty"`

	// RetryAfter is how long until the limiting window resets.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// RemainingRequests is the smallest remaining request allowance
	// across the configured windows.
	RemainingRequests int `json:"remaining_requests"`

	// RemainingTokens is the smallest remaining token allowance across
	// the configured minute and hour windows.
	RemainingTokens int `json:"remaining_tokens"`
}

// UsageSnapshot is a point-in-time view of one user's counters.
type UsageSnapshot struct {
	MinuteRequests int `json:"minute_requests"`
	HourRequests   int `json:"hour_requests"`
	DayRequests    int `json:"day_requests"`

	MinuteTokens int `json:"minute_tokens"`
	HourTokens   int `json:"hour_tokens"`
	DayTokens    int `json:"day_tokens"`

	TotalRequests   int  `json:"total_requests"`
	TotalTokens     int  `json:"total_tokens"`
	TotalRejections int  `json:"total_rejections"`
	InCooldown      bool `json:"in_cooldown"`
}

// state holds one user's window counters. Windows are fixed: each
// resets wholesale when its duration has elapsed since it was opened.
type state struct {
	minuteRequests int
	hourRequests   int
	dayRequests    int

	minuteTokens int
	hourTokens   int
	dayTokens    int

	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time

	cooldownUntil time.Time

	totalRequests   int
	totalTokens     int
	totalRejections int
}

func (s *state) resetExpired(now time.Time) {
	if now.Sub(s.minuteStart) >= time.Minute {
		s.minuteRequests = 0
		s.minuteTokens = 0
		s.minuteStart = now
	}
	if now.Sub(s.hourStart) >= time.Hour {
		s.hourRequests = 0
		s.hourTokens = 0
		s.hourStart = now
	}
	if now.Sub(s.dayStart) >= 24*time.Hour {
		s.dayRequests = 0
		s.dayTokens = 0
		s.dayStart = now
	}
}

// Limiter enforces per-user request and token rates. All methods are
// safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	states map[string]*state

	cfg    config.RateLimitConfig
	logger *slog.Logger

	lastCleanup time.Time

	// now is stubbed in tests to exercise window resets and cooldowns.
	now func() time.Time
}

// NewLimiter creates a rate limiter from configuration.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		states: make(map[string]*state),
		cfg:    cfg,
		logger: slog.Default().With("component", "ratelimit"),
		now:    time.Now,
	}
}

func (l *Limiter) get(userID string, now time.Time) *state {
	s, ok := l.states[userID]
	if !ok {
		s = &state{minuteStart: now, hourStart: now, dayStart: now}
		l.states[userID] = s
	}
	return s
}

// Check reports whether the user may issue another request carrying
// an estimated estimatedTokens tokens. Nothing is counted; a permitted
// call must later be accounted with Record.
func (l *Limiter) Check(userID string, estimatedTokens int) *Result {
	if !l.cfg.Enabled {
		return &Result{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) > cleanupInterval {
		l.cleanupLocked(now)
		l.lastCleanup = now
	}

	s := l.get(userID, now)

	if s.cooldownUntil.After(now) {
		s.totalRejections++
		return &Result{
			Allowed:    false,
			Reason:     "in cooldown",
			RetryAfter: s.cooldownUntil.Sub(now),
		}
	}

	s.resetExpired(now)

	result := l.checkLocked(s, estimatedTokens, now)
	if !result.Allowed {
		s.totalRejections++
		l.logger.Warn("rate limit exceeded",
			"user_id", userID, "reason", result.Reason)
	}
	return result
}

func (l *Limiter) checkLocked(s *state, estimatedTokens int, now time.Time) *Result {
	cfg := l.cfg

	type window struct {
		kind     string
		label    string
		used     int
		add      int
		cap      int
		start    time.Time
		duration time.Duration
	}
	burstMinute := func(cap int) int { return int(float64(cap) * cfg.BurstMultiplier) }
	windows := []window{
		{"requests", "minute", s.minuteRequests, 1, burstMinute(cfg.RequestsPerMinute), s.minuteStart, time.Minute},
		{"requests", "hour", s.hourRequests, 1, cfg.RequestsPerHour, s.hourStart, time.Hour},
		{"requests", "day", s.dayRequests, 1, cfg.RequestsPerDay, s.dayStart, 24 * time.Hour},
		{"tokens", "minute", s.minuteTokens, estimatedTokens, burstMinute(cfg.TokensPerMinute), s.minuteStart, time.Minute},
		{"tokens", "hour", s.hourTokens, estimatedTokens, cfg.TokensPerHour, s.hourStart, time.Hour},
		{"tokens", "day", s.dayTokens, estimatedTokens, cfg.TokensPerDay, s.dayStart, 24 * time.Hour},
	}
	for _, w := range windows {
		if w.cap <= 0 {
			continue
		}
		if w.used+w.add > w.cap {
			return &Result{
				Allowed:    false,
				Reason:     fmt.Sprintf("%s per %s exceeded", w.kind, w.label),
				RetryAfter: w.start.Add(w.duration).Sub(now),
			}
		}
	}

	return &Result{
		Allowed:           true,
		RemainingRequests: minRemaining(
			remaining(cfg.RequestsPerMinute, s.minuteRequests),
			remaining(cfg.RequestsPerHour, s.hourRequests),
			remaining(cfg.RequestsPerDay, s.dayRequests),
		),
		RemainingTokens: minRemaining(
			remaining(cfg.TokensPerMinute, s.minuteTokens),
			remaining(cfg.TokensPerHour, s.hourTokens),
		),
	}
}

// remaining reports the allowance left in one window, -1 when the
// window has no cap.
func remaining(cap, used int) int {
	if cap <= 0 {
		return -1
	}
	if used >= cap {
		return 0
	}
	return cap - used
}

// minRemaining folds window allowances, ignoring uncapped (-1) ones.
func minRemaining(values ...int) int {
	min := -1
	for _, v := range values {
		if v < 0 {
			continue
		}
		if min < 0 || v < min {
			min = v
		}
	}
	return min
}

// Record accounts one completed request and its token usage against
// all three windows.
func (l *Limiter) Record(userID string, tokensUsed int) {
	if !l.cfg.Enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	s := l.get(userID, now)
	s.resetExpired(now)

	s.minuteRequests++
	s.hourRequests++
	s.dayRequests++
	s.minuteTokens += tokensUsed
	s.hourTokens += tokensUsed
	s.dayTokens += tokensUsed
	s.totalRequests++
	s.totalTokens += tokensUsed
}

// SetCooldown locks the user out for d, or for the configured default
// cooldown when d is zero.
func (l *Limiter) SetCooldown(userID string, d time.Duration) {
	if d == 0 {
		d = l.cfg.Cooldown
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	s := l.get(userID, now)
	s.cooldownUntil = now.Add(d)
	l.logger.Info("user placed in cooldown", "user_id", userID, "duration", d)
}

// Usage returns the user's current counters after applying window
// resets.
func (l *Limiter) Usage(userID string) UsageSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.states[userID]
	if !ok {
		return UsageSnapshot{}
	}
	now := l.now()
	s.resetExpired(now)
	return UsageSnapshot{
		MinuteRequests:  s.minuteRequests,
		HourRequests:    s.hourRequests,
		DayRequests:     s.dayRequests,
		MinuteTokens:    s.minuteTokens,
		HourTokens:      s.hourTokens,
		DayTokens:       s.dayTokens,
		TotalRequests:   s.totalRequests,
		TotalTokens:     s.totalTokens,
		TotalRejections: s.totalRejections,
		InCooldown:      s.cooldownUntil.After(now),
	}
}

// StateCount returns the number of live per-user states.
func (l *Limiter) StateCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

// cleanupLocked drops users with no activity for a day who are not in
// cooldown. Caller holds l.mu.
func (l *Limiter) cleanupLocked(now time.Time) {
	for userID, s := range l.states {
		if now.Sub(s.dayStart) > 24*time.Hour && !s.cooldownUntil.After(now) && s.dayRequests == 0 {
			delete(l.states, userID)
		}
	}
}
