// Package usermon maintains per-user behavior profiles: a risk score
// fed by blocked requests, injection attempts, and circumvention
// attempts, decaying over time, with flags for recurring patterns and
// an auto-block once the score crosses the block threshold.
package usermon

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// RiskLevel classifies a user by their accumulated risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"

	// RiskBlocked users are rejected outright. Blocked is terminal
	// until an explicit Unblock; the score does not decay out of it.
	RiskBlocked RiskLevel = "blocked"
)

// Flag marks a recurring behavior pattern on a profile.
type Flag string

const (
	FlagRepeatedBlockedContent Flag = "repeated_blocked_content"
	FlagInjectionAttempts      Flag = "prompt_injection_attempts"
	FlagFilterCircumvention    Flag = "filter_circumvention"
	FlagRapidFireRequests      Flag = "rapid_fire_requests"
)

// Risk score thresholds.
const (
	mediumRiskScore = 25
	highRiskScore   = 50
	criticalScore   = 75
)

// Score weights per event kind.
const (
	weightBlockedContent = 5
	weightInjection      = 15
	weightCircumvention  = 20
	weightRapidFire      = 5
)

// Flag trip points.
const (
	repeatedBlockedFlagAt = 3
	injectionFlagAt       = 2
	rapidFirePerMinute    = 30
)

// maxRecentEvents bounds the per-profile event ring.
const maxRecentEvents = 100

// Event is one recorded behavior observation.
type Event struct {
	Time     time.Time `json:"time"`
	Kind     string    `json:"kind"`
	Severity int       `json:"severity"`
	Detail   string    `json:"detail,omitempty"`
}

// Profile is a user's accumulated behavior record. Profiles returned
// by Monitor methods are copies; mutating them does not affect the
// monitor's state.
type Profile struct {
	UserID    string    `json:"user_id"`
	RiskLevel RiskLevel `json:"risk_level"`
	RiskScore float64   `json:"risk_score"`
	Flags     []Flag    `json:"flags,omitempty"`

	TotalRequests     int `json:"total_requests"`
	BlockedRequests   int `json:"blocked_requests"`
	InjectionAttempts int `json:"injection_attempts"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	recent []Event
}

func (p *Profile) hasFlag(flag Flag) bool {
	for _, f := range p.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

func (p *Profile) addFlag(flag Flag) {
	if !p.hasFlag(flag) {
		p.Flags = append(p.Flags, flag)
	}
}

func (p *Profile) addEvent(e Event) {
	p.recent = append(p.recent, e)
	if len(p.recent) > maxRecentEvents {
		p.recent = p.recent[len(p.recent)-maxRecentEvents:]
	}
}

func (p *Profile) eventsSince(cutoff time.Time) int {
	n := 0
	for _, e := range p.recent {
		if e.Time.After(cutoff) {
			n++
		}
	}
	return n
}

func (p *Profile) clone() *Profile {
	out := *p
	out.Flags = append([]Flag(nil), p.Flags...)
	out.recent = nil
	return &out
}

// Stats summarizes the monitored population.
type Stats struct {
	TotalUsers        int               `json:"total_users"`
	RiskDistribution  map[RiskLevel]int `json:"risk_distribution"`
	TotalRequests     int               `json:"total_requests"`
	TotalBlocked      int               `json:"total_blocked"`
	TotalInjections   int               `json:"total_injections"`
}

// Monitor tracks behavior profiles for every user the engine has
// seen. All methods are safe for concurrent use.
type Monitor struct {
	mu       sync.Mutex
	profiles map[string]*Profile

	// decayPerHour is how many score points drain per idle hour.
	decayPerHour float64

	// autoBlockScore is the score at which a user is blocked without
	// operator action.
	autoBlockScore float64

	logger *slog.Logger

	// now is stubbed in tests to exercise decay.
	now func() time.Time
}

// NewMonitor creates a monitor with the default decay rate and
// auto-block threshold.
func NewMonitor() *Monitor {
	return &Monitor{
		profiles:       make(map[string]*Profile),
		decayPerHour:   0.1,
		autoBlockScore: 100,
		logger:         slog.Default().With("component", "usermon"),
		now:            time.Now,
	}
}

func (m *Monitor) get(userID string, now time.Time) *Profile {
	p, ok := m.profiles[userID]
	if !ok {
		p = &Profile{
			UserID:    userID,
			RiskLevel: RiskLow,
			FirstSeen: now,
			LastSeen:  now,
		}
		m.profiles[userID] = p
	}
	return p
}

// refresh applies score decay and recomputes the risk level. Blocked
// profiles stay blocked. Caller holds m.mu.
func (m *Monitor) refresh(p *Profile, now time.Time) {
	if p.RiskLevel == RiskBlocked {
		return
	}
	idle := now.Sub(p.LastSeen).Hours()
	if idle > 0 {
		p.RiskScore -= idle * m.decayPerHour
		if p.RiskScore < 0 {
			p.RiskScore = 0
		}
	}

	switch {
	case p.RiskScore >= m.autoBlockScore:
		p.RiskLevel = RiskBlocked
		m.logger.Warn("user auto-blocked", "user_id", p.UserID, "risk_score", p.RiskScore)
	case p.RiskScore >= criticalScore:
		p.RiskLevel = RiskCritical
	case p.RiskScore >= highRiskScore:
		p.RiskLevel = RiskHigh
	case p.RiskScore >= mediumRiskScore:
		p.RiskLevel = RiskMedium
	default:
		p.RiskLevel = RiskLow
	}
}

// Profile returns a copy of the user's profile after applying decay.
func (m *Monitor) Profile(userID string) *Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p := m.get(userID, now)
	m.refresh(p, now)
	return p.clone()
}

// IsBlocked reports whether the user is currently blocked.
func (m *Monitor) IsBlocked(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return false
	}
	m.refresh(p, m.now())
	return p.RiskLevel == RiskBlocked
}

// RecordRequest accounts one enforcement decision for the user. A
// blocked content request raises the score and, on repetition, flags
// the profile.
func (m *Monitor) RecordRequest(userID string, blocked bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p := m.get(userID, now)
	m.refresh(p, now)

	p.TotalRequests++
	if blocked {
		p.BlockedRequests++
		p.RiskScore += weightBlockedContent
		p.addEvent(Event{Time: now, Kind: "blocked_content", Severity: weightBlockedContent, Detail: reason})
		if p.BlockedRequests >= repeatedBlockedFlagAt {
			p.addFlag(FlagRepeatedBlockedContent)
		}
	} else {
		p.addEvent(Event{Time: now, Kind: "request"})
	}

	// A request storm inside one minute is itself a signal.
	if p.eventsSince(now.Add(-time.Minute)) > rapidFirePerMinute {
		p.addFlag(FlagRapidFireRequests)
		p.RiskScore += weightRapidFire
		p.addEvent(Event{Time: now, Kind: "rapid_fire", Severity: weightRapidFire})
	}

	p.LastSeen = now
	m.refresh(p, now)
}

// RecordInjectionAttempt accounts a detected prompt injection or
// jailbreak attempt.
func (m *Monitor) RecordInjectionAttempt(userID, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p := m.get(userID, now)
	m.refresh(p, now)

	p.InjectionAttempts++
	p.RiskScore += weightInjection
	p.addEvent(Event{Time: now, Kind: "injection_attempt", Severity: weightInjection, Detail: kind})
	if p.InjectionAttempts >= injectionFlagAt {
		p.addFlag(FlagInjectionAttempts)
	}

	p.LastSeen = now
	m.refresh(p, now)

	m.logger.Warn("injection attempt recorded",
		"user_id", userID, "attempts", p.InjectionAttempts, "risk_score", p.RiskScore)
}

// RecordCircumvention accounts a filter circumvention attempt, the
// heaviest signal short of an operator block.
func (m *Monitor) RecordCircumvention(userID, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p := m.get(userID, now)
	m.refresh(p, now)

	p.RiskScore += weightCircumvention
	p.addEvent(Event{Time: now, Kind: "filter_circumvention", Severity: weightCircumvention, Detail: detail})
	p.addFlag(FlagFilterCircumvention)

	p.LastSeen = now
	m.refresh(p, now)
}

// Block marks the user blocked until an explicit Unblock.
func (m *Monitor) Block(userID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p := m.get(userID, now)
	p.RiskLevel = RiskBlocked
	p.addEvent(Event{Time: now, Kind: "blocked", Detail: reason})
	m.logger.Warn("user blocked", "user_id", userID, "reason", reason)
}

// Unblock releases a blocked user. The user restarts at medium risk
// rather than clean, so renewed abuse escalates quickly.
func (m *Monitor) Unblock(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p := m.get(userID, now)
	p.RiskLevel = RiskMedium
	p.RiskScore = mediumRiskScore
	p.LastSeen = now
	p.addEvent(Event{Time: now, Kind: "unblocked"})
	m.logger.Info("user unblocked", "user_id", userID)
}

// HighRiskUsers returns every profile at high risk or worse, highest
// score first.
func (m *Monitor) HighRiskUsers() []*Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var out []*Profile
	for _, p := range m.profiles {
		m.refresh(p, now)
		switch p.RiskLevel {
		case RiskHigh, RiskCritical, RiskBlocked:
			out = append(out, p.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RiskScore > out[j].RiskScore })
	return out
}

// Stats summarizes the monitored population.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	stats := Stats{RiskDistribution: make(map[RiskLevel]int)}
	for _, p := range m.profiles {
		m.refresh(p, now)
		stats.TotalUsers++
		stats.RiskDistribution[p.RiskLevel]++
		stats.TotalRequests += p.TotalRequests
		stats.TotalBlocked += p.BlockedRequests
		stats.TotalInjections += p.InjectionAttempts
	}
	return stats
}
