package budget

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"veritas-hq/bastion/pkg/audit"
	"veritas-hq/bastion/pkg/config"
)

// Manager tracks token and cost consumption per (user, session) pair
// and enforces the six configured caps: tokens and cost, each over the
// request, session, and daily windows.
//
// Trackers are created on first use and removed either explicitly by
// EndSession or by the periodic idle sweep. All methods are safe for
// concurrent use.
type Manager struct {
	mu       sync.RWMutex
	trackers map[string]*tracker

	cfg      config.BudgetConfig
	pricer   *Pricer
	recorder *audit.Recorder // optional
	logger   *slog.Logger

	// now is stubbed in tests to exercise the daily reset and the sweep.
	now func() time.Time
}

// NewManager creates a budget manager. The recorder may be nil to
// disable audit emission.
func NewManager(cfg config.BudgetConfig, recorder *audit.Recorder) *Manager {
	return &Manager{
		trackers: make(map[string]*tracker),
		cfg:      cfg,
		pricer:   NewPricer(cfg.Pricing),
		recorder: recorder,
		logger:   slog.Default().With("component", "budget"),
		now:      time.Now,
	}
}

func trackerKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// get returns the tracker for the pair, creating it if needed.
func (m *Manager) get(userID, sessionID string) *tracker {
	key := trackerKey(userID, sessionID)

	m.mu.RLock()
	t, ok := m.trackers[key]
	m.mu.RUnlock()
	if ok {
		return t
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok = m.trackers[key]; ok {
		return t
	}
	t = newTracker(userID, sessionID, m.now())
	m.trackers[key] = t
	return t
}

// PreCheck projects a pending call of estimatedTokens onto the current
// counters and reports whether any cap would be exceeded. The check is
// a projection: nothing is recorded, and the same call must later be
// accounted with Record.
//
// With hard cutoff disabled, violations are reported as warnings and
// the call is allowed (audit-only mode). Windows already past the warn
// threshold produce warnings unless that same window is violated.
func (m *Manager) PreCheck(userID, sessionID string, estimatedTokens int, model string) *CheckResult {
	usage := m.get(userID, sessionID).snapshot(m.now())
	estCost := m.pricer.Estimate(model, estimatedTokens, 0)

	result := m.evaluate(usage, estimatedTokens, estCost.Cents)
	if result.Reason != "" || len(result.Warnings) > 0 {
		m.auditCheck(userID, sessionID, "budget.precheck", result)
	}
	return result
}

// Record accounts a completed call's actual usage against all three
// windows, then evaluates the caps against the new totals.
func (m *Manager) Record(userID, sessionID string, usage TokenUsage) *CheckResult {
	cost := m.pricer.Estimate(usage.Model, usage.InputTokens, usage.OutputTokens)
	updated := m.get(userID, sessionID).record(m.now(), usage, cost.Cents)

	result := m.evaluate(updated, 0, 0)
	if result.Reason != "" {
		m.auditCheck(userID, sessionID, "budget.exceeded", result)
	}
	return result
}

// evaluate checks usage plus an optional projected call against the six
// caps. Reason lists every violated cap; warnings cover windows past
// the warn threshold but under cap.
func (m *Manager) evaluate(usage Usage, addTokens int, addCostCents float64) *CheckResult {
	type window struct {
		label  string
		used   float64
		cap    float64
		tokens bool
	}
	windows := []window{
		{"Request token", float64(usage.RequestTokens.Total() + addTokens), float64(m.cfg.MaxTokensPerRequest), true},
		{"Session token", float64(usage.SessionTokens.Total() + addTokens), float64(m.cfg.MaxTokensPerSession), true},
		{"Daily token", float64(usage.DailyTokens.Total() + addTokens), float64(m.cfg.MaxTokensPerDay), true},
		{"Request cost", usage.RequestCostCents + addCostCents, m.cfg.MaxCostPerRequestCents, false},
		{"Session cost", usage.SessionCostCents + addCostCents, m.cfg.MaxCostPerSessionCents, false},
		{"Daily cost", usage.DailyCostCents + addCostCents, m.cfg.MaxCostPerDayCents, false},
	}

	result := &CheckResult{Allowed: true, Usage: usage}
	percents := []*float64{
		&result.PercentUsed.RequestTokens,
		&result.PercentUsed.SessionTokens,
		&result.PercentUsed.DailyTokens,
		&result.PercentUsed.RequestCost,
		&result.PercentUsed.SessionCost,
		&result.PercentUsed.DailyCost,
	}

	var violations []string
	for i, w := range windows {
		if w.cap <= 0 {
			continue
		}
		pct := w.used / w.cap * 100
		*percents[i] = pct

		if w.used > w.cap {
			violations = append(violations,
				fmt.Sprintf("%s limit exceeded (%s)", w.label, ratio(w.used, w.cap, w.tokens)))
			continue
		}
		if m.cfg.WarnThresholdPercent > 0 && pct >= m.cfg.WarnThresholdPercent {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s budget at %.0f%% (%s)", w.label, pct, ratio(w.used, w.cap, w.tokens)))
		}
	}

	if len(violations) > 0 {
		if m.cfg.HardCutoff {
			result.Allowed = false
			result.Reason = strings.Join(violations, "; ")
		} else {
			result.Warnings = append(result.Warnings, violations...)
		}
	}
	return result
}

// ratio renders "1100/1000" for tokens and "$11.00/$10.00" for cents.
func ratio(used, cap float64, tokens bool) string {
	if tokens {
		return fmt.Sprintf("%d/%d", int(used), int(cap))
	}
	return fmt.Sprintf("$%.2f/$%.2f", used/100, cap/100)
}

// StartRequest zeroes the request window ahead of a new model call.
// Session and daily counters are unaffected.
func (m *Manager) StartRequest(userID, sessionID string) {
	m.get(userID, sessionID).startRequest(m.now())
}

// GetUsage returns the current counters for the pair, creating an
// empty tracker if none exists.
func (m *Manager) GetUsage(userID, sessionID string) Usage {
	return m.get(userID, sessionID).snapshot(m.now())
}

// EstimateCost prices a call without touching any tracker.
func (m *Manager) EstimateCost(model string, inputTokens, outputTokens int) CostEstimate {
	return m.pricer.Estimate(model, inputTokens, outputTokens)
}

// EndSession drops the tracker for the pair, releasing its counters.
// Daily totals are tracked per session pair, so ending a session ends
// its daily accounting too.
func (m *Manager) EndSession(userID, sessionID string) {
	key := trackerKey(userID, sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trackers, key)
}

// TrackerCount returns the number of live trackers.
func (m *Manager) TrackerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trackers)
}

func (m *Manager) auditCheck(userID, sessionID, action string, result *CheckResult) {
	if m.recorder == nil {
		return
	}
	m.recorder.Emit(&audit.Record{
		UserID:   userID,
		Action:   action,
		Category: "budget",
		Target:   sessionID,
		Metadata: map[string]any{
			"allowed":  result.Allowed,
			"reason":   result.Reason,
			"warnings": result.Warnings,
		},
	})
}
