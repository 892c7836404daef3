package budget

import (
	"sync"
	"time"
)

// dateLayout is the calendar-day key for the daily window.
const dateLayout = "2006-01-02"

// tracker holds the accumulated counters for one (user, session) pair.
//
// Daily counters reset lazily: every access first compares the stored
// reset date against the current UTC day and zeroes the daily window on
// a mismatch. There is no midnight timer.
type tracker struct {
	mu sync.Mutex

	userID    string
	sessionID string

	requestTokens WindowTokens
	sessionTokens WindowTokens
	dailyTokens   WindowTokens

	requestCostCents float64
	sessionCostCents float64
	dailyCostCents   float64

	dailyResetDate string
	lastTouched    time.Time
}

func newTracker(userID, sessionID string, now time.Time) *tracker {
	return &tracker{
		userID:         userID,
		sessionID:      sessionID,
		dailyResetDate: now.UTC().Format(dateLayout),
		lastTouched:    now,
	}
}

// maybeResetDaily zeroes the daily counters when the calendar day has
// rolled over since the last access. Caller holds t.mu.
func (t *tracker) maybeResetDaily(now time.Time) {
	today := now.UTC().Format(dateLayout)
	if today == t.dailyResetDate {
		return
	}
	t.dailyTokens = WindowTokens{}
	t.dailyCostCents = 0
	t.dailyResetDate = today
}

// record adds one call's usage to all three windows, keeping the
// input/output split per window.
func (t *tracker) record(now time.Time, usage TokenUsage, costCents float64) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.maybeResetDaily(now)
	t.requestTokens = t.requestTokens.add(usage)
	t.sessionTokens = t.sessionTokens.add(usage)
	t.dailyTokens = t.dailyTokens.add(usage)
	t.requestCostCents += costCents
	t.sessionCostCents += costCents
	t.dailyCostCents += costCents
	t.lastTouched = now

	return t.snapshotLocked()
}

// startRequest zeroes the request window for a new model call.
func (t *tracker) startRequest(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.maybeResetDaily(now)
	t.requestTokens = WindowTokens{}
	t.requestCostCents = 0
	t.lastTouched = now
}

// snapshot returns a copy of the counters after applying the lazy
// daily reset.
func (t *tracker) snapshot(now time.Time) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.maybeResetDaily(now)
	t.lastTouched = now
	return t.snapshotLocked()
}

func (t *tracker) snapshotLocked() Usage {
	return Usage{
		UserID:           t.userID,
		SessionID:        t.sessionID,
		RequestTokens:    t.requestTokens,
		SessionTokens:    t.sessionTokens,
		DailyTokens:      t.dailyTokens,
		RequestCostCents: t.requestCostCents,
		SessionCostCents: t.sessionCostCents,
		DailyCostCents:   t.dailyCostCents,
		DailyResetDate:   t.dailyResetDate,
	}
}

// idleSince reports whether the tracker was last touched before cutoff.
func (t *tracker) idleSince(cutoff time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTouched.Before(cutoff)
}
