package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
)

// Sweep removes trackers that have been idle longer than the configured
// TTL and returns how many were removed. Trackers touched between the
// idle scan and the delete are kept.
func (m *Manager) Sweep() int {
	if m.cfg.TrackerIdleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.cfg.TrackerIdleTTL)

	m.mu.RLock()
	var stale []string
	for key, t := range m.trackers {
		if t.idleSince(cutoff) {
			stale = append(stale, key)
		}
	}
	m.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}

	m.mu.Lock()
	removed := 0
	for _, key := range stale {
		t, ok := m.trackers[key]
		if !ok {
			continue
		}
		// Re-check under the write lock so a tracker touched after the
		// scan survives.
		if !t.idleSince(cutoff) {
			continue
		}
		delete(m.trackers, key)
		removed++
	}
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Info("swept idle budget trackers", "removed", removed)
	}
	return removed
}

// SweepScheduler runs Manager.Sweep on a cron schedule.
type SweepScheduler struct {
	manager  *Manager
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
}

// NewSweepScheduler creates a sweep scheduler. An empty schedule makes
// Start a no-op.
func NewSweepScheduler(manager *Manager, schedule string) *SweepScheduler {
	return &SweepScheduler{
		manager:  manager,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start begins scheduled sweeping. The scheduler stops itself when ctx
// is cancelled.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.manager.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.manager.Sweep() }); err != nil {
		return fmt.Errorf("failed to schedule tracker sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.manager.logger.Info("budget tracker sweep started",
		"schedule", s.schedule,
		"idle_ttl", s.manager.cfg.TrackerIdleTTL,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
	}
}
