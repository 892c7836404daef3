package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes audit records older than the retention window.
type Pruner struct {
	store         Store
	retentionDays int
	logger        *slog.Logger
}

// NewPruner creates a Pruner. retentionDays of zero disables pruning.
func NewPruner(store Store, retentionDays int) *Pruner {
	return &Pruner{
		store:         store,
		retentionDays: retentionDays,
		logger:        slog.Default().With("component", "audit.retention"),
	}
}

// Prune runs one pruning cycle and returns the number of records removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -p.retentionDays)
	deleted, err := p.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention pruning failed: %w", err)
	}
	return deleted, nil
}

// Scheduler runs the Pruner on a cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewScheduler creates a retention scheduler. An empty schedule makes
// Start a no-op.
func NewScheduler(pruner *Pruner, schedule string) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "audit.scheduler"),
	}
}

// Start begins scheduled pruning. The scheduler stops itself when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		deleted, err := s.pruner.Prune(ctx)
		if err != nil {
			s.logger.Error("scheduled audit pruning failed", "error", err)
			return
		}
		if deleted > 0 {
			s.logger.Info("scheduled audit pruning completed", "deleted_count", deleted)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("audit retention scheduler started",
		"schedule", s.schedule,
		"retention_days", s.pruner.retentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("audit retention scheduler stopped")
	}
}
