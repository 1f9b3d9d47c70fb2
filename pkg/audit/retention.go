package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig contains configuration for the Pruner.
type RetentionConfig struct {
	// Days is the number of days to keep records. 0 keeps them forever.
	Days int

	// MaxRecords caps the number of stored records. 0 means unlimited.
	MaxRecords int64

	// PruneSchedule is a standard cron expression. Empty disables the
	// scheduler.
	PruneSchedule string
}

// PruneObserver receives the number of records removed by each run.
type PruneObserver interface {
	ObserveAuditPrune(deleted int64)
}

// Pruner enforces the retention policy on a Storage.
type Pruner struct {
	storage  Storage
	config   RetentionConfig
	logger   *slog.Logger
	observer PruneObserver
	now      func() time.Time
}

// NewPruner creates a pruner. A nil logger uses slog.Default().
func NewPruner(storage Storage, cfg RetentionConfig, logger *slog.Logger, observer PruneObserver) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage:  storage,
		config:   cfg,
		logger:   logger.With("component", "audit.retention"),
		observer: observer,
		now:      time.Now,
	}
}

// Prune deletes records older than the retention period, then the oldest
// records beyond MaxRecords. It returns the number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		cutoff := p.now().UTC().AddDate(0, 0, -p.config.Days)
		deleted, err := p.storage.Delete(ctx, &Query{EndTime: &cutoff})
		if err != nil {
			return total, &RetentionError{RetentionDays: p.config.Days, Cause: err}
		}
		total += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if p.observer != nil {
		p.observer.ObserveAuditPrune(total)
	}
	if total > 0 {
		p.logger.Info("audit records pruned",
			"deleted_count", total,
			"retention_days", p.config.Days,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}

// pruneByCount deletes everything up to the recorded time of the newest
// record that falls outside the cap.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	excess := count - p.config.MaxRecords
	if excess <= 0 {
		return 0, nil
	}

	oldest, err := p.storage.Query(ctx, &Query{SortOrder: SortAsc, Limit: int(excess)})
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}
	cutoff := oldest[len(oldest)-1].RecordedAt
	return p.storage.Delete(ctx, &Query{EndTime: &cutoff})
}

// Scheduler runs a Pruner on its cron schedule.
type Scheduler struct {
	pruner  *Pruner
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler for pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{pruner: pruner, cron: cron.New()}
}

// Start schedules pruning until ctx is cancelled or Stop is called. An
// empty schedule is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.pruner.config.PruneSchedule
	if schedule == "" {
		s.pruner.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.pruner.logger.Info("retention scheduler started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.pruner.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.pruner.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
