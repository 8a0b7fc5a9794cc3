// Package maintenance runs the periodic counter resets and full
// resyncs. Every job is a recompute through the rollup engine, so there
// is exactly one definition of correct per counter and re-running any
// job is harmless.
package maintenance

import (
	"context"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/linkpulse/linkpulse/internal/rollup"
	"go.uber.org/zap"
)

// Scheduler triggers boundary recomputes: daily at local midnight,
// weekly on Monday, monthly on the 1st, plus an optional rolling full
// resync. It runs independently of request serving and concurrently
// with live traffic.
type Scheduler struct {
	rollup      *rollup.Engine
	clock       clicks.Clock
	logger      *zap.Logger
	resyncEvery time.Duration
	newRunID    func() string
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewScheduler creates a maintenance scheduler. resyncEvery of zero
// disables the rolling full resync.
func NewScheduler(engine *rollup.Engine, clock clicks.Clock, resyncEvery time.Duration, logger *zap.Logger) *Scheduler {
	runID, _ := nanoid.Standard(12)

	return &Scheduler{
		rollup:      engine,
		clock:       clock,
		logger:      logger,
		resyncEvery: resyncEvery,
		newRunID:    runID,
		done:        make(chan struct{}),
	}
}

// Start launches the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.run(ctx)

	return nil
}

// Shutdown stops the scheduler and waits for an in-flight job to finish.
func (s *Scheduler) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}

	<-s.done

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		now := s.clock.Now()
		loc := s.clock.Location()

		next, job := s.nextJob(now, loc)

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()

			return
		case <-timer.C:
			s.runJob(ctx, job)
		}
	}
}

// jobName identifies which boundary fired.
type jobName string

const (
	jobDaily   jobName = "daily"
	jobWeekly  jobName = "weekly"
	jobMonthly jobName = "monthly"
	jobResync  jobName = "resync"
)

// nextJob returns the earliest upcoming boundary. Weekly and monthly
// boundaries coincide with a daily one; picking the coarser name keeps
// the logs honest, the work is the same recompute either way.
func (s *Scheduler) nextJob(now time.Time, loc *time.Location) (time.Time, jobName) {
	next := NextDay(now, loc)
	job := jobDaily

	if week := NextWeek(now, loc); week.Equal(next) {
		job = jobWeekly
	}

	if month := NextMonth(now, loc); month.Equal(next) {
		job = jobMonthly
	}

	if s.resyncEvery > 0 {
		if resync := now.Add(s.resyncEvery); resync.Before(next) {
			return resync, jobResync
		}
	}

	return next, job
}

func (s *Scheduler) runJob(ctx context.Context, job jobName) {
	runID := s.newRunID()
	started := s.clock.Now()

	s.logger.Info("maintenance job started",
		zap.String("job", string(job)),
		zap.String("runId", runID),
	)

	if err := s.rollup.SyncAll(ctx); err != nil {
		s.logger.Error("maintenance link sync failed",
			zap.String("job", string(job)),
			zap.String("runId", runID),
			zap.Error(err),
		)
	}

	if err := s.rollup.SyncAllOwners(ctx); err != nil {
		s.logger.Error("maintenance owner sync failed",
			zap.String("job", string(job)),
			zap.String("runId", runID),
			zap.Error(err),
		)
	}

	s.logger.Info("maintenance job finished",
		zap.String("job", string(job)),
		zap.String("runId", runID),
		zap.Duration("took", s.clock.Now().Sub(started)),
	)
}

// NextDay returns the next local midnight strictly after t.
func NextDay(t time.Time, loc *time.Location) time.Time {
	return clicks.StartOfDay(t, loc).AddDate(0, 0, 1)
}

// NextWeek returns the next Monday local midnight strictly after t.
func NextWeek(t time.Time, loc *time.Location) time.Time {
	return clicks.StartOfWeek(t, loc).AddDate(0, 0, 7)
}

// NextMonth returns the next first-of-month local midnight strictly after t.
func NextMonth(t time.Time, loc *time.Location) time.Time {
	return clicks.StartOfMonth(t, loc).AddDate(0, 1, 0)
}
