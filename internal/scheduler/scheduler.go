package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/metrics"
	"github.com/goran-ethernal/ChainLedger/pkg/job"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownJob is returned when a job name is not scheduled.
var ErrUnknownJob = errors.New("unknown job")

type entry struct {
	job      job.Job
	interval time.Duration
}

// Scheduler triggers every job on its own fixed period.
// Each job runs in its own goroutine, so invocations of one job never overlap.
type Scheduler struct {
	entries map[string]entry
	log     *logger.Logger
}

// New creates an empty Scheduler.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		entries: make(map[string]entry),
		log:     log.WithComponent(common.ComponentScheduler),
	}
}

// Add schedules j every interval.
func (s *Scheduler) Add(j job.Job, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", j.Name())
	}
	if _, exists := s.entries[j.Name()]; exists {
		return fmt.Errorf("job %s is already scheduled", j.Name())
	}

	s.entries[j.Name()] = entry{job: j, interval: interval}

	return nil
}

// Names returns the scheduled job names in order.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Run fires every job immediately and then on its interval until ctx is done.
// A failed invocation is logged and counted; the job runs again on its next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, name := range s.Names() {
		e := s.entries[name]
		g.Go(func() error {
			s.loop(ctx, e)
			return nil
		})
	}

	s.log.Infow("scheduler started", "jobs", len(s.entries))

	err := g.Wait()

	s.log.Info("scheduler stopped")

	return err
}

// RunOnce invokes the named job a single time and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s (scheduled: %v)", ErrUnknownJob, name, s.Names())
	}

	return s.invoke(ctx, e.job)
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		if err := s.invoke(ctx, e.job); err != nil && ctx.Err() == nil {
			s.log.Errorw("job failed",
				"job", e.job.Name(),
				"interval", e.interval,
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, j job.Job) error {
	start := time.Now()

	err := j.Run(ctx)
	metrics.RecordRun(j.Name(), time.Since(start), err)
	if err != nil {
		return err
	}

	s.log.Debugw("job finished", "job", j.Name(), "duration", time.Since(start))

	return nil
}
