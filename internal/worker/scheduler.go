package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a job on a standard five-field cron schedule. A run that is
// still going when the next one is due causes that next run to be skipped.
type Scheduler struct {
	cron *cron.Cron
	spec string
	job  func(context.Context) error
	id   cron.EntryID
}

// ValidateSchedule reports whether spec is a valid standard cron expression.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

func NewScheduler(spec string, job func(context.Context) error) (*Scheduler, error) {
	if err := ValidateSchedule(spec); err != nil {
		return nil, err
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		spec: spec,
		job:  job,
	}, nil
}

// Start registers the job and starts the cron loop. Runs use ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.spec, func() {
		start := time.Now()
		if err := s.job(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled recalculation failed", "error", err)
			return
		}
		slog.InfoContext(ctx, "Scheduled recalculation finished", "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	s.id = id
	s.cron.Start()

	slog.InfoContext(ctx, "Scheduler started", "schedule", s.spec, "next_run", s.Next())
	return nil
}

// Next returns the next planned run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	if s.id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.id).Next
}

// Stop stops scheduling and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
