package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler wraps gocron for the two periodic loops: the dispatch tick and
// the stale-job recovery sweep.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates the scheduler. Jobs are registered before Start.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// AddDispatchTick registers the dispatcher's periodic claim-and-launch tick.
// Singleton mode keeps a slow launch from overlapping with the next tick.
func (s *Scheduler) AddDispatchTick(ctx context.Context, d *Dispatcher, interval time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { d.RunTick(ctx) }),
		gocron.WithName("dispatch-tick"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule dispatch tick: %w", err)
	}
	return nil
}

// AddRecoverySweep registers the stale-job sweep. Runs once at startup so
// jobs orphaned by a crash are recovered without waiting a full interval.
func (s *Scheduler) AddRecoverySweep(ctx context.Context, r *Recovery, interval time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { r.RunSweep(ctx) }),
		gocron.WithName("recovery-sweep"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule recovery sweep: %w", err)
	}
	return nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
