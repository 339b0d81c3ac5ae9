package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/robfig/cron/v3"
)

// Job is a named periodic maintenance step.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler runs maintenance jobs on a cron schedule. Every job runs on each
// tick; a failing job is logged and does not stop the others.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler validates schedule and creates a Scheduler for jobs.
func NewScheduler(schedule string, jobs []Job, l *slog.Logger) (*Scheduler, error) {
	if l == nil {
		l = slog.Default()
	}
	s := &Scheduler{
		cron:    cron.New(),
		jobs:    jobs,
		timeout: time.Minute,
		logger:  l.With("component", "task_scheduler"),
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents further runs and waits for a run in progress to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce executes every job sequentially and returns how many failed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	failed := 0
	for _, job := range s.jobs {
		log := s.logger.With("job", job.Name)
		jobCtx, cancel := context.WithTimeout(logger.WithLogger(ctx, log), s.timeout)
		started := time.Now()
		err := job.Run(jobCtx)
		cancel()
		if err != nil {
			failed++
			log.Error("maintenance job failed", "error", err)
			continue
		}
		log.Debug("maintenance job finished", "duration_ms", time.Since(started).Milliseconds())
	}
	return failed
}

// PruneFinishedTasks returns a job deleting finished task rows older than retention.
func PruneFinishedTasks(store TaskStore, retention time.Duration) Job {
	return Job{
		Name: "prune_finished_tasks",
		Run: func(ctx context.Context) error {
			n, err := store.DeleteFinishedBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				return fmt.Errorf("failed to delete finished tasks: %w", err)
			}
			if n > 0 {
				logger.FromContext(ctx).Info("pruned finished tasks", "count", n)
			}
			return nil
		},
	}
}
