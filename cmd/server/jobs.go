package main

import (
	"context"
	"fmt"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/task"
)

// rateLimiterIdle is how long a caller may stay quiet before its limiter is dropped.
const rateLimiterIdle = 10 * time.Minute

// maintenanceJobs lists the periodic jobs for the configured backends. Every
// job reports its outcome to the metrics registry.
func (app *application) maintenanceJobs() []task.Job {
	var jobs []task.Job

	if app.memoryCache != nil {
		jobs = append(jobs, task.Job{
			Name: "cleanup_chat_responses",
			Run: func(ctx context.Context) error {
				if n := app.memoryCache.Purge(); n > 0 {
					logger.FromContext(ctx).Info("purged expired chat responses", "count", n)
				}
				return nil
			},
		})
	}

	if app.memoryRevocations != nil {
		jobs = append(jobs, task.Job{
			Name: "purge_revoked_tokens",
			Run: func(ctx context.Context) error {
				if n := app.memoryRevocations.Purge(); n > 0 {
					logger.FromContext(ctx).Debug("purged lapsed token revocations", "count", n)
				}
				return nil
			},
		})
	}

	resetLifetime := time.Duration(app.config.Auth.ResetTokenLifetimeMinutes) * time.Minute
	jobs = append(jobs,
		task.Job{
			Name: "prune_password_reset_tokens",
			Run: func(ctx context.Context) error {
				n, err := app.resetStore.DeleteExpired(ctx, time.Now().Add(-resetLifetime))
				if err != nil {
					return fmt.Errorf("failed to delete expired reset tokens: %w", err)
				}
				if n > 0 {
					logger.FromContext(ctx).Info("pruned password reset tokens", "count", n)
				}
				return nil
			},
		},
		task.PruneFinishedTasks(app.taskStore, time.Duration(app.config.Task.TaskRetentionDays)*24*time.Hour),
		task.Job{
			Name: "prune_rate_limiters",
			Run: func(ctx context.Context) error {
				app.limiter.Prune(rateLimiterIdle)
				return nil
			},
		},
	)

	for i := range jobs {
		jobs[i] = app.instrument(jobs[i])
	}
	return jobs
}

// instrument records every run of job in the metrics registry.
func (app *application) instrument(job task.Job) task.Job {
	run := job.Run
	job.Run = func(ctx context.Context) error {
		err := run(ctx)
		app.metrics.JobRan(job.Name, err)
		return err
	}
	return job
}
