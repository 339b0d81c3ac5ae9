package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/redact"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration

	// TaskTimeout bounds a single execution. If zero, defaults to 5 minutes.
	TaskTimeout time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
		TaskTimeout:            5 * time.Minute,
	}
}

// Observer is notified about task outcomes, e.g. to record metrics.
type Observer interface {
	TaskSubmitted(taskType string)
	TaskFinished(taskType string, status TaskStatus, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) TaskSubmitted(string)                           {}
func (nopObserver) TaskFinished(string, TaskStatus, time.Duration) {}

// TaskRunner manages background task processing
type TaskRunner struct {
	store      TaskStore
	registry   *Registry
	queue      *TaskQueue
	pool       *WorkerPool
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	observer   Observer
	errHandler func(task Task, err error)
	stopOnce   sync.Once
}

// NewTaskRunner creates a new TaskRunner. The registry is used to rebuild
// persisted tasks during recovery.
func NewTaskRunner(store TaskStore, registry *Registry, config TaskRunnerConfig, l *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if config.TaskTimeout == 0 {
		config.TaskTimeout = 5 * time.Minute
	}
	if l == nil {
		l = slog.Default()
	}
	l = l.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())
	queue := NewTaskQueue(config.QueueSize, l)

	return &TaskRunner{
		store:      store,
		registry:   registry,
		queue:      queue,
		pool:       NewWorkerPool(queue.GetChannel(), config.WorkerCount, l),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     l,
		observer:   nopObserver{},
		errHandler: func(task Task, err error) {},
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// SetObserver installs an Observer for task outcomes.
func (r *TaskRunner) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	r.observer = o
}

// Submit persists a task and queues it for execution. When the queue is full
// the stored task is marked failed so it is not picked up again by recovery.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		log.Error("failed to enqueue task",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark rejected task as failed",
				"task_id", task.ID(),
				"error", updateErr)
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	r.observer.TaskSubmitted(task.Type())
	return nil
}

// Start launches the workers, then recovers unfinished tasks and starts the
// stuck task monitor. Recovery may queue more tasks than the queue holds.
func (r *TaskRunner) Start() error {
	r.pool.Start(r.ctx, r.processTask)

	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop gracefully shuts down the task runner. Running tasks are allowed to finish.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.cancelFunc()
		r.pool.Wait()
		r.wg.Wait()
		r.queue.Close()
	})
}

// Recover loads any unfinished tasks from the database and queues them again.
// Queueing waits for free slots, so it only returns once every task is queued
// or ctx is done.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Tasks left in processing were interrupted by a crash or shutdown.
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec, "")
	}
	for _, rec := range processing {
		r.requeue(ctx, rec, "Reset after recovery")
	}

	return nil
}

// requeue rebuilds a stored task and puts it back on the queue. resetReason,
// when set, moves the row back to pending first.
func (r *TaskRunner) requeue(ctx context.Context, rec Record, resetReason string) {
	log := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	t, err := r.registry.Rebuild(rec)
	if err != nil {
		log.Error("failed to rebuild stored task", "error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark unrecoverable task as failed", "error", updateErr)
		}
		return
	}

	if resetReason != "" {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, resetReason); err != nil {
			log.Error("failed to reset task status", "error", err)
			return
		}
	}

	if err := r.queue.EnqueueWait(ctx, t); err != nil {
		log.Error("failed to requeue task", "error", err)
		return
	}
	log.Info("requeued task")
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	log := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	// Shutdown waits for running tasks instead of interrupting them.
	execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.TaskTimeout)
	defer cancel()
	execCtx = logger.WithLogger(execCtx, log)

	if err := r.store.UpdateTaskStatus(execCtx, task.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", "error", err)
		return
	}

	log.Info("processing task")
	started := time.Now()

	err := r.execute(execCtx, task)
	elapsed := time.Since(started)

	if err != nil {
		log.Error("task execution failed",
			"error", redact.Error(err),
			"duration_ms", elapsed.Milliseconds())
		if updateErr := r.store.UpdateTaskStatus(execCtx, task.ID(), TaskStatusFailed, redact.Error(err)); updateErr != nil {
			log.Error("failed to update task status to failed", "error", updateErr)
		}
		r.observer.TaskFinished(task.Type(), TaskStatusFailed, elapsed)
		r.errHandler(task, err)
		return
	}

	log.Info("task completed successfully", "duration_ms", elapsed.Milliseconds())
	if updateErr := r.store.UpdateTaskStatus(execCtx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
		log.Error("failed to update task status to completed", "error", updateErr)
	}
	r.observer.TaskFinished(task.Type(), TaskStatusCompleted, elapsed)
}

// execute runs the task, converting a panic into an error.
func (r *TaskRunner) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, p)
		}
	}()
	return task.Execute(ctx)
}

// ErrTaskPanicked wraps a panic raised by a task's Execute.
var ErrTaskPanicked = errors.New("task panicked")

// stuckTaskMonitor periodically checks for tasks that have been in "processing"
// state for too long and resets them
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			r.ResetStuckTasks(r.ctx)
		}
	}
}

// ResetStuckTasks requeues tasks that have been processing longer than the
// configured StuckTaskAge. It returns the number of tasks found.
func (r *TaskRunner) ResetStuckTasks(ctx context.Context) int {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
		return 0
	}

	if len(stuck) > 0 {
		r.logger.Info("found stuck tasks", "count", len(stuck))
	}
	for _, rec := range stuck {
		r.requeue(ctx, rec, "Reset after being stuck in processing state")
	}
	return len(stuck)
}

// QueueLength returns the number of tasks waiting for a worker.
func (r *TaskRunner) QueueLength() int {
	return r.queue.Len()
}
