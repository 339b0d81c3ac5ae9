package task

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerPool runs a fixed number of goroutines that drain a task channel and
// pass each task to a handler.
type WorkerPool struct {
	tasks       <-chan Task
	workerCount int
	wg          sync.WaitGroup
	logger      *slog.Logger
}

// NewWorkerPool creates a new worker pool reading from tasks.
func NewWorkerPool(tasks <-chan Task, workerCount int, logger *slog.Logger) *WorkerPool {
	if workerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}

	return &WorkerPool{
		tasks:       tasks,
		workerCount: workerCount,
		logger:      logger,
	}
}

// Start launches the workers. They exit when ctx is cancelled or the task
// channel is closed.
func (p *WorkerPool) Start(ctx context.Context, handle func(ctx context.Context, t Task, workerID int)) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.work(ctx, i, handle)
	}
}

// Wait blocks until all workers have exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) work(ctx context.Context, id int, handle func(ctx context.Context, t Task, workerID int)) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case t, ok := <-p.tasks:
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			handle(ctx, t, id)
		}
	}
}
