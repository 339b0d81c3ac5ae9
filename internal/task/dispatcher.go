package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/colloquyhq/colloquy-api/internal/events"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
)

// Submitter accepts tasks for background execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// Dispatcher implements events.EventHandler. It builds a task for each event
// through the registry and submits it to the runner. The event ID is used as
// the task ID.
type Dispatcher struct {
	registry *Registry
	runner   Submitter
	logger   *slog.Logger
}

// NewDispatcher creates a new event handler that uses the given registry to
// create tasks, and submits them to the provided runner.
func NewDispatcher(registry *Registry, runner Submitter, l *slog.Logger) *Dispatcher {
	if l == nil {
		l = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		runner:   runner,
		logger:   l.With("component", "task_dispatcher"),
	}
}

// HandleEvent processes events by creating and submitting tasks.
func (d *Dispatcher) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	log := logger.FromContextOrDefault(ctx, d.logger).With(
		"event_id", event.ID,
		"event_type", event.Type)

	t, err := d.registry.Build(event.Type, event.ID, event.Payload)
	if err != nil {
		log.Error("failed to create task", "error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := d.runner.Submit(ctx, t); err != nil {
		log.Error("failed to submit task", "error", err, "task_id", t.ID())
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Debug("task created and submitted", "task_id", t.ID())
	return nil
}

// Ensure Dispatcher implements events.EventHandler
var _ events.EventHandler = (*Dispatcher)(nil)
