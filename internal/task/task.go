package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	TypeAIResponse          = "ai_response_generation"
	TypeAnalyticsEvent      = "analytics_event"
	TypeVerificationEmail   = "send_verification_email"
	TypePasswordResetEmail  = "send_password_reset_email"
	TypeWelcomeNotification = "welcome_notification"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice. It must contain
	// everything needed to rebuild the task after a restart.
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// Record is a persisted task row.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a task in pending state.
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]Record, error)

	// GetProcessingTasks retrieves tasks with "processing" status
	// If olderThan is non-zero, only returns tasks that have been in this state
	// longer than the specified duration
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error)

	// DeleteFinishedBefore removes completed and failed tasks last updated
	// before the cutoff and reports how many were removed.
	DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// baseTask carries the identity and status shared by all concrete tasks.
type baseTask struct {
	id     uuid.UUID
	status TaskStatus
}

func newBaseTask(id uuid.UUID) baseTask {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return baseTask{id: id, status: TaskStatusPending}
}

// ID returns the task's unique identifier
func (b *baseTask) ID() uuid.UUID {
	return b.id
}

// Status returns the current task status
func (b *baseTask) Status() TaskStatus {
	return b.status
}

func (b *baseTask) setStatus(s TaskStatus) {
	b.status = s
}
