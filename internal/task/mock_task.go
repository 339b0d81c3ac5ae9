package task

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// MockTask is a simple implementation of the Task interface for testing
type MockTask struct {
	TaskID      uuid.UUID
	TaskType    string
	TaskPayload []byte
	TaskStatus  TaskStatus
	ExecuteFn   func(ctx context.Context) error

	calls atomic.Int32
}

// NewMockTask creates a new MockTask with the given ID and type
func NewMockTask(id uuid.UUID, taskType string, payload []byte) *MockTask {
	return &MockTask{
		TaskID:      id,
		TaskType:    taskType,
		TaskPayload: payload,
		TaskStatus:  TaskStatusPending,
		ExecuteFn:   func(ctx context.Context) error { return nil },
	}
}

// ID returns the task's unique identifier
func (t *MockTask) ID() uuid.UUID { return t.TaskID }

// Type returns the task type identifier
func (t *MockTask) Type() string { return t.TaskType }

// Payload returns the task data as a byte slice
func (t *MockTask) Payload() []byte { return t.TaskPayload }

// Status returns the current task status
func (t *MockTask) Status() TaskStatus { return t.TaskStatus }

// Execute runs the task logic
func (t *MockTask) Execute(ctx context.Context) error {
	t.calls.Add(1)
	return t.ExecuteFn(ctx)
}

// Calls reports how many times Execute ran.
func (t *MockTask) Calls() int {
	return int(t.calls.Load())
}

// MockFactory registers a factory that returns the given task for any payload.
func MockFactory(t *MockTask) Factory {
	return func(id uuid.UUID, payload []byte) (Task, error) {
		if id != uuid.Nil {
			t.TaskID = id
		}
		t.TaskPayload = payload
		return t, nil
	}
}
