package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// payloadTask is a task whose whole state is a JSON payload handed to run.
type payloadTask[P any] struct {
	baseTask
	taskType string
	payload  P
	run      func(ctx context.Context, p P) error
}

func newPayloadTask[P any](id uuid.UUID, taskType string, p P, run func(context.Context, P) error) *payloadTask[P] {
	return &payloadTask[P]{
		baseTask: newBaseTask(id),
		taskType: taskType,
		payload:  p,
		run:      run,
	}
}

// Type returns the task type identifier
func (t *payloadTask[P]) Type() string {
	return t.taskType
}

// Payload returns the task data as a byte slice
func (t *payloadTask[P]) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		return []byte{}
	}
	return data
}

// Execute runs the task logic
func (t *payloadTask[P]) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)
	if err := t.run(ctx, t.payload); err != nil {
		t.setStatus(TaskStatusFailed)
		return err
	}
	t.setStatus(TaskStatusCompleted)
	return nil
}

// payloadFactory decodes P from the stored payload, validates it and builds the task.
func payloadFactory[P any](
	taskType string,
	validate func(P) error,
	run func(context.Context, P) error,
) Factory {
	return func(id uuid.UUID, raw []byte) (Task, error) {
		var p P
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", taskType, err)
		}
		if validate != nil {
			if err := validate(p); err != nil {
				return nil, err
			}
		}
		return newPayloadTask(id, taskType, p, run), nil
	}
}
