package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskRequestEvent represents a request to create a background task.
type TaskRequestEvent struct {
	// ID identifies the event and becomes the ID of the resulting task.
	ID uuid.UUID `json:"id"`

	// Type indicates the task type that should be created
	Type string `json:"type"`

	// Payload contains the task-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// TraceID correlates the task's logs with the request that caused it.
	TraceID string `json:"trace_id,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskRequestEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent creates a new TaskRequestEvent with the specified type and payload.
func NewTaskRequestEvent(eventType string, payload interface{}) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}

// Publish builds an event for payload, stamps it with traceID and emits it.
// It returns the event ID, which is also the ID of the task it produces.
func Publish(
	ctx context.Context,
	emitter EventEmitter,
	eventType string,
	payload interface{},
	traceID string,
) (uuid.UUID, error) {
	event, err := NewTaskRequestEvent(eventType, payload)
	if err != nil {
		return uuid.Nil, err
	}
	event.TraceID = traceID

	if err := emitter.EmitEvent(ctx, event); err != nil {
		return uuid.Nil, err
	}
	return event.ID, nil
}
