package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	mu sync.Mutex
	// The last event received by this handler
	LastEvent *TaskRequestEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestNewTaskRequestEvent(t *testing.T) {
	type testPayload struct {
		MessageID uuid.UUID `json:"message_id"`
		Query     string    `json:"query"`
	}

	payload := testPayload{MessageID: uuid.New(), Query: "what is a goroutine?"}

	event, err := NewTaskRequestEvent("ai_response_generation", payload)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "ai_response_generation", event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded testPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "trace_id", "empty trace ids are omitted")
}

func TestNewTaskRequestEventBadPayload(t *testing.T) {
	_, err := NewTaskRequestEvent("broken", map[string]any{"ch": make(chan int)})
	assert.ErrorContains(t, err, "broken")
}

func TestPublish(t *testing.T) {
	emitter := NewInMemoryEventEmitter(nil)
	handler := &MockEventHandler{}
	emitter.RegisterHandler(handler)

	id, err := Publish(context.Background(), emitter, "analytics_event", map[string]string{"event_type": "page_view"}, "trace-1")
	require.NoError(t, err)

	require.NotNil(t, handler.LastEvent)
	assert.Equal(t, id, handler.LastEvent.ID)
	assert.Equal(t, "trace-1", handler.LastEvent.TraceID)

	handler.HandlerError = errors.New("queue full")
	id, err = Publish(context.Background(), emitter, "analytics_event", nil, "")
	assert.Error(t, err)
	assert.Equal(t, uuid.Nil, id)
}
