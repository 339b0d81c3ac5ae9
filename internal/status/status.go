// Package status holds the transient per-message generation status that
// polling clients read while an AI reply is being produced.
//
// An entry moves from Processing to exactly one terminal state (Completed or
// Error). Caches enforce that a terminal entry is never replaced.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/google/uuid"
)

// Status is the state recorded for a generation.
type Status string

const (
	Processing Status = "processing"
	Completed  Status = "completed"
	Error      Status = "error"
)

// DefaultTTL is how long an entry stays readable.
const DefaultTTL = 5 * time.Minute

// ProcessingMessage is shown while generation is running.
const ProcessingMessage = "Generating response..."

var (
	// ErrNotFound is returned when no entry exists or it expired.
	ErrNotFound = errors.New("status entry not found or expired")

	// ErrTerminal is returned when a write would replace a terminal entry.
	ErrTerminal = errors.New("status entry already terminal")
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == Completed || s == Error
}

// Entry is the status blob served to polling clients.
type Entry struct {
	Status         Status
	MessageID      *uuid.UUID
	Message        string
	Response       string
	Sources        []domain.Source
	ResponseTimeMs int
	Timestamp      time.Time
}

// NewProcessing returns the initial entry written when a query is accepted.
func NewProcessing(now time.Time) Entry {
	return Entry{Status: Processing, Message: ProcessingMessage, Timestamp: now.UTC()}
}

// NewCompleted returns the entry written after the AI reply was stored.
func NewCompleted(messageID uuid.UUID, response string, sources []domain.Source, responseTimeMs int, now time.Time) Entry {
	if sources == nil {
		sources = []domain.Source{}
	}
	return Entry{
		Status:         Completed,
		MessageID:      &messageID,
		Response:       response,
		Sources:        sources,
		ResponseTimeMs: responseTimeMs,
		Timestamp:      now.UTC(),
	}
}

// NewError returns the entry written when generation failed. messageID is the
// fallback reply when one was persisted.
func NewError(messageID *uuid.UUID, now time.Time) Entry {
	return Entry{
		Status:    Error,
		MessageID: messageID,
		Message:   domain.FallbackReply,
		Timestamp: now.UTC(),
	}
}

type processingJSON struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type completedJSON struct {
	Status         Status          `json:"status"`
	MessageID      *uuid.UUID      `json:"message_id"`
	Response       string          `json:"response"`
	Sources        []domain.Source `json:"sources"`
	ResponseTimeMs int             `json:"response_time_ms"`
	Timestamp      time.Time       `json:"timestamp"`
}

type errorJSON struct {
	Status    Status     `json:"status"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// MarshalJSON emits only the fields that belong to the entry's status.
func (e Entry) MarshalJSON() ([]byte, error) {
	switch e.Status {
	case Completed:
		sources := e.Sources
		if sources == nil {
			sources = []domain.Source{}
		}
		return json.Marshal(completedJSON{
			Status:         e.Status,
			MessageID:      e.MessageID,
			Response:       e.Response,
			Sources:        sources,
			ResponseTimeMs: e.ResponseTimeMs,
			Timestamp:      e.Timestamp,
		})
	case Error:
		return json.Marshal(errorJSON{
			Status:    e.Status,
			MessageID: e.MessageID,
			Message:   e.Message,
			Timestamp: e.Timestamp,
		})
	default:
		return json.Marshal(processingJSON{Status: e.Status, Message: e.Message, Timestamp: e.Timestamp})
	}
}

// UnmarshalJSON accepts any of the three shapes.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status         Status          `json:"status"`
		MessageID      *uuid.UUID      `json:"message_id"`
		Message        string          `json:"message"`
		Response       string          `json:"response"`
		Sources        []domain.Source `json:"sources"`
		ResponseTimeMs int             `json:"response_time_ms"`
		Timestamp      time.Time       `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry(raw)
	return nil
}

// Key returns the cache key for the status of the reply to messageID.
func Key(messageID uuid.UUID) string {
	return "ai_response_" + messageID.String()
}

// Cache stores entries with a TTL. Implementations must return ErrTerminal from
// Set when the stored entry is terminal, and ErrNotFound from Get on a miss.
type Cache interface {
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Get(ctx context.Context, key string) (Entry, error)
	Delete(ctx context.Context, key string) error
}
