package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/google/uuid"
)

// Job is the payload of an AI reply task.
type Job struct {
	SessionID     uuid.UUID              `json:"session_id"`
	UserMessageID uuid.UUID              `json:"user_message_id"`
	Query         string                 `json:"query"`
	Context       json.RawMessage        `json:"context,omitempty"`
	Options       domain.ResponseOptions `json:"options"`
}

// Validate checks that the job identifies a message to answer.
func (j Job) Validate() error {
	if j.SessionID == uuid.Nil {
		return errors.New("job session ID cannot be empty")
	}
	if j.UserMessageID == uuid.Nil {
		return errors.New("job user message ID cannot be empty")
	}
	return nil
}

// DecodeJob parses a task payload into a Job.
func DecodeJob(payload []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(payload, &j); err != nil {
		return Job{}, fmt.Errorf("failed to decode job: %w", err)
	}
	if err := j.Validate(); err != nil {
		return Job{}, err
	}
	return j, nil
}

// Request is everything a Responder needs to answer one query.
type Request struct {
	Query   string
	Options domain.ResponseOptions
	// Context is caller supplied JSON describing where the question was asked.
	Context json.RawMessage
	// History holds earlier turns of the session in chronological order.
	History []domain.ChatMessage
	// Knowledge holds knowledge base entries relevant to the query.
	Knowledge []domain.KnowledgeEntry
}

// Response is a generated reply.
type Response struct {
	Text       string
	TokensUsed int
	Model      string
	Sources    []domain.Source
}

// Responder produces an AI reply for a request.
type Responder interface {
	Respond(ctx context.Context, req Request) (*Response, error)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, req Request) (*Response, error)

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
