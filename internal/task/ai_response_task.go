package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/chat"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/redact"
	"github.com/colloquyhq/colloquy-api/internal/status"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/google/uuid"
)

// fallbackWriteTimeout bounds the writes made after a failed generation, which
// run even when the task context has already expired.
const fallbackWriteTimeout = 10 * time.Second

// Common errors
var (
	ErrNilConversation = errors.New("conversation service cannot be nil")
	ErrNilResponder    = errors.New("responder cannot be nil")
	ErrNilTracker      = errors.New("status tracker cannot be nil")
)

// ConversationService is the data access the AI reply task needs.
type ConversationService interface {
	// BuildRequest loads the history and knowledge sources for a job.
	BuildRequest(ctx context.Context, job chat.Job) (chat.Request, error)

	// FindReply returns the stored reply to userMessageID or store.ErrMessageNotFound.
	FindReply(ctx context.Context, userMessageID uuid.UUID) (*domain.ChatMessage, error)

	// RecordReply stores reply and bumps the session counters in one
	// transaction. When a reply to the same user message already exists the
	// existing row is returned with inserted=false and counters are untouched.
	RecordReply(ctx context.Context, reply *domain.ChatMessage) (stored *domain.ChatMessage, inserted bool, err error)
}

// AIResponseTask generates the AI reply to one user message, persists it and
// publishes the outcome to the status tracker.
type AIResponseTask struct {
	baseTask
	job          chat.Job
	conversation ConversationService
	responder    chat.Responder
	tracker      *status.Tracker
	now          func() time.Time
}

// AIResponseDeps groups the collaborators of AIResponseTask.
type AIResponseDeps struct {
	Conversation ConversationService
	Responder    chat.Responder
	Tracker      *status.Tracker
}

func (d AIResponseDeps) validate() error {
	switch {
	case d.Conversation == nil:
		return ErrNilConversation
	case d.Responder == nil:
		return ErrNilResponder
	case d.Tracker == nil:
		return ErrNilTracker
	}
	return nil
}

// NewAIResponseTask creates a task answering job. A nil id generates a new one.
func NewAIResponseTask(id uuid.UUID, job chat.Job, deps AIResponseDeps) (*AIResponseTask, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	return &AIResponseTask{
		baseTask:     newBaseTask(id),
		job:          job,
		conversation: deps.Conversation,
		responder:    deps.Responder,
		tracker:      deps.Tracker,
		now:          time.Now,
	}, nil
}

// AIResponseFactory returns a registry factory for AI reply tasks.
func AIResponseFactory(deps AIResponseDeps) Factory {
	return func(id uuid.UUID, payload []byte) (Task, error) {
		job, err := chat.DecodeJob(payload)
		if err != nil {
			return nil, err
		}
		return NewAIResponseTask(id, job, deps)
	}
}

// Type returns the task type identifier
func (t *AIResponseTask) Type() string {
	return TypeAIResponse
}

// Payload returns the serialized job.
func (t *AIResponseTask) Payload() []byte {
	data, err := json.Marshal(t.job)
	if err != nil {
		return []byte{}
	}
	return data
}

// Job returns the job this task answers.
func (t *AIResponseTask) Job() chat.Job {
	return t.job
}

// Execute generates and stores the reply. A failed generation stores the
// fallback reply instead and still returns the generation error.
func (t *AIResponseTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)
	log := logger.FromContext(ctx).With(
		slog.String("session_id", t.job.SessionID.String()),
		slog.String("user_message_id", t.job.UserMessageID.String()))
	ctx = logger.WithLogger(ctx, log)

	if err := t.tracker.MarkProcessing(ctx, t.job.UserMessageID); err != nil {
		log.Warn("failed to write processing status", redact.ErrorAttr(err))
	}

	// A recovered task may find its reply already stored.
	existing, err := t.conversation.FindReply(ctx, t.job.UserMessageID)
	switch {
	case err == nil && existing.Content == domain.FallbackReply:
		log.Info("fallback reply already stored, publishing the error status", slog.String("reply_id", existing.ID.String()))
		id := existing.ID
		if err := t.tracker.Fail(ctx, t.job.UserMessageID, &id); err != nil && !errors.Is(err, status.ErrTerminal) {
			log.Error("failed to write error status", redact.ErrorAttr(err))
		}
		t.setStatus(TaskStatusCompleted)
		return nil
	case err == nil:
		log.Info("reply already stored, publishing it", slog.String("reply_id", existing.ID.String()))
		t.publish(ctx, existing, time.Duration(existing.ResponseTimeMs)*time.Millisecond)
		t.setStatus(TaskStatusCompleted)
		return nil
	case !errors.Is(err, store.ErrNotFound):
		log.Warn("failed to check for an existing reply", redact.ErrorAttr(err))
	}

	started := t.now()
	reply, genErr := t.generate(ctx)
	elapsed := t.now().Sub(started)

	if genErr == nil {
		reply.ResponseTimeMs = int(elapsed.Milliseconds())
		stored, inserted, err := t.conversation.RecordReply(ctx, reply)
		if err == nil {
			if !inserted {
				log.Info("reply recorded by an earlier run", slog.String("reply_id", stored.ID.String()))
			}
			t.publish(ctx, stored, elapsed)
			t.setStatus(TaskStatusCompleted)
			log.Info("ai reply generated",
				slog.Int("tokens_used", stored.TokensUsed),
				slog.Int64("response_time_ms", elapsed.Milliseconds()))
			return nil
		}
		genErr = fmt.Errorf("failed to record reply: %w", err)
	}

	t.fail(ctx, genErr, elapsed)
	t.setStatus(TaskStatusFailed)
	return genErr
}

// generate asks the responder for a reply and builds the message to store.
func (t *AIResponseTask) generate(ctx context.Context) (*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("task cancelled by context: %w", err)
	}

	req, err := t.conversation.BuildRequest(ctx, t.job)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := t.responder.Respond(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", chat.ErrInvalidResponse)
	}

	reply, err := domain.NewAIReply(t.job.SessionID, t.job.UserMessageID, resp.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chat.ErrInvalidResponse, err)
	}
	reply.TokensUsed = resp.TokensUsed
	reply.ModelUsed = resp.Model
	reply.ContextData = t.job.Context
	if resp.Sources != nil {
		reply.Sources = resp.Sources
	}
	return reply, nil
}

// publish writes the completed status for a stored reply.
func (t *AIResponseTask) publish(ctx context.Context, reply *domain.ChatMessage, elapsed time.Duration) {
	err := t.tracker.Complete(ctx, t.job.UserMessageID, reply.ID, reply.Content, reply.Sources, elapsed)
	if err != nil && !errors.Is(err, status.ErrTerminal) {
		logger.FromContext(ctx).Error("failed to write completed status", redact.ErrorAttr(err))
	}
}

// fail stores the fallback reply and writes the single terminal error status.
func (t *AIResponseTask) fail(ctx context.Context, cause error, elapsed time.Duration) {
	log := logger.FromContext(ctx)
	log.Error("ai reply generation failed", redact.ErrorAttr(cause))

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackWriteTimeout)
	defer cancel()

	var replyID *uuid.UUID
	fallback, err := domain.NewAIReply(t.job.SessionID, t.job.UserMessageID, domain.FallbackReply)
	if err == nil {
		fallback.ResponseTimeMs = int(elapsed.Milliseconds())
		fallback.ContextData = t.job.Context
		var stored *domain.ChatMessage
		stored, _, err = t.conversation.RecordReply(writeCtx, fallback)
		if err == nil {
			if stored.Content != domain.FallbackReply {
				// A real reply won the race; report it instead of the failure.
				t.publish(writeCtx, stored, elapsed)
				return
			}
			id := stored.ID
			replyID = &id
		}
	}
	if err != nil {
		log.Error("failed to store fallback reply", redact.ErrorAttr(err))
	}

	if err := t.tracker.Fail(writeCtx, t.job.UserMessageID, replyID); err != nil && !errors.Is(err, status.ErrTerminal) {
		log.Error("failed to write error status", redact.ErrorAttr(err))
	}
}
