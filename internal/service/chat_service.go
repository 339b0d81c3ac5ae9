package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/colloquyhq/colloquy-api/internal/chat"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/events"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/redact"
	"github.com/colloquyhq/colloquy-api/internal/status"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/colloquyhq/colloquy-api/internal/task"
	"github.com/google/uuid"
)

// QueryInput is a chat query as submitted by a client.
type QueryInput struct {
	Query     string
	SessionID *uuid.UUID
	Context   json.RawMessage
	Audience  string
	Depth     string
	Tone      string
}

// QueryResult tells the client which message to poll for the reply.
type QueryResult struct {
	SessionID     uuid.UUID     `json:"session_id"`
	UserMessageID uuid.UUID     `json:"user_message_id"`
	TaskID        uuid.UUID     `json:"task_id"`
	Status        status.Status `json:"status"`
	Message       string        `json:"message"`
	MessageCount  int           `json:"message_count"`
}

// ChatDeps groups the collaborators of ChatService.
type ChatDeps struct {
	DB        *sql.DB
	Sessions  store.ChatSessionStore
	Messages  store.ChatMessageStore
	Knowledge store.KnowledgeStore
	Emitter   events.EventEmitter
	Tracker   *status.Tracker
	Analytics *AnalyticsService
	// HistoryLimit is how many earlier turns are passed to the responder.
	HistoryLimit int
	// SourceLimit is how many knowledge entries are passed to the responder.
	SourceLimit int
}

// ChatService accepts queries, serves transcripts and gives the AI reply task
// access to the conversation.
type ChatService struct {
	deps   ChatDeps
	logger *slog.Logger
}

var _ task.ConversationService = (*ChatService)(nil)

// NewChatService creates a ChatService.
func NewChatService(deps ChatDeps, logger *slog.Logger) *ChatService {
	return &ChatService{deps: deps, logger: logger.With("component", "chat_service")}
}

// Submit stores the user's message, marks its reply as processing and queues
// generation. An unknown session, or one owned by someone else, is replaced by
// a new session.
func (s *ChatService) Submit(ctx context.Context, in QueryInput, meta RequestMeta) (*QueryResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	opts, err := domain.ParseResponseOptions(in.Audience, in.Depth, in.Tone)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateQuery(in.Query); err != nil {
		return nil, err
	}

	session, isNew, err := s.resolveSession(ctx, in.SessionID, opts, meta)
	if err != nil {
		return nil, err
	}

	msg, err := domain.NewUserMessage(session.ID, in.Query, in.Context)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.deps.DB, func(ctx context.Context, tx *sql.Tx) error {
		sessions := s.deps.Sessions.WithTx(tx)
		if isNew {
			if err := sessions.Create(ctx, session); err != nil {
				return err
			}
		}
		if err := s.deps.Messages.WithTx(tx).Create(ctx, msg); err != nil {
			return err
		}
		return sessions.IncrementCounters(ctx, session.ID, 1, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store query: %w", err)
	}
	session.MessageCount++

	if err := s.deps.Tracker.MarkProcessing(ctx, msg.ID); err != nil {
		log.Warn("failed to write processing status", redact.ErrorAttr(err))
	}

	job := chat.Job{
		SessionID:     session.ID,
		UserMessageID: msg.ID,
		Query:         msg.Content,
		Context:       in.Context,
		Options:       opts,
	}
	taskID, err := events.Publish(ctx, s.deps.Emitter, task.TypeAIResponse, job, logger.TraceID(ctx))
	if err != nil {
		log.Error("failed to queue reply generation",
			slog.String("user_message_id", msg.ID.String()),
			redact.ErrorAttr(err))
		if ferr := s.deps.Tracker.Fail(ctx, msg.ID, nil); ferr != nil && !errors.Is(ferr, status.ErrTerminal) {
			log.Error("failed to write error status", redact.ErrorAttr(ferr))
		}
		return nil, fmt.Errorf("failed to queue reply generation: %w", err)
	}

	s.deps.Analytics.Track(ctx, domain.EventChatQuery, map[string]any{
		"session_id":   session.ID.String(),
		"query_length": len([]rune(msg.Content)),
		"audience":     string(opts.Audience),
		"depth":        string(opts.Depth),
		"tone":         string(opts.Tone),
	}, meta)

	return &QueryResult{
		SessionID:     session.ID,
		UserMessageID: msg.ID,
		TaskID:        taskID,
		Status:        status.Processing,
		Message:       status.ProcessingMessage,
		MessageCount:  session.MessageCount,
	}, nil
}

func (s *ChatService) resolveSession(
	ctx context.Context,
	id *uuid.UUID,
	opts domain.ResponseOptions,
	meta RequestMeta,
) (*domain.ChatSession, bool, error) {
	if id != nil {
		session, err := s.deps.Sessions.GetByID(ctx, *id)
		switch {
		case err == nil && session.OwnedBy(meta.UserID, meta.SessionKey):
			return session, false, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, false, err
		}
		logger.FromContextOrDefault(ctx, s.logger).Debug("requested session unavailable, starting a new one",
			slog.String("requested_session_id", id.String()))
	}

	var sessionKey string
	if meta.UserID == nil {
		sessionKey = meta.SessionKey
	}
	session, err := domain.NewChatSession(meta.UserID, sessionKey, opts.Audience, opts.Tone)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// ResponseStatus returns the status entry of the reply to messageID.
func (s *ChatService) ResponseStatus(ctx context.Context, messageID uuid.UUID) (status.Entry, error) {
	return s.deps.Tracker.Lookup(ctx, messageID)
}

// History returns the caller's sessions with their transcripts, newest first.
// Callers with neither a user nor a session key get an empty list.
func (s *ChatService) History(ctx context.Context, meta RequestMeta) ([]domain.SessionWithMessages, error) {
	var (
		sessions []domain.ChatSession
		err      error
	)
	switch {
	case meta.UserID != nil:
		sessions, err = s.deps.Sessions.ListByUser(ctx, *meta.UserID)
	case meta.SessionKey != "":
		sessions, err = s.deps.Sessions.ListBySessionKey(ctx, meta.SessionKey)
	default:
		return []domain.SessionWithMessages{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]domain.SessionWithMessages, 0, len(sessions))
	for _, session := range sessions {
		msgs, err := s.deps.Messages.ListBySession(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		out = append(out, domain.SessionWithMessages{ChatSession: session, Messages: msgs})
	}
	return out, nil
}

// GetSession returns one session owned by the caller.
func (s *ChatService) GetSession(ctx context.Context, id uuid.UUID, meta RequestMeta) (*domain.SessionWithMessages, error) {
	session, err := s.ownedSession(ctx, id, meta)
	if err != nil {
		return nil, err
	}
	msgs, err := s.deps.Messages.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return &domain.SessionWithMessages{ChatSession: *session, Messages: msgs}, nil
}

// ownedSession loads a session and reports store.ErrSessionNotFound when it
// belongs to someone else.
func (s *ChatService) ownedSession(ctx context.Context, id uuid.UUID, meta RequestMeta) (*domain.ChatSession, error) {
	session, err := s.deps.Sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.OwnedBy(meta.UserID, meta.SessionKey) {
		return nil, fmt.Errorf("%w: %w", store.ErrSessionNotFound, ErrNotOwned)
	}
	return session, nil
}

// BuildRequest implements task.ConversationService. Knowledge base lookup
// failures leave the request without sources.
func (s *ChatService) BuildRequest(ctx context.Context, job chat.Job) (chat.Request, error) {
	req := chat.Request{Query: job.Query, Options: job.Options, Context: job.Context}

	if s.deps.HistoryLimit > 0 {
		history, err := s.deps.Messages.ListRecent(ctx, job.SessionID, job.UserMessageID, s.deps.HistoryLimit)
		if err != nil {
			return chat.Request{}, fmt.Errorf("failed to load history: %w", err)
		}
		req.History = history
	}

	if s.deps.SourceLimit > 0 && s.deps.Knowledge != nil {
		entries, err := s.deps.Knowledge.Search(ctx, job.Query, s.deps.SourceLimit)
		if err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Warn("knowledge base search failed", redact.ErrorAttr(err))
		} else {
			req.Knowledge = entries
		}
	}
	return req, nil
}

// FindReply implements task.ConversationService.
func (s *ChatService) FindReply(ctx context.Context, userMessageID uuid.UUID) (*domain.ChatMessage, error) {
	return s.deps.Messages.GetReplyTo(ctx, userMessageID)
}

// RecordReply implements task.ConversationService. Counters are bumped in the
// same transaction as the insert, and only when the insert happened.
func (s *ChatService) RecordReply(ctx context.Context, reply *domain.ChatMessage) (*domain.ChatMessage, bool, error) {
	if reply.ReplyToID == nil {
		return nil, false, errors.New("reply must reference a user message")
	}

	var inserted bool
	err := store.RunInTransaction(ctx, s.deps.DB, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		inserted, err = s.deps.Messages.WithTx(tx).CreateReply(ctx, reply)
		if err != nil || !inserted {
			return err
		}
		return s.deps.Sessions.WithTx(tx).IncrementCounters(ctx, reply.SessionID, 1, reply.TokensUsed)
	})
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return reply, true, nil
	}

	existing, err := s.deps.Messages.GetReplyTo(ctx, *reply.ReplyToID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing reply: %w", err)
	}
	return existing, false, nil
}
