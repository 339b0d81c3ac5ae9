package store

import (
	"context"
	"database/sql"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/google/uuid"
)

// ChatSessionStore persists chat sessions and their aggregate counters.
type ChatSessionStore interface {
	Create(ctx context.Context, session *domain.ChatSession) error

	// GetByID returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error)

	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ChatSession, error)

	// ListBySessionKey returns anonymous sessions for a browser key, newest first.
	ListBySessionKey(ctx context.Context, sessionKey string) ([]domain.ChatSession, error)

	// IncrementCounters atomically adds to message_count and total_tokens_used.
	IncrementCounters(ctx context.Context, id uuid.UUID, messages, tokens int) error

	// RefreshAverageRating recomputes average_rating from rated messages.
	RefreshAverageRating(ctx context.Context, id uuid.UUID) error

	WithTx(tx *sql.Tx) ChatSessionStore
}

// ChatMessageStore persists chat messages.
type ChatMessageStore interface {
	// Create inserts a user message.
	Create(ctx context.Context, msg *domain.ChatMessage) error

	// CreateReply inserts an AI reply keyed by msg.ReplyToID. It reports false
	// without error when a reply to the same user message already exists.
	CreateReply(ctx context.Context, msg *domain.ChatMessage) (bool, error)

	// GetByID returns ErrMessageNotFound if the message does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatMessage, error)

	// GetReplyTo returns the AI reply answering userMessageID, or ErrMessageNotFound.
	GetReplyTo(ctx context.Context, userMessageID uuid.UUID) (*domain.ChatMessage, error)

	// ListBySession returns the transcript in chronological order.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ChatMessage, error)

	// ListRecent returns up to limit messages created before the given message,
	// in chronological order.
	ListRecent(ctx context.Context, sessionID, before uuid.UUID, limit int) ([]domain.ChatMessage, error)

	// UpdateFeedback sets the rating and comment of a message.
	UpdateFeedback(ctx context.Context, id uuid.UUID, rating int, comment string) error

	WithTx(tx *sql.Tx) ChatMessageStore
}

// ChatFeedbackStore persists session feedback.
type ChatFeedbackStore interface {
	Create(ctx context.Context, feedback *domain.ChatFeedback) error
	WithTx(tx *sql.Tx) ChatFeedbackStore
}

// KnowledgeStore serves knowledge base entries used as answer sources.
type KnowledgeStore interface {
	Create(ctx context.Context, entry *domain.KnowledgeEntry) error

	// Search returns up to limit active entries ranked by relevance to query.
	Search(ctx context.Context, query string, limit int) ([]domain.KnowledgeEntry, error)
}
