package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/google/uuid"
)

const sessionColumns = `id, user_id, session_key, audience_tag, persona_tone,
	message_count, total_tokens_used, average_rating, created_at, updated_at`

// PostgresChatSessionStore implements store.ChatSessionStore.
type PostgresChatSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresChatSessionStore creates a PostgresChatSessionStore.
func NewPostgresChatSessionStore(db store.DBTX, logger *slog.Logger) *PostgresChatSessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresChatSessionStore{db: db, logger: logger.With(slog.String("component", "chat_session_store"))}
}

var _ store.ChatSessionStore = (*PostgresChatSessionStore)(nil)

// WithTx implements store.ChatSessionStore.WithTx
func (s *PostgresChatSessionStore) WithTx(tx *sql.Tx) store.ChatSessionStore {
	return &PostgresChatSessionStore{db: tx, logger: s.logger}
}

// Create implements store.ChatSessionStore.Create
func (s *PostgresChatSessionStore) Create(ctx context.Context, session *domain.ChatSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("chat session validation failed", slog.String("error", err.Error()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		session.ID,
		session.UserID,
		session.SessionKey,
		session.AudienceTag,
		session.PersonaTone,
		session.MessageCount,
		session.TotalTokensUsed,
		session.AverageRating,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create chat session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	log.Debug("chat session created", slog.String("session_id", session.ID.String()))
	return nil
}

// GetByID implements store.ChatSessionStore.GetByID
func (s *PostgresChatSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get chat session",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, MapError(err)
	}
	return session, nil
}

// ListByUser implements store.ChatSessionStore.ListByUser
func (s *PostgresChatSessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ChatSession, error) {
	return s.list(ctx, `SELECT `+sessionColumns+` FROM chat_sessions
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListBySessionKey implements store.ChatSessionStore.ListBySessionKey
func (s *PostgresChatSessionStore) ListBySessionKey(ctx context.Context, sessionKey string) ([]domain.ChatSession, error) {
	if sessionKey == "" {
		return []domain.ChatSession{}, nil
	}
	return s.list(ctx, `SELECT `+sessionColumns+` FROM chat_sessions
		WHERE user_id IS NULL AND session_key = $1 ORDER BY created_at DESC`, sessionKey)
}

func (s *PostgresChatSessionStore) list(ctx context.Context, query string, arg interface{}) ([]domain.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list chat sessions",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	sessions := []domain.ChatSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat sessions: %w", err)
	}
	return sessions, nil
}

// IncrementCounters implements store.ChatSessionStore.IncrementCounters
func (s *PostgresChatSessionStore) IncrementCounters(ctx context.Context, id uuid.UUID, messages, tokens int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions
		SET message_count = message_count + $1,
			total_tokens_used = total_tokens_used + $2,
			updated_at = $3
		WHERE id = $4
	`, messages, tokens, time.Now().UTC(), id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrSessionNotFound); err != nil {
		return err
	}
	return nil
}

// RefreshAverageRating implements store.ChatSessionStore.RefreshAverageRating
func (s *PostgresChatSessionStore) RefreshAverageRating(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions
		SET average_rating = (
				SELECT AVG(rating)::float8 FROM chat_messages
				WHERE session_id = $1 AND rating IS NOT NULL
			),
			updated_at = $2
		WHERE id = $1
	`, id, time.Now().UTC())
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrSessionNotFound); err != nil {
		return err
	}
	return nil
}

func scanSession(row rowScanner) (*domain.ChatSession, error) {
	var cs domain.ChatSession
	var userID uuid.NullUUID
	var avg sql.NullFloat64
	err := row.Scan(
		&cs.ID,
		&userID,
		&cs.SessionKey,
		&cs.AudienceTag,
		&cs.PersonaTone,
		&cs.MessageCount,
		&cs.TotalTokensUsed,
		&avg,
		&cs.CreatedAt,
		&cs.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.UUID
		cs.UserID = &id
	}
	if avg.Valid {
		v := avg.Float64
		cs.AverageRating = &v
	}
	return &cs, nil
}

const messageColumns = `id, session_id, content, is_from_user, reply_to_id,
	response_time_ms, tokens_used, model_used, context_data, sources, rating,
	feedback_comment, created_at`

// PostgresChatMessageStore implements store.ChatMessageStore.
type PostgresChatMessageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresChatMessageStore creates a PostgresChatMessageStore.
func NewPostgresChatMessageStore(db store.DBTX, logger *slog.Logger) *PostgresChatMessageStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresChatMessageStore{db: db, logger: logger.With(slog.String("component", "chat_message_store"))}
}

var _ store.ChatMessageStore = (*PostgresChatMessageStore)(nil)

// WithTx implements store.ChatMessageStore.WithTx
func (s *PostgresChatMessageStore) WithTx(tx *sql.Tx) store.ChatMessageStore {
	return &PostgresChatMessageStore{db: tx, logger: s.logger}
}

func messageArgs(msg *domain.ChatMessage) ([]interface{}, error) {
	sources := msg.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sources: %w", err)
	}
	var contextData interface{}
	if len(msg.ContextData) > 0 {
		contextData = []byte(msg.ContextData)
	}
	return []interface{}{
		msg.ID,
		msg.SessionID,
		msg.Content,
		msg.IsFromUser,
		msg.ReplyToID,
		msg.ResponseTimeMs,
		msg.TokensUsed,
		msg.ModelUsed,
		contextData,
		sourcesJSON,
		msg.Rating,
		msg.FeedbackComment,
		msg.CreatedAt,
	}, nil
}

const insertMessage = `
	INSERT INTO chat_messages (` + messageColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// Create implements store.ChatMessageStore.Create
func (s *PostgresChatMessageStore) Create(ctx context.Context, msg *domain.ChatMessage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	args, err := messageArgs(msg)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, insertMessage, args...); err != nil {
		log.Error("failed to create chat message",
			slog.String("error", err.Error()),
			slog.String("session_id", msg.SessionID.String()))
		return MapError(err)
	}
	return nil
}

// CreateReply implements store.ChatMessageStore.CreateReply
func (s *PostgresChatMessageStore) CreateReply(ctx context.Context, msg *domain.ChatMessage) (bool, error) {
	if msg.ReplyToID == nil {
		return false, fmt.Errorf("%w: reply has no reply_to_id", store.ErrInvalidEntity)
	}
	args, err := messageArgs(msg)
	if err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, insertMessage+` ON CONFLICT (reply_to_id) DO NOTHING`, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create chat reply",
			slog.String("error", err.Error()),
			slog.String("reply_to_id", msg.ReplyToID.String()))
		return false, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// GetByID implements store.ChatMessageStore.GetByID
func (s *PostgresChatMessageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatMessage, error) {
	return s.getOne(ctx, `SELECT `+messageColumns+` FROM chat_messages WHERE id = $1`, id)
}

// GetReplyTo implements store.ChatMessageStore.GetReplyTo
func (s *PostgresChatMessageStore) GetReplyTo(ctx context.Context, userMessageID uuid.UUID) (*domain.ChatMessage, error) {
	return s.getOne(ctx, `SELECT `+messageColumns+` FROM chat_messages WHERE reply_to_id = $1`, userMessageID)
}

func (s *PostgresChatMessageStore) getOne(ctx context.Context, query string, id uuid.UUID) (*domain.ChatMessage, error) {
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMessageNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get chat message",
			slog.String("error", err.Error()),
			slog.String("id", id.String()))
		return nil, MapError(err)
	}
	return msg, nil
}

// ListBySession implements store.ChatMessageStore.ListBySession
func (s *PostgresChatMessageStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ChatMessage, error) {
	return s.list(ctx, `SELECT `+messageColumns+` FROM chat_messages
		WHERE session_id = $1 ORDER BY created_at ASC, is_from_user DESC`, sessionID)
}

// ListRecent implements store.ChatMessageStore.ListRecent
func (s *PostgresChatMessageStore) ListRecent(ctx context.Context, sessionID, before uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return []domain.ChatMessage{}, nil
	}
	return s.list(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM chat_messages
			WHERE session_id = $1
			  AND id <> $2
			  AND created_at <= (SELECT created_at FROM chat_messages WHERE id = $2)
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC`, sessionID, before, limit)
}

func (s *PostgresChatMessageStore) list(ctx context.Context, query string, args ...interface{}) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list chat messages",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}
	return messages, nil
}

// UpdateFeedback implements store.ChatMessageStore.UpdateFeedback
func (s *PostgresChatMessageStore) UpdateFeedback(ctx context.Context, id uuid.UUID, rating int, comment string) error {
	if err := domain.ValidateRating("rating", rating); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_messages SET rating = $1, feedback_comment = $2 WHERE id = $3`,
		rating, comment, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrMessageNotFound); err != nil {
		return err
	}
	return nil
}

func scanMessage(row rowScanner) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	var replyTo uuid.NullUUID
	var contextData, sources []byte
	var rating sql.NullInt32
	err := row.Scan(
		&m.ID,
		&m.SessionID,
		&m.Content,
		&m.IsFromUser,
		&replyTo,
		&m.ResponseTimeMs,
		&m.TokensUsed,
		&m.ModelUsed,
		&contextData,
		&sources,
		&rating,
		&m.FeedbackComment,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if replyTo.Valid {
		id := replyTo.UUID
		m.ReplyToID = &id
	}
	if len(contextData) > 0 {
		m.ContextData = json.RawMessage(contextData)
	}
	m.Sources = []domain.Source{}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &m.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
	}
	if rating.Valid {
		r := int(rating.Int32)
		m.Rating = &r
	}
	return &m, nil
}

// PostgresChatFeedbackStore implements store.ChatFeedbackStore.
type PostgresChatFeedbackStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresChatFeedbackStore creates a PostgresChatFeedbackStore.
func NewPostgresChatFeedbackStore(db store.DBTX, logger *slog.Logger) *PostgresChatFeedbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresChatFeedbackStore{db: db, logger: logger.With(slog.String("component", "chat_feedback_store"))}
}

var _ store.ChatFeedbackStore = (*PostgresChatFeedbackStore)(nil)

// WithTx implements store.ChatFeedbackStore.WithTx
func (s *PostgresChatFeedbackStore) WithTx(tx *sql.Tx) store.ChatFeedbackStore {
	return &PostgresChatFeedbackStore{db: tx, logger: s.logger}
}

// Create implements store.ChatFeedbackStore.Create
func (s *PostgresChatFeedbackStore) Create(ctx context.Context, f *domain.ChatFeedback) error {
	if err := f.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_feedback (id, session_id, user_id, overall_rating, helpfulness,
			accuracy, would_recommend, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, f.ID, f.SessionID, f.UserID, f.OverallRating, f.Helpfulness, f.Accuracy,
		f.WouldRecommend, f.Comment, f.CreatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create chat feedback",
			slog.String("error", err.Error()),
			slog.String("session_id", f.SessionID.String()))
		return MapError(err)
	}
	return nil
}

// PostgresKnowledgeStore implements store.KnowledgeStore with full text search.
type PostgresKnowledgeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresKnowledgeStore creates a PostgresKnowledgeStore.
func NewPostgresKnowledgeStore(db store.DBTX, logger *slog.Logger) *PostgresKnowledgeStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresKnowledgeStore{db: db, logger: logger.With(slog.String("component", "knowledge_store"))}
}

var _ store.KnowledgeStore = (*PostgresKnowledgeStore)(nil)

// Create implements store.KnowledgeStore.Create
func (s *PostgresKnowledgeStore) Create(ctx context.Context, e *domain.KnowledgeEntry) error {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO knowledge_entries (id, title, content, url, tags, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.Title, e.Content, e.URL, tagsJSON, e.IsActive, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// Search implements store.KnowledgeStore.Search
func (s *PostgresKnowledgeStore) Search(ctx context.Context, query string, limit int) ([]domain.KnowledgeEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []domain.KnowledgeEntry{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, url, tags, is_active, created_at, updated_at
		FROM knowledge_entries
		WHERE is_active AND search_vector @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(search_vector, plainto_tsquery('english', $1)) DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to search knowledge base",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	entries := []domain.KnowledgeEntry{}
	for rows.Next() {
		var e domain.KnowledgeEntry
		var tags []byte
		if err := rows.Scan(&e.ID, &e.Title, &e.Content, &e.URL, &tags, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}
		e.Tags = []string{}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &e.Tags); err != nil {
				return nil, fmt.Errorf("failed to decode tags: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge entries: %w", err)
	}
	return entries, nil
}
