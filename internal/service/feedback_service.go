package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/google/uuid"
)

// MessageFeedbackInput rates one message.
type MessageFeedbackInput struct {
	MessageID uuid.UUID
	Rating    int
	Comment   string
}

// SessionFeedbackInput rates a whole session.
type SessionFeedbackInput struct {
	SessionID      uuid.UUID
	OverallRating  int
	Helpfulness    *int
	Accuracy       *int
	WouldRecommend *bool
	Comment        string
}

// FeedbackService records message and session feedback.
type FeedbackService struct {
	db        *sql.DB
	sessions  store.ChatSessionStore
	messages  store.ChatMessageStore
	feedback  store.ChatFeedbackStore
	analytics *AnalyticsService
	logger    *slog.Logger
}

// NewFeedbackService creates a FeedbackService.
func NewFeedbackService(
	db *sql.DB,
	sessions store.ChatSessionStore,
	messages store.ChatMessageStore,
	feedback store.ChatFeedbackStore,
	analytics *AnalyticsService,
	logger *slog.Logger,
) *FeedbackService {
	return &FeedbackService{
		db:        db,
		sessions:  sessions,
		messages:  messages,
		feedback:  feedback,
		analytics: analytics,
		logger:    logger.With("component", "feedback_service"),
	}
}

// RateMessage stores a rating on a message of one of the caller's sessions and
// refreshes the session's average rating.
func (s *FeedbackService) RateMessage(ctx context.Context, in MessageFeedbackInput, meta RequestMeta) error {
	if err := domain.ValidateRating("rating", in.Rating); err != nil {
		return err
	}
	if err := domain.ValidateFeedbackComment(in.Comment); err != nil {
		return err
	}

	msg, err := s.messages.GetByID(ctx, in.MessageID)
	if err != nil {
		return err
	}
	session, err := s.sessions.GetByID(ctx, msg.SessionID)
	if err != nil {
		return err
	}
	if !session.OwnedBy(meta.UserID, meta.SessionKey) {
		return fmt.Errorf("%w: %w", store.ErrMessageNotFound, ErrNotOwned)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.messages.WithTx(tx).UpdateFeedback(ctx, msg.ID, in.Rating, in.Comment); err != nil {
			return err
		}
		return s.sessions.WithTx(tx).RefreshAverageRating(ctx, session.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	s.analytics.Track(ctx, domain.EventChatFeedback, map[string]any{
		"message_id":  msg.ID.String(),
		"session_id":  session.ID.String(),
		"rating":      in.Rating,
		"has_comment": in.Comment != "",
	}, meta)
	return nil
}

// RateSession stores feedback for one of the caller's sessions.
func (s *FeedbackService) RateSession(ctx context.Context, in SessionFeedbackInput, meta RequestMeta) (*domain.ChatFeedback, error) {
	session, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.OwnedBy(meta.UserID, meta.SessionKey) {
		return nil, fmt.Errorf("%w: %w", store.ErrSessionNotFound, ErrNotOwned)
	}

	fb, err := domain.NewChatFeedback(session.ID, meta.UserID, in.OverallRating,
		in.Helpfulness, in.Accuracy, in.WouldRecommend, in.Comment)
	if err != nil {
		return nil, err
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("failed to store session feedback: %w", err)
	}

	s.analytics.Track(ctx, domain.EventChatSessionFeedback, map[string]any{
		"session_id":      session.ID.String(),
		"overall_rating":  fb.OverallRating,
		"helpfulness":     valueOrNil(fb.Helpfulness),
		"accuracy":        valueOrNil(fb.Accuracy),
		"would_recommend": valueOrNil(fb.WouldRecommend),
	}, meta)
	return fb, nil
}

func valueOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
