package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxFeedbackCommentLength bounds free-text feedback.
const MaxFeedbackCommentLength = 2000

// ChatFeedback is a user's rating of a whole session.
type ChatFeedback struct {
	ID             uuid.UUID  `json:"id"`
	SessionID      uuid.UUID  `json:"session_id"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	OverallRating  int        `json:"overall_rating"`
	Helpfulness    *int       `json:"helpfulness,omitempty"`
	Accuracy       *int       `json:"accuracy,omitempty"`
	WouldRecommend *bool      `json:"would_recommend,omitempty"`
	Comment        string     `json:"comment,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewChatFeedback creates validated session feedback.
func NewChatFeedback(
	sessionID uuid.UUID,
	userID *uuid.UUID,
	overall int,
	helpfulness, accuracy *int,
	wouldRecommend *bool,
	comment string,
) (*ChatFeedback, error) {
	f := &ChatFeedback{
		ID:             uuid.New(),
		SessionID:      sessionID,
		UserID:         userID,
		OverallRating:  overall,
		Helpfulness:    helpfulness,
		Accuracy:       accuracy,
		WouldRecommend: wouldRecommend,
		Comment:        comment,
		CreatedAt:      time.Now().UTC(),
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks ratings and comment length.
func (f *ChatFeedback) Validate() error {
	if f.SessionID == uuid.Nil {
		return NewValidationError("session_id", "session ID cannot be empty", ErrInvalidID)
	}
	if err := ValidateRating("overall_rating", f.OverallRating); err != nil {
		return err
	}
	if f.Helpfulness != nil {
		if err := ValidateRating("helpfulness", *f.Helpfulness); err != nil {
			return err
		}
	}
	if f.Accuracy != nil {
		if err := ValidateRating("accuracy", *f.Accuracy); err != nil {
			return err
		}
	}
	return ValidateFeedbackComment(f.Comment)
}

// ValidateFeedbackComment checks the comment length in characters.
func ValidateFeedbackComment(comment string) error {
	if utf8.RuneCountInString(comment) > MaxFeedbackCommentLength {
		return NewValidationError("comment", "comment must be at most 2000 characters", nil)
	}
	return nil
}
