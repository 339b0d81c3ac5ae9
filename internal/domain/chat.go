package domain

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Query length bounds, in characters.
const (
	MinQueryLength = 1
	MaxQueryLength = 4000
)

// FallbackReply is persisted as the AI turn when generation fails.
const FallbackReply = "I apologize, but I'm having trouble processing your request right now. Please try again in a moment."

// ChatSession groups the turns of one conversation. It is owned either by an
// authenticated user or by an anonymous browser session key.
type ChatSession struct {
	ID              uuid.UUID  `json:"session_id"`
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	SessionKey      string     `json:"-"`
	AudienceTag     Audience   `json:"audience_tag"`
	PersonaTone     Tone       `json:"persona_tone"`
	MessageCount    int        `json:"message_count"`
	TotalTokensUsed int        `json:"total_tokens_used"`
	AverageRating   *float64   `json:"average_rating,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewChatSession creates an empty session for the given owner.
func NewChatSession(userID *uuid.UUID, sessionKey string, audience Audience, tone Tone) (*ChatSession, error) {
	now := time.Now().UTC()
	s := &ChatSession{
		ID:          uuid.New(),
		UserID:      userID,
		SessionKey:  sessionKey,
		AudienceTag: audience,
		PersonaTone: tone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the ChatSession has valid data.
func (s *ChatSession) Validate() error {
	if s.ID == uuid.Nil {
		return NewValidationError("session_id", "session ID cannot be empty", ErrInvalidID)
	}
	if (s.UserID == nil || *s.UserID == uuid.Nil) && s.SessionKey == "" {
		return NewValidationError("owner", "session needs a user or a session key", nil)
	}
	if !s.AudienceTag.Valid() {
		return NewValidationError("audience_tag", "unknown audience", ErrInvalidOption)
	}
	if !s.PersonaTone.Valid() {
		return NewValidationError("persona_tone", "unknown tone", ErrInvalidOption)
	}
	return nil
}

// OwnedBy reports whether the session belongs to the authenticated user, or,
// for anonymous sessions, to the browser session key.
func (s *ChatSession) OwnedBy(userID *uuid.UUID, sessionKey string) bool {
	if s.UserID != nil {
		return userID != nil && *userID == *s.UserID
	}
	return userID == nil && sessionKey != "" && s.SessionKey == sessionKey
}

// Source is a knowledge base entry cited by an AI reply.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// ChatMessage is one turn of a session.
type ChatMessage struct {
	ID              uuid.UUID       `json:"id"`
	SessionID       uuid.UUID       `json:"session_id"`
	Content         string          `json:"content"`
	IsFromUser      bool            `json:"is_from_user"`
	ReplyToID       *uuid.UUID      `json:"reply_to_id,omitempty"`
	ResponseTimeMs  int             `json:"response_time_ms"`
	TokensUsed      int             `json:"tokens_used"`
	ModelUsed       string          `json:"model_used,omitempty"`
	ContextData     json.RawMessage `json:"context_data,omitempty"`
	Sources         []Source        `json:"sources"`
	Rating          *int            `json:"rating,omitempty"`
	FeedbackComment string          `json:"feedback_comment,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewUserMessage creates the user turn for a query.
func NewUserMessage(sessionID uuid.UUID, query string, contextData json.RawMessage) (*ChatMessage, error) {
	query = strings.TrimSpace(query)
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	return &ChatMessage{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Content:     query,
		IsFromUser:  true,
		ContextData: contextData,
		Sources:     []Source{},
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// NewAIReply creates the AI turn answering the user message replyTo.
func NewAIReply(sessionID, replyTo uuid.UUID, content string) (*ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, NewValidationError("content", "reply cannot be empty", ErrEmptyContent)
	}
	id := replyTo
	return &ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Content:   content,
		ReplyToID: &id,
		Sources:   []Source{},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ValidateQuery checks the length bounds of a chat query.
func ValidateQuery(query string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(query))
	if n < MinQueryLength {
		return NewValidationError("query", "query cannot be empty", ErrEmptyContent)
	}
	if n > MaxQueryLength {
		return NewValidationError("query", "query must be at most 4000 characters", nil)
	}
	return nil
}

// ValidateRating checks that a rating is within 1..5.
func ValidateRating(field string, rating int) error {
	if rating < 1 || rating > 5 {
		return NewValidationError(field, ErrInvalidRating.Error(), ErrInvalidRating)
	}
	return nil
}

// SessionWithMessages is a session together with its ordered transcript.
type SessionWithMessages struct {
	ChatSession
	Messages []ChatMessage `json:"messages"`
}
