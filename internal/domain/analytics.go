package domain

import (
	"time"

	"github.com/google/uuid"
)

// Analytics event types recorded by the application.
const (
	EventUserRegistration    = "user_registration"
	EventUserLogin           = "user_login"
	EventUserLogout          = "user_logout"
	EventEmailVerified       = "email_verified"
	EventPasswordReset       = "password_reset"
	EventProfileUpdated      = "profile_updated"
	EventAvatarUpdated       = "avatar_updated"
	EventChatQuery           = "chat_query"
	EventChatFeedback        = "chat_feedback"
	EventChatSessionFeedback = "chat_session_feedback"
	EventPageView            = "page_view"
	EventUserAction          = "user_action"
)

// AnalyticsEvent is one tracked occurrence. UserID is nil for anonymous events.
type AnalyticsEvent struct {
	ID         uuid.UUID      `json:"id"`
	EventType  string         `json:"event_type"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	SessionKey string         `json:"session_key,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Referrer   string         `json:"referrer,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewAnalyticsEvent creates an event with a non-nil metadata map.
func NewAnalyticsEvent(eventType string, metadata map[string]any) (*AnalyticsEvent, error) {
	if eventType == "" {
		return nil, NewValidationError("event_type", "event type cannot be empty", ErrEmptyContent)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &AnalyticsEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}, nil
}
