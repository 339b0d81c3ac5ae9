package api

import (
	"encoding/json"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/service/auth"
	"github.com/google/uuid"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	Username  string `json:"username"   validate:"omitempty,max=150"`
	Password  string `json:"password"   validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"omitempty,max=150"`
	LastName  string `json:"last_name"  validate:"omitempty,max=150"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User    *domain.User   `json:"user"`
	Tokens  auth.TokenPair `json:"tokens"`
	Message string         `json:"message,omitempty"`
}

// RefreshTokenRequest carries the refresh token for refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh" validate:"required"`
}

// VerifyEmailRequest defines the payload for the email verification endpoint.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// PasswordResetRequest asks for a reset link to be sent to Email.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest sets a new password using a reset token.
type PasswordResetConfirmRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateProfileRequest is a partial profile update; absent fields are left
// unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name"  validate:"omitempty,max=150"`
	Username  *string `json:"username"   validate:"omitempty,min=1,max=150"`
	Bio       *string `json:"bio"        validate:"omitempty,max=500"`
}

func (r UpdateProfileRequest) toDomain() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Username:  r.Username,
		Bio:       r.Bio,
	}
}

// ChatQueryRequest defines the payload for submitting a chat query.
type ChatQueryRequest struct {
	Query     string          `json:"query"      validate:"required,max=4000"`
	SessionID *uuid.UUID      `json:"session_id"`
	Context   json.RawMessage `json:"context"`
	Audience  string          `json:"audience"   validate:"omitempty,oneof=general technical executive student"`
	Depth     string          `json:"depth"      validate:"omitempty,oneof=brief medium detailed"`
	Tone      string          `json:"tone"       validate:"omitempty,oneof=professional friendly casual academic"`
}

// MessageFeedbackRequest rates a single message.
type MessageFeedbackRequest struct {
	MessageID *uuid.UUID `json:"message_id" validate:"required"`
	Rating    int        `json:"rating"     validate:"required,min=1,max=5"`
	Comment   string     `json:"comment"    validate:"omitempty,max=2000"`
}

// SessionFeedbackRequest rates a whole chat session.
type SessionFeedbackRequest struct {
	SessionID      *uuid.UUID `json:"session_id"      validate:"required"`
	OverallRating  int        `json:"overall_rating"  validate:"required,min=1,max=5"`
	Helpfulness    *int       `json:"helpfulness"     validate:"omitempty,min=1,max=5"`
	Accuracy       *int       `json:"accuracy"        validate:"omitempty,min=1,max=5"`
	WouldRecommend *bool      `json:"would_recommend"`
	Comment        string     `json:"comment"         validate:"omitempty,max=2000"`
}

// PageViewRequest records a client side page view.
type PageViewRequest struct {
	Path  string `json:"path"  validate:"required,max=500"`
	Title string `json:"title" validate:"omitempty,max=500"`
}

// UserActionRequest records a named action by the authenticated user.
type UserActionRequest struct {
	Action   string         `json:"action"   validate:"required,max=100"`
	Metadata map[string]any `json:"metadata"`
}

// NotFoundStatusResponse is returned when a response status is unknown or expired.
type NotFoundStatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
