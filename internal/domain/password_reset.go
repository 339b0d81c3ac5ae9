package domain

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is a single-use token emailed to a user who asked to reset
// their password.
type PasswordResetToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"-"`
	IsUsed    bool      `json:"is_used"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPasswordResetToken creates an unused token with a random value.
func NewPasswordResetToken(userID uuid.UUID) *PasswordResetToken {
	return &PasswordResetToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// IsExpired reports whether the token is older than lifetime at now.
func (t *PasswordResetToken) IsExpired(now time.Time, lifetime time.Duration) bool {
	return now.Sub(t.CreatedAt) > lifetime
}

// Usable reports whether the token can still be redeemed.
func (t *PasswordResetToken) Usable(now time.Time, lifetime time.Duration) bool {
	return !t.IsUsed && !t.IsExpired(now, lifetime)
}
