package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("  Test@Example.com ", "", "password123")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, "test", user.Username, "username should default to the email local part")
	assert.True(t, user.IsActive)
	assert.False(t, user.IsEmailVerified)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestNewUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		sentinel error
	}{
		{"empty email", "", "password123", ErrInvalidEmail},
		{"malformed email", "not-an-email", "password123", ErrInvalidEmail},
		{"empty password", "a@example.com", "", ErrInvalidPassword},
		{"short password", "a@example.com", "short", ErrInvalidPassword},
		{"long password", "a@example.com", strings.Repeat("x", 73), ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.email, "user", tt.password)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestUserValidateWithHash(t *testing.T) {
	u := User{ID: uuid.New(), Email: "a@example.com", Username: "a", HashedPassword: "hash"}
	assert.NoError(t, u.Validate())

	u.HashedPassword = ""
	assert.ErrorIs(t, u.Validate(), ErrInvalidPassword)
}

func TestApplyProfile(t *testing.T) {
	u := &User{ID: uuid.New(), Email: "a@example.com", Username: "a", HashedPassword: "hash", Bio: "old"}

	first := " Ada "
	require.NoError(t, u.ApplyProfile(ProfileUpdate{FirstName: &first}))
	assert.Equal(t, "Ada", u.FirstName)
	assert.Equal(t, "old", u.Bio, "untouched fields keep their value")

	empty := ""
	err := u.ApplyProfile(ProfileUpdate{Username: &empty})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "username", vErr.Field)
}

func TestRecordLogin(t *testing.T) {
	u := &User{}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	u.RecordLogin(now)
	u.RecordLogin(now)

	assert.Equal(t, 2, u.LoginCount)
	require.NotNil(t, u.LastActivity)
	assert.Equal(t, now, *u.LastActivity)
}

func TestPasswordResetToken(t *testing.T) {
	tok := NewPasswordResetToken(uuid.New())
	lifetime := time.Hour

	assert.NotEmpty(t, tok.Token)
	assert.True(t, tok.Usable(tok.CreatedAt.Add(59*time.Minute), lifetime))
	assert.True(t, tok.IsExpired(tok.CreatedAt.Add(61*time.Minute), lifetime))
	assert.False(t, tok.Usable(tok.CreatedAt.Add(61*time.Minute), lifetime))

	tok.IsUsed = true
	assert.False(t, tok.Usable(tok.CreatedAt, lifetime))
}
