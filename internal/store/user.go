package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/google/uuid"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store, hashing user.Password.
	// Returns ErrEmailExists or ErrUsernameExists on conflicts and
	// validation errors from the domain User if data is invalid.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their (normalized) email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByVerificationToken retrieves the user holding an email verification token.
	// Returns ErrUserNotFound if no user holds it.
	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)

	// Update modifies an existing user's details.
	// The caller MUST provide a complete user object including HashedPassword.
	// If a new plain text Password is provided, it will be hashed and the HashedPassword will be updated.
	// Returns ErrUserNotFound if the user does not exist.
	Update(ctx context.Context, user *domain.User) error

	// RecordLogin atomically increments login_count and sets last_activity.
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}

// PasswordResetStore persists password reset tokens.
type PasswordResetStore interface {
	Create(ctx context.Context, token *domain.PasswordResetToken) error

	// GetValid returns the unused token created at or after notBefore.
	// Returns ErrResetTokenNotFound otherwise.
	GetValid(ctx context.Context, token string, notBefore time.Time) (*domain.PasswordResetToken, error)

	// MarkUsed flags a token as redeemed. Returns ErrResetTokenNotFound when
	// the token does not exist or was already used.
	MarkUsed(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes tokens created before the cutoff and reports how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	WithTx(tx *sql.Tx) PasswordResetStore
}
