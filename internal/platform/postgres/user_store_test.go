package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userRowColumns = []string{
	"id", "email", "username", "first_name", "last_name", "bio", "avatar_url",
	"hashed_password", "is_active", "is_email_verified", "email_verification_token",
	"login_count", "last_activity", "created_at", "updated_at",
}

func TestNewPostgresUserStore_InvalidCostFallsBack(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewPostgresUserStore(db, 99, nil)
	assert.Equal(t, bcrypt.DefaultCost, s.bcryptCost)
}

func TestPostgresUserStore_Create(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)

	t.Run("hashes password", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresUserStore(db, bcrypt.MinCost, logger.NewTestLogger(t))
		user, err := domain.NewUser("Ada@Example.com", "", "correct-horse")
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(ctx, user))
		assert.Empty(t, user.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("correct-horse")))
	})

	t.Run("duplicate email", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresUserStore(db, bcrypt.MinCost, logger.NewTestLogger(t))
		user, err := domain.NewUser("ada@example.com", "ada", "correct-horse")
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO users").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_key"})

		err = s.Create(ctx, user)
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})

	t.Run("invalid user is not inserted", func(t *testing.T) {
		db, _ := newMockDB(t)
		s := NewPostgresUserStore(db, bcrypt.MinCost, logger.NewTestLogger(t))
		user := &domain.User{ID: uuid.New(), Email: "not-an-email", Username: "x", Password: "correct-horse"}

		err := s.Create(ctx, user)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestPostgresUserStore_GetByEmail(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, bcrypt.MinCost, logger.NewTestLogger(t))

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("(?s)SELECT .* FROM users WHERE email = \\$1").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			id.String(), "ada@example.com", "ada", "Ada", "Lovelace", "", "",
			"$2a$04$hash", true, false, nil, 3, now, now, now))

	user, err := s.GetByEmail(ctx, "  ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, 3, user.LoginCount)
	require.NotNil(t, user.LastActivity)
	assert.Empty(t, user.EmailVerificationToken)

	mock.ExpectQuery("(?s)SELECT .* FROM users WHERE email = \\$1").WillReturnError(sql.ErrNoRows)
	_, err = s.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestPostgresUserStore_GetByVerificationTokenEmpty(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewPostgresUserStore(db, bcrypt.MinCost, nil)

	_, err := s.GetByVerificationToken(context.Background(), "")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestPostgresUserStore_Update(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, bcrypt.MinCost, logger.NewTestLogger(t))

	user := &domain.User{
		ID:             uuid.New(),
		Email:          "ada@example.com",
		Username:       "ada",
		HashedPassword: "$2a$04$existing",
	}

	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Update(ctx, user))
	assert.Equal(t, "$2a$04$existing", user.HashedPassword, "hash is kept without a new password")

	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Update(ctx, user), store.ErrUserNotFound)

	mock.ExpectExec("UPDATE users").
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_username_key"})
	assert.ErrorIs(t, s.Update(ctx, user), store.ErrUsernameExists)
}

func TestPostgresUserStore_RecordLogin(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, bcrypt.MinCost, nil)
	id := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec("SET login_count = login_count \\+ 1").
		WithArgs(at, id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.RecordLogin(context.Background(), id, at))
}

func TestPostgresPasswordResetStore(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	s := NewPostgresPasswordResetStore(db, nil)

	token := domain.NewPasswordResetToken(uuid.New())
	mock.ExpectExec("INSERT INTO password_reset_tokens").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Create(ctx, token))

	notBefore := time.Now().Add(-time.Hour)
	mock.ExpectQuery("FROM password_reset_tokens").
		WithArgs(token.Token, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "is_used", "created_at"}).
			AddRow(token.ID.String(), token.UserID.String(), token.Token, false, token.CreatedAt))
	got, err := s.GetValid(ctx, token.Token, notBefore)
	require.NoError(t, err)
	assert.Equal(t, token.ID, got.ID)

	mock.ExpectQuery("FROM password_reset_tokens").WillReturnError(sql.ErrNoRows)
	_, err = s.GetValid(ctx, "stale", notBefore)
	assert.ErrorIs(t, err, store.ErrResetTokenNotFound)

	mock.ExpectExec("UPDATE password_reset_tokens SET is_used = TRUE").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.MarkUsed(ctx, token.ID), store.ErrResetTokenNotFound)

	mock.ExpectExec("DELETE FROM password_reset_tokens").WillReturnResult(sqlmock.NewResult(0, 4))
	n, err := s.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
