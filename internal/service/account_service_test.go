package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/mocks"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/service"
	"github.com/colloquyhq/colloquy-api/internal/service/auth"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/colloquyhq/colloquy-api/internal/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func registerUser(t *testing.T, f *fixture, email string) *domain.User {
	t.Helper()
	user, _, err := f.accounts.Register(context.Background(), service.RegisterInput{
		Email:    email,
		Password: "password123",
	}, service.RequestMeta{})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	t.Run("creates unverified user and queues follow-up tasks", func(t *testing.T) {
		f := newFixture(t)

		user, tokens, err := f.accounts.Register(context.Background(), service.RegisterInput{
			Email:     " Ada@Example.com ",
			Username:  "ada",
			Password:  "password123",
			FirstName: "Ada",
		}, service.RequestMeta{IPAddress: "10.0.0.1"})

		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.False(t, user.IsEmailVerified)
		assert.NotEmpty(t, user.EmailVerificationToken)
		assert.Empty(t, user.Password, "plaintext password must not survive creation")
		assert.Equal(t, auth.TokenPair{Access: "access-token", Refresh: "refresh-token"}, tokens)

		assert.Equal(t, []string{
			task.TypeVerificationEmail,
			task.TypeWelcomeNotification,
			task.TypeAnalyticsEvent,
		}, f.emitter.types())

		var payload task.EmailPayload
		require.NoError(t, f.emitter.ofType(task.TypeVerificationEmail)[0].UnmarshalPayload(&payload))
		assert.Equal(t, user.ID, payload.UserID)
		assert.Equal(t, user.EmailVerificationToken, payload.Token)

		var event domain.AnalyticsEvent
		require.NoError(t, f.emitter.ofType(task.TypeAnalyticsEvent)[0].UnmarshalPayload(&event))
		assert.Equal(t, domain.EventUserRegistration, event.EventType)
		require.NotNil(t, event.UserID)
		assert.Equal(t, user.ID, *event.UserID)
		assert.Equal(t, "10.0.0.1", event.IPAddress)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newFixture(t)
		registerUser(t, f, "ada@example.com")

		_, _, err := f.accounts.Register(context.Background(), service.RegisterInput{
			Email:    "ADA@example.com",
			Username: "other",
			Password: "password123",
		}, service.RequestMeta{})

		assert.ErrorIs(t, err, store.ErrEmailExists)
	})

	t.Run("short password", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.accounts.Register(context.Background(), service.RegisterInput{
			Email:    "ada@example.com",
			Password: "short",
		}, service.RequestMeta{})

		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, f.emitter.types())
	})
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	user := registerUser(t, f, "ada@example.com")
	f.emitter.events = nil

	t.Run("success records the login", func(t *testing.T) {
		got, tokens, err := f.accounts.Login(context.Background(), "ADA@example.com", "password123", service.RequestMeta{})

		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, 1, got.LoginCount)
		assert.NotNil(t, got.LastActivity)
		assert.Equal(t, "access-token", tokens.Access)
		assert.Equal(t, []string{task.TypeAnalyticsEvent}, f.emitter.types())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := f.accounts.Login(context.Background(), "ada@example.com", "wrong-password", service.RequestMeta{})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := f.accounts.Login(context.Background(), "nobody@example.com", "password123", service.RequestMeta{})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		f.users.Users[user.ID].IsActive = false
		defer func() { f.users.Users[user.ID].IsActive = true }()

		_, _, err := f.accounts.Login(context.Background(), "ada@example.com", "password123", service.RequestMeta{})
		assert.ErrorIs(t, err, service.ErrAccountDisabled)
	})
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	user := registerUser(t, f, "ada@example.com")
	claims := claimsFor(user.ID)
	f.jwt.Claims = claims

	tokens, err := f.accounts.Refresh(context.Background(), "refresh-token")

	require.NoError(t, err)
	assert.Equal(t, "refresh-token", tokens.Refresh)
	require.Len(t, f.jwt.Revoked, 1)
	assert.Equal(t, claims.ID, f.jwt.Revoked[0].ID)
}

func TestRefreshRejectsInvalidToken(t *testing.T) {
	f := newFixture(t)
	f.jwt.ValidateErr = auth.ErrRevokedToken

	_, err := f.accounts.Refresh(context.Background(), "refresh-token")

	assert.ErrorIs(t, err, auth.ErrRevokedToken)
	assert.Empty(t, f.jwt.Revoked)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	user := registerUser(t, f, "ada@example.com")

	t.Run("token of another user", func(t *testing.T) {
		f.jwt.Claims = claimsFor(uuid.New())

		err := f.accounts.Logout(context.Background(), user.ID, "refresh-token", service.RequestMeta{})

		assert.ErrorIs(t, err, service.ErrInvalidRefreshToken)
		assert.Empty(t, f.jwt.Revoked)
	})

	t.Run("unparsable token", func(t *testing.T) {
		f.jwt.Claims = nil
		f.jwt.ValidateErr = auth.ErrInvalidToken
		defer func() { f.jwt.ValidateErr = nil }()

		err := f.accounts.Logout(context.Background(), user.ID, "garbage", service.RequestMeta{})

		assert.ErrorIs(t, err, service.ErrInvalidRefreshToken)
	})

	t.Run("revokes own token", func(t *testing.T) {
		f.jwt.Claims = claimsFor(user.ID)

		err := f.accounts.Logout(context.Background(), user.ID, "refresh-token", service.RequestMeta{})

		require.NoError(t, err)
		assert.Len(t, f.jwt.Revoked, 1)
	})
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	user := registerUser(t, f, "ada@example.com")

	err := f.accounts.VerifyEmail(context.Background(), user.EmailVerificationToken, service.RequestMeta{})
	require.NoError(t, err)

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmailVerified)
	assert.Empty(t, stored.EmailVerificationToken)

	err = f.accounts.VerifyEmail(context.Background(), user.EmailVerificationToken, service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrInvalidVerificationToken, "tokens are single use")

	err = f.accounts.VerifyEmail(context.Background(), "", service.RequestMeta{})
	assert.ErrorIs(t, err, service.ErrInvalidVerificationToken)
}

func TestRequestPasswordReset(t *testing.T) {
	f := newFixture(t)
	user := registerUser(t, f, "ada@example.com")
	f.emitter.events = nil

	require.NoError(t, f.accounts.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.emitter.types(), "unknown emails are accepted silently")

	require.NoError(t, f.accounts.RequestPasswordReset(context.Background(), "Ada@Example.com"))
	require.Len(t, f.resets.Tokens, 1)
	assert.Equal(t, user.ID, f.resets.Tokens[0].UserID)

	var payload task.EmailPayload
	require.NoError(t, f.emitter.ofType(task.TypePasswordResetEmail)[0].UnmarshalPayload(&payload))
	assert.Equal(t, f.resets.Tokens[0].Token, payload.Token)
}

func TestConfirmPasswordReset(t *testing.T) {
	t.Run("sets the password and consumes the token", func(t *testing.T) {
		f := newFixture(t)
		user := registerUser(t, f, "ada@example.com")
		token := domain.NewPasswordResetToken(user.ID)
		require.NoError(t, f.resets.Create(context.Background(), token))
		f.expectTx()

		err := f.accounts.ConfirmPasswordReset(context.Background(), token.Token, "new-password", service.RequestMeta{})

		require.NoError(t, err)
		stored, _ := f.users.GetByID(context.Background(), user.ID)
		assert.Equal(t, "hashed:new-password", stored.HashedPassword)
		assert.True(t, f.resets.Tokens[0].IsUsed)

		err = f.accounts.ConfirmPasswordReset(context.Background(), token.Token, "another-password", service.RequestMeta{})
		assert.ErrorIs(t, err, service.ErrInvalidResetToken)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newFixture(t)
		user := registerUser(t, f, "ada@example.com")
		token := domain.NewPasswordResetToken(user.ID)
		token.CreatedAt = time.Now().Add(-2 * time.Hour)
		require.NoError(t, f.resets.Create(context.Background(), token))

		err := f.accounts.ConfirmPasswordReset(context.Background(), token.Token, "new-password", service.RequestMeta{})

		assert.ErrorIs(t, err, service.ErrInvalidResetToken)
	})

	t.Run("invalid password is rejected before the token is read", func(t *testing.T) {
		f := newFixture(t)

		err := f.accounts.ConfirmPasswordReset(context.Background(), "anything", "short", service.RequestMeta{})

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rolls back when the user is gone", func(t *testing.T) {
		f := newFixture(t)
		token := domain.NewPasswordResetToken(uuid.New())
		require.NoError(t, f.resets.Create(context.Background(), token))
		f.expectRollback()

		err := f.accounts.ConfirmPasswordReset(context.Background(), token.Token, "new-password", service.RequestMeta{})

		assert.ErrorIs(t, err, service.ErrInvalidResetToken)
		assert.False(t, f.resets.Tokens[0].IsUsed)
	})
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	user := registerUser(t, f, "ada@example.com")

	updated, err := f.accounts.UpdateProfile(context.Background(), user.ID, domain.ProfileUpdate{
		FirstName: ptr("Ada"),
		Bio:       ptr("Counts things."),
	}, service.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "Counts things.", updated.Bio)

	_, err = f.accounts.UpdateProfile(context.Background(), uuid.New(), domain.ProfileUpdate{}, service.RequestMeta{})
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestUpdateAvatar(t *testing.T) {
	f := newFixture(t)
	user := registerUser(t, f, "ada@example.com")

	updated, err := f.accounts.UpdateAvatar(context.Background(), user.ID, bytes.NewReader([]byte("png")), service.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "/media/avatars/"+user.ID.String()+".png", updated.AvatarURL)
	assert.Equal(t, []byte("png"), f.avatars.saved[user.ID])

	f.avatars.err = errors.New("disk full")
	_, err = f.accounts.UpdateAvatar(context.Background(), user.ID, bytes.NewReader(nil), service.RequestMeta{})
	assert.Error(t, err)
}

func TestAccountEmails(t *testing.T) {
	f := newFixture(t)
	user := registerUser(t, f, "ada@example.com")

	require.NoError(t, f.accounts.SendVerificationEmail(context.Background(), user.ID, "verify-token"))
	require.NoError(t, f.accounts.SendPasswordResetEmail(context.Background(), user.ID, "reset-token"))

	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, "verification", f.mailer.sent[0].kind)
	assert.Equal(t, "ada@example.com", f.mailer.sent[0].to.Email)
	assert.Equal(t, "reset-token", f.mailer.sent[1].token)

	f.users.Users[user.ID].IsEmailVerified = true
	require.NoError(t, f.accounts.SendVerificationEmail(context.Background(), user.ID, "verify-token"))
	assert.Len(t, f.mailer.sent, 2, "verified users get no verification email")
}

func TestLoginStoreFailures(t *testing.T) {
	user := &domain.User{
		ID:             uuid.New(),
		Email:          "ada@example.com",
		HashedPassword: mocks.HashPrefix + "password123",
		IsActive:       true,
	}
	dbErr := errors.New("connection reset")

	newAccounts := func(t *testing.T, users *mocks.TestifyMockUserStore) (*service.AccountService, *mocks.MockPasswordVerifier) {
		verifier := &mocks.MockPasswordVerifier{ShouldSucceed: true}
		return service.NewAccountService(service.AccountDeps{
			Users:    users,
			JWT:      &mocks.MockJWTService{Token: "access-token", RefreshToken: "refresh-token"},
			Verifier: verifier,
		}, logger.NewTestLogger(t)), verifier
	}

	t.Run("lookup error is returned unchanged", func(t *testing.T) {
		users := &mocks.TestifyMockUserStore{}
		users.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, dbErr)
		accounts, verifier := newAccounts(t, users)

		_, _, err := accounts.Login(context.Background(), "Ada@Example.com", "password123", service.RequestMeta{})

		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, service.ErrInvalidCredentials)
		assert.Zero(t, verifier.CompareCallCount)
		users.AssertExpectations(t)
	})

	t.Run("missing user reads as invalid credentials", func(t *testing.T) {
		users := &mocks.TestifyMockUserStore{}
		users.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, store.ErrNotFound)
		accounts, _ := newAccounts(t, users)

		_, _, err := accounts.Login(context.Background(), "ada@example.com", "password123", service.RequestMeta{})

		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
		users.AssertExpectations(t)
	})

	t.Run("record login failure aborts", func(t *testing.T) {
		users := &mocks.TestifyMockUserStore{}
		users.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)
		users.On("RecordLogin", mock.Anything, user.ID, mock.AnythingOfType("time.Time")).Return(dbErr)
		accounts, verifier := newAccounts(t, users)

		_, tokens, err := accounts.Login(context.Background(), "ada@example.com", "password123", service.RequestMeta{})

		assert.ErrorIs(t, err, dbErr)
		assert.Empty(t, tokens.Access)
		assert.Equal(t, 1, verifier.CompareCallCount)
		users.AssertExpectations(t)
	})
}
