package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/events"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/platform/mail"
	"github.com/colloquyhq/colloquy-api/internal/redact"
	"github.com/colloquyhq/colloquy-api/internal/service/auth"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/colloquyhq/colloquy-api/internal/task"
	"github.com/google/uuid"
)

// AvatarSaver stores an uploaded avatar and returns its public URL.
type AvatarSaver interface {
	Save(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error)
}

// AccountMailer renders and sends account emails.
type AccountMailer interface {
	SendVerification(ctx context.Context, to mail.Recipient, token string) error
	SendPasswordReset(ctx context.Context, to mail.Recipient, token string) error
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// AccountDeps groups the collaborators of AccountService.
type AccountDeps struct {
	DB            *sql.DB
	Users         store.UserStore
	Resets        store.PasswordResetStore
	JWT           auth.JWTService
	Verifier      auth.PasswordVerifier
	Emitter       events.EventEmitter
	Analytics     *AnalyticsService
	Mailer        AccountMailer
	Avatars       AvatarSaver
	ResetLifetime time.Duration
}

// AccountService implements registration, authentication and profile use
// cases.
type AccountService struct {
	deps   AccountDeps
	logger *slog.Logger
	now    func() time.Time
}

var _ task.AccountMailer = (*AccountService)(nil)

// NewAccountService creates an AccountService.
func NewAccountService(deps AccountDeps, logger *slog.Logger) *AccountService {
	if deps.ResetLifetime <= 0 {
		deps.ResetLifetime = time.Hour
	}
	return &AccountService{
		deps:   deps,
		logger: logger.With("component", "account_service"),
		now:    time.Now,
	}
}

// Register creates an unverified account and returns it with a token pair.
// The verification email, welcome notification and analytics event are queued
// as background tasks.
func (s *AccountService) Register(
	ctx context.Context,
	in RegisterInput,
	meta RequestMeta,
) (*domain.User, auth.TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(in.Email, in.Username, in.Password)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	if err := user.Validate(); err != nil {
		return nil, auth.TokenPair{}, err
	}
	user.EmailVerificationToken = uuid.NewString()

	if err := s.deps.Users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Debug("registration rejected: duplicate account")
		}
		return nil, auth.TokenPair{}, err
	}

	tokens, err := auth.IssueTokenPair(ctx, s.deps.JWT, user.ID)
	if err != nil {
		return nil, auth.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.enqueue(ctx, task.TypeVerificationEmail, task.EmailPayload{UserID: user.ID, Token: user.EmailVerificationToken})
	s.enqueue(ctx, task.TypeWelcomeNotification, task.WelcomePayload{UserID: user.ID})
	s.deps.Analytics.Track(ctx, domain.EventUserRegistration, map[string]any{
		"email":    user.Email,
		"username": user.Username,
	}, meta.WithUser(user.ID))

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, tokens, nil
}

// Login checks credentials, records the login and returns a token pair.
func (s *AccountService) Login(
	ctx context.Context,
	email, password string,
	meta RequestMeta,
) (*domain.User, auth.TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.deps.Users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, auth.TokenPair{}, ErrInvalidCredentials
		}
		return nil, auth.TokenPair{}, err
	}
	if err := s.deps.Verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login rejected: password mismatch", slog.String("user_id", user.ID.String()))
		return nil, auth.TokenPair{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, auth.TokenPair{}, ErrAccountDisabled
	}

	now := s.now()
	if err := s.deps.Users.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, auth.TokenPair{}, fmt.Errorf("failed to record login: %w", err)
	}
	user.RecordLogin(now)

	tokens, err := auth.IssueTokenPair(ctx, s.deps.JWT, user.ID)
	if err != nil {
		return nil, auth.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.deps.Analytics.Track(ctx, domain.EventUserLogin, map[string]any{
		"login_count": user.LoginCount,
	}, meta.WithUser(user.ID))
	return user, tokens, nil
}

// Refresh exchanges a valid refresh token for a new pair. The old refresh
// token is revoked.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.deps.JWT.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return auth.TokenPair{}, err
	}

	user, err := s.deps.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.TokenPair{}, auth.ErrInvalidRefreshToken
		}
		return auth.TokenPair{}, err
	}
	if !user.IsActive {
		return auth.TokenPair{}, ErrAccountDisabled
	}

	if err := s.deps.JWT.RevokeRefreshToken(ctx, claims); err != nil {
		return auth.TokenPair{}, err
	}
	return auth.IssueTokenPair(ctx, s.deps.JWT, user.ID)
}

// Logout revokes the caller's refresh token.
func (s *AccountService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string, meta RequestMeta) error {
	claims, err := s.deps.JWT.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Debug("logout rejected", redact.ErrorAttr(err))
		return ErrInvalidRefreshToken
	}
	if claims.UserID != userID {
		return ErrInvalidRefreshToken
	}
	if err := s.deps.JWT.RevokeRefreshToken(ctx, claims); err != nil {
		return err
	}

	s.deps.Analytics.Track(ctx, domain.EventUserLogout, nil, meta.WithUser(userID))
	return nil
}

// VerifyEmail marks the account holding token as verified.
func (s *AccountService) VerifyEmail(ctx context.Context, token string, meta RequestMeta) error {
	if token == "" {
		return ErrInvalidVerificationToken
	}
	user, err := s.deps.Users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return err
	}

	user.IsEmailVerified = true
	user.EmailVerificationToken = ""
	user.UpdatedAt = s.now().UTC()
	if err := s.deps.Users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}

	s.deps.Analytics.Track(ctx, domain.EventEmailVerified, nil, meta.WithUser(user.ID))
	return nil
}

// RequestPasswordReset queues a reset email when an active account exists for
// email. It reports success either way.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.deps.Users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.IsActive {
		log.Debug("password reset requested for inactive account")
		return nil
	}

	token := domain.NewPasswordResetToken(user.ID)
	if err := s.deps.Resets.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	s.enqueue(ctx, task.TypePasswordResetEmail, task.EmailPayload{UserID: user.ID, Token: token.Token})
	return nil
}

// ConfirmPasswordReset sets a new password using an unused reset token younger
// than the reset lifetime, and marks the token used.
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, token, password string, meta RequestMeta) error {
	if err := domain.ValidatePassword(password); err != nil {
		return err
	}

	notBefore := s.now().Add(-s.deps.ResetLifetime)
	reset, err := s.deps.Resets.GetValid(ctx, token, notBefore)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	err = store.RunInTransaction(ctx, s.deps.DB, func(ctx context.Context, tx *sql.Tx) error {
		users := s.deps.Users.WithTx(tx)
		user, err := users.GetByID(ctx, reset.UserID)
		if err != nil {
			return err
		}
		user.Password = password
		user.UpdatedAt = s.now().UTC()
		if err := users.Update(ctx, user); err != nil {
			return err
		}
		return s.deps.Resets.WithTx(tx).MarkUsed(ctx, reset.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.deps.Analytics.Track(ctx, domain.EventPasswordReset, nil, meta.WithUser(reset.UserID))
	return nil
}

// GetProfile returns the user's account.
func (s *AccountService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.deps.Users.GetByID(ctx, userID)
}

// UpdateProfile applies a partial profile update.
func (s *AccountService) UpdateProfile(
	ctx context.Context,
	userID uuid.UUID,
	update domain.ProfileUpdate,
	meta RequestMeta,
) (*domain.User, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.ApplyProfile(update); err != nil {
		return nil, err
	}
	if err := s.deps.Users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.deps.Analytics.Track(ctx, domain.EventProfileUpdated, map[string]any{
		"fields": updatedFields(update),
	}, meta.WithUser(userID))
	return user, nil
}

// UpdateAvatar stores a new avatar image and records its URL.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, meta RequestMeta) (*domain.User, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.deps.Avatars.Save(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	user.AvatarURL = url
	user.UpdatedAt = s.now().UTC()
	if err := s.deps.Users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.deps.Analytics.Track(ctx, domain.EventAvatarUpdated, nil, meta.WithUser(userID))
	return user, nil
}

// SendVerificationEmail implements task.AccountMailer.
func (s *AccountService) SendVerificationEmail(ctx context.Context, userID uuid.UUID, token string) error {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsEmailVerified {
		logger.FromContextOrDefault(ctx, s.logger).Info("email already verified, skipping verification email",
			slog.String("user_id", userID.String()))
		return nil
	}
	return s.deps.Mailer.SendVerification(ctx, recipient(user), token)
}

// SendPasswordResetEmail implements task.AccountMailer.
func (s *AccountService) SendPasswordResetEmail(ctx context.Context, userID uuid.UUID, token string) error {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	return s.deps.Mailer.SendPasswordReset(ctx, recipient(user), token)
}

// enqueue publishes a task event. Failures are logged and not returned: the
// request that caused them has already succeeded.
func (s *AccountService) enqueue(ctx context.Context, taskType string, payload interface{}) {
	if _, err := events.Publish(ctx, s.deps.Emitter, taskType, payload, logger.TraceID(ctx)); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to queue task",
			slog.String("task_type", taskType),
			redact.ErrorAttr(err))
	}
}

func recipient(u *domain.User) mail.Recipient {
	name := u.FullName()
	if name == "" {
		name = u.Username
	}
	return mail.Recipient{Email: u.Email, Name: name}
}

func updatedFields(u domain.ProfileUpdate) []string {
	var fields []string
	if u.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if u.LastName != nil {
		fields = append(fields, "last_name")
	}
	if u.Username != nil {
		fields = append(fields, "username")
	}
	if u.Bio != nil {
		fields = append(fields, "bio")
	}
	return fields
}
