package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, email, username, first_name, last_name, bio, avatar_url,
	hashed_password, is_active, is_email_verified, email_verification_token,
	login_count, last_activity, created_at, updated_at`

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db         store.DBTX
	bcryptCost int
	logger     *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// An invalid bcryptCost falls back to bcrypt.DefaultCost.
func NewPostgresUserStore(db store.DBTX, bcryptCost int, logger *slog.Logger) *PostgresUserStore {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, bcryptCost: s.bcryptCost, logger: s.logger}
}

// hashPassword replaces user.Password with its bcrypt hash.
func (s *PostgresUserStore) hashPassword(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = string(hash)
	user.Password = ""
	return nil
}

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create", slog.String("error", err.Error()))
		return err
	}
	if err := s.hashPassword(user); err != nil {
		return err
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Bio,
		user.AvatarURL,
		user.HashedPassword,
		user.IsActive,
		user.IsEmailVerified,
		nullString(user.EmailVerificationToken),
		user.LoginCount,
		user.LastActivity,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if store.IsDuplicateError(mapped) {
			log.Info("user already exists", slog.String("user_id", user.ID.String()))
		} else {
			log.Error("failed to create user",
				slog.String("error", err.Error()),
				slog.String("user_id", user.ID.String()))
		}
		return mapped
	}

	log.Info("user created successfully", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "email = $1", domain.NormalizeEmail(email))
}

// GetByVerificationToken implements store.UserStore.GetByVerificationToken
func (s *PostgresUserStore) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, store.ErrUserNotFound
	}
	return s.getOne(ctx, "email_verification_token = $1", token)
}

func (s *PostgresUserStore) getOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return user, nil
}

// Update implements store.UserStore.Update
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during update", slog.String("error", err.Error()))
		return err
	}
	if err := s.hashPassword(user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = $1, username = $2, first_name = $3, last_name = $4, bio = $5,
			avatar_url = $6, hashed_password = $7, is_active = $8, is_email_verified = $9,
			email_verification_token = $10, updated_at = $11
		WHERE id = $12
	`
	result, err := s.db.ExecContext(ctx, query,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Bio,
		user.AvatarURL,
		user.HashedPassword,
		user.IsActive,
		user.IsEmailVerified,
		nullString(user.EmailVerificationToken),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		log.Error("failed to update user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Debug("user updated", slog.String("user_id", user.ID.String()))
	return nil
}

// RecordLogin implements store.UserStore.RecordLogin
func (s *PostgresUserStore) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET login_count = login_count + 1, last_activity = $1
		WHERE id = $2
	`, at.UTC(), id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var token sql.NullString
	var lastActivity sql.NullTime
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Bio,
		&u.AvatarURL,
		&u.HashedPassword,
		&u.IsActive,
		&u.IsEmailVerified,
		&token,
		&u.LoginCount,
		&lastActivity,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.EmailVerificationToken = token.String
	if lastActivity.Valid {
		t := lastActivity.Time
		u.LastActivity = &t
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// PostgresPasswordResetStore implements store.PasswordResetStore.
type PostgresPasswordResetStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPasswordResetStore creates a PostgresPasswordResetStore.
func NewPostgresPasswordResetStore(db store.DBTX, logger *slog.Logger) *PostgresPasswordResetStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPasswordResetStore{db: db, logger: logger.With(slog.String("component", "password_reset_store"))}
}

var _ store.PasswordResetStore = (*PostgresPasswordResetStore)(nil)

// WithTx implements store.PasswordResetStore.WithTx
func (s *PostgresPasswordResetStore) WithTx(tx *sql.Tx) store.PasswordResetStore {
	return &PostgresPasswordResetStore{db: tx, logger: s.logger}
}

// Create implements store.PasswordResetStore.Create
func (s *PostgresPasswordResetStore) Create(ctx context.Context, t *domain.PasswordResetToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.UserID, t.Token, t.IsUsed, t.CreatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create password reset token",
			slog.String("error", err.Error()),
			slog.String("user_id", t.UserID.String()))
		return MapError(err)
	}
	return nil
}

// GetValid implements store.PasswordResetStore.GetValid
func (s *PostgresPasswordResetStore) GetValid(ctx context.Context, token string, notBefore time.Time) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, is_used, created_at
		FROM password_reset_tokens
		WHERE token = $1 AND is_used = FALSE AND created_at >= $2
	`, token, notBefore.UTC()).Scan(&t.ID, &t.UserID, &t.Token, &t.IsUsed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrResetTokenNotFound
		}
		return nil, MapError(err)
	}
	return &t, nil
}

// MarkUsed implements store.PasswordResetStore.MarkUsed
func (s *PostgresPasswordResetStore) MarkUsed(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrResetTokenNotFound); err != nil {
		return err
	}
	return nil
}

// DeleteExpired implements store.PasswordResetStore.DeleteExpired
func (s *PostgresPasswordResetStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE created_at < $1 OR is_used = TRUE`, before.UTC())
	if err != nil {
		return 0, MapError(err)
	}
	return result.RowsAffected()
}
