package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// constraintErrors maps constraint names from the migrations to the store
// error a caller should see. Foreign keys name the row that was referenced,
// so a missing parent reads as that entity not being found.
var constraintErrors = map[string]error{
	"users_email_key":    store.ErrEmailExists,
	"users_username_key": store.ErrUsernameExists,

	"password_reset_tokens_user_id_fkey": store.ErrUserNotFound,
	"chat_sessions_user_id_fkey":         store.ErrUserNotFound,
	"chat_feedback_user_id_fkey":         store.ErrUserNotFound,
	"analytics_events_user_id_fkey":      store.ErrUserNotFound,
	"notifications_user_id_fkey":         store.ErrUserNotFound,

	"chat_messages_session_id_fkey": store.ErrSessionNotFound,
	"chat_feedback_session_id_fkey": store.ErrSessionNotFound,

	"chat_messages_reply_to_id_fkey": store.ErrMessageNotFound,
}

// MapError maps a database error to a store error, wrapping the original.
// Known constraints map to their entity errors; other integrity violations
// fall back to ErrDuplicate or ErrInvalidEntity.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return fmt.Errorf("%w: %v", mapped, err)
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: duplicate value for %s: %v", store.ErrDuplicate, pgErr.ConstraintName, err)
	case foreignKeyViolationCode:
		return fmt.Errorf("%w: foreign key violation (%s): %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case checkViolationCode:
		return fmt.Errorf("%w: check constraint violation (%s): %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case notNullViolationCode:
		return fmt.Errorf("%w: not null violation (%s): %v", store.ErrInvalidEntity, pgErr.ColumnName, err)
	}
	return err
}

// CheckRowsAffected returns store.ErrNotFound, or notFound when set, if an
// UPDATE or DELETE touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if notFound == nil {
			return store.ErrNotFound
		}
		return notFound
	}
	return nil
}
