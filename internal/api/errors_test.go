package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/colloquyhq/colloquy-api/internal/api/shared"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/service"
	"github.com/colloquyhq/colloquy-api/internal/service/auth"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "authentication error",
			err:            auth.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrapped authentication error",
			err:            fmt.Errorf("failed to authenticate: %w", auth.ErrInvalidToken),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "revoked refresh token",
			err:            auth.ErrRevokedToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad credentials",
			err:            service.ErrInvalidCredentials,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "disabled account",
			err:            service.ErrAccountDisabled,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "foreign session",
			err:            fmt.Errorf("%w: %w", store.ErrSessionNotFound, service.ErrNotOwned),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing message",
			err:            store.ErrMessageNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "conflict error",
			err:            store.ErrEmailExists,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "username taken",
			err:            store.ErrUsernameExists,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "bad request error",
			err:            store.ErrInvalidEntity,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "logout with unusable refresh token",
			err:            service.ErrInvalidRefreshToken,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "expired reset token",
			err:            service.ErrInvalidResetToken,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "domain validation error",
			err:            domain.NewValidationError("rating", "must be between 1 and 5", domain.ErrInvalidRating),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wrapped validation error",
			err:            fmt.Errorf("failed to create user: %w", domain.ErrValidation),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown error",
			err:            errors.New("unknown error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedStatus, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedMessage string
	}{
		{
			name:            "nil error",
			err:             nil,
			expectedMessage: "An unexpected error occurred",
		},
		{
			name:            "wrapped authentication error",
			err:             fmt.Errorf("failed due to: %w", auth.ErrInvalidToken),
			expectedMessage: "Invalid token",
		},
		{
			name:            "bad credentials",
			err:             service.ErrInvalidCredentials,
			expectedMessage: "Invalid credentials",
		},
		{
			name:            "logout with unusable refresh token",
			err:             service.ErrInvalidRefreshToken,
			expectedMessage: "Invalid refresh token",
		},
		{
			name:            "verification token",
			err:             service.ErrInvalidVerificationToken,
			expectedMessage: "Invalid verification token",
		},
		{
			name:            "reset token",
			err:             service.ErrInvalidResetToken,
			expectedMessage: "Invalid or expired reset token",
		},
		{
			name:            "foreign session reads as missing session",
			err:             fmt.Errorf("%w: %w", store.ErrSessionNotFound, service.ErrNotOwned),
			expectedMessage: "Session not found",
		},
		{
			name:            "duplicate email",
			err:             store.ErrEmailExists,
			expectedMessage: "Email already exists",
		},
		{
			name:            "validation error",
			err:             domain.NewValidationError("query", "cannot be empty", domain.ErrEmptyContent),
			expectedMessage: "Invalid query: cannot be empty",
		},
		{
			name:            "unknown error",
			err:             errors.New("database error: connection refused"),
			expectedMessage: "An unexpected error occurred",
		},
		{
			name: "wrapped database error with SQL details",
			err: fmt.Errorf(
				"SQL error: %w",
				errors.New("syntax error at line 42 in SELECT * FROM users"),
			),
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message := GetSafeErrorMessage(tt.err)
			assert.Equal(t, tt.expectedMessage, message)
			if tt.err != nil && tt.expectedMessage == "An unexpected error occurred" {
				assert.NotContains(t, message, tt.err.Error())
			}
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	t.Run("server errors use the fallback message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/chat/query", nil)
		req = req.WithContext(shared.SetTraceID(req.Context()))

		HandleAPIError(rec, req, errors.New("pq: deadlock detected"), "Failed to submit query")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body shared.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "Failed to submit query", body.Error)
		assert.Equal(t, shared.GetTraceID(req.Context()), body.TraceID)
	})

	t.Run("classified errors keep their message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/chat/sessions/x", nil)

		HandleAPIError(rec, req, store.ErrSessionNotFound, "Failed to load session")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body shared.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "Session not found", body.Error)
	})
}

func TestSanitizeValidationError(t *testing.T) {
	testError := errors.New(
		"Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag",
	)
	safeMessage := SanitizeValidationError(testError)

	assert.NotEqual(t, testError.Error(), safeMessage)
	assert.Equal(t, "Invalid Email: required field", safeMessage)

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("Some other kind of error")))
}

func TestHandleValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/feedback/message", nil)

	HandleValidationError(rec, req, domain.NewValidationError("rating", "must be between 1 and 5", domain.ErrInvalidRating))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body shared.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Invalid rating: must be between 1 and 5", body.Error)
}
