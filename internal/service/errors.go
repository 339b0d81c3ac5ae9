package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped with context using %w
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrInvalidCredentials is returned when the email or password does not match.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDisabled is returned when an inactive user tries to sign in.
	ErrAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidVerificationToken is returned for an unknown email verification token.
	ErrInvalidVerificationToken = errors.New("invalid verification token")

	// ErrInvalidResetToken is returned when a password reset token is unknown,
	// used or expired.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")

	// ErrInvalidRefreshToken is returned when a refresh token supplied for
	// logout cannot be parsed, is revoked or belongs to someone else.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// Chat endpoints report it as not found so session ids cannot be probed.
	ErrNotOwned = errors.New("resource is owned by another user")
)
