package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/colloquyhq/colloquy-api/internal/api/shared"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/redact"
	"github.com/colloquyhq/colloquy-api/internal/service"
	"github.com/colloquyhq/colloquy-api/internal/service/auth"
	"github.com/google/uuid"
)

// Messages returned by the account endpoints.
const (
	RegisterSuccessMessage      = "Registration successful. Please check your email to verify your account."
	LogoutSuccessMessage        = "Successfully logged out"
	VerifyEmailSuccessMessage   = "Email verified successfully"
	PasswordResetRequestMessage = "If an account with that email exists, a password reset link has been sent."
	PasswordResetSuccessMessage = "Password reset successful"
)

// AccountService is the account behaviour the auth and profile handlers need.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput, meta service.RequestMeta) (*domain.User, auth.TokenPair, error)
	Login(ctx context.Context, email, password string, meta service.RequestMeta) (*domain.User, auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string, meta service.RequestMeta) error
	VerifyEmail(ctx context.Context, token string, meta service.RequestMeta) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password string, meta service.RequestMeta) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate, meta service.RequestMeta) (*domain.User, error)
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(accounts AccountService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AuthHandler")
	}
	return &AuthHandler{
		accounts: accounts,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

// decodeAndValidate reads a JSON body into req and validates it, writing a
// 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return false
	}
	return true
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, tokens, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, requestMeta(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		User:    user,
		Tokens:  tokens,
		Message: RegisterSuccessMessage,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, tokens, err := h.accounts.Login(r.Context(), req.Email, req.Password, requestMeta(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{User: user, Tokens: tokens})
}

// RefreshToken handles POST /api/auth/refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tokens, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tokens)
}

// Logout handles POST /api/auth/logout. The supplied refresh token is revoked.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid refresh token")
		return
	}

	if err := h.accounts.Logout(r.Context(), userID, req.RefreshToken, requestMeta(r)); err != nil {
		HandleAPIError(w, r, err, "Failed to log out")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("user logged out",
		slog.String("user_id", userID.String()))
	shared.RespondWithMessage(w, r, http.StatusOK, LogoutSuccessMessage)
}

// VerifyEmail handles POST /api/auth/verify-email.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accounts.VerifyEmail(r.Context(), req.Token, requestMeta(r)); err != nil {
		HandleAPIError(w, r, err, "Failed to verify email")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, VerifyEmailSuccessMessage)
}

// RequestPasswordReset handles POST /api/auth/password-reset. The response
// never reveals whether the address belongs to an account, and internal
// failures are only logged.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("password reset request failed",
			redact.ErrorAttr(err))
	}
	shared.RespondWithMessage(w, r, http.StatusOK, PasswordResetRequestMessage)
}

// ConfirmPasswordReset handles POST /api/auth/password-reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accounts.ConfirmPasswordReset(r.Context(), req.Token, req.Password, requestMeta(r)); err != nil {
		HandleAPIError(w, r, err, "Failed to reset password")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, PasswordResetSuccessMessage)
}
