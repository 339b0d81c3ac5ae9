package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/colloquyhq/colloquy-api/internal/api/shared"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/platform/storage"
	"github.com/colloquyhq/colloquy-api/internal/service"
	"github.com/google/uuid"
)

// AvatarFormField is the multipart field carrying the avatar image.
const AvatarFormField = "avatar"

// multipartOverhead is the allowance for multipart headers on top of the file.
const multipartOverhead = 64 << 10

// Avatar upload error messages.
const (
	avatarMissingMessage  = "No avatar file provided"
	avatarTypeMessage     = "File type not allowed. Use JPEG, PNG, GIF, or WebP."
	avatarTooLargeMessage = "File size exceeds 5MB limit"
)

// AvatarUploader stores a new avatar for a user.
type AvatarUploader interface {
	UpdateAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, meta service.RequestMeta) (*domain.User, error)
}

// ProfileHandler serves the authenticated user's profile.
type ProfileHandler struct {
	accounts       AccountService
	avatars        AvatarUploader
	maxAvatarBytes int64
	logger         *slog.Logger
}

// NewProfileHandler creates a ProfileHandler. maxAvatarBytes bounds uploads.
func NewProfileHandler(
	accounts AccountService,
	avatars AvatarUploader,
	maxAvatarBytes int64,
	logger *slog.Logger,
) *ProfileHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ProfileHandler")
	}
	return &ProfileHandler{
		accounts:       accounts,
		avatars:        avatars,
		maxAvatarBytes: maxAvatarBytes,
		logger:         logger.With(slog.String("component", "profile_handler")),
	}
}

// GetProfile handles GET /api/profile.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load profile")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/profile.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), userID, req.toDomain(), requestMeta(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update profile")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// UploadAvatar handles POST /api/profile/avatar with a multipart "avatar" file.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAvatarBytes+multipartOverhead)
	file, header, err := r.FormFile(AvatarFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.RespondWithError(w, r, http.StatusBadRequest, avatarTooLargeMessage)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, avatarMissingMessage, err)
		return
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.Warn("failed to close avatar upload", slog.String("error", cerr.Error()))
		}
	}()

	if header.Size > h.maxAvatarBytes {
		shared.RespondWithError(w, r, http.StatusBadRequest, avatarTooLargeMessage)
		return
	}

	user, err := h.avatars.UpdateAvatar(r.Context(), userID, file, requestMeta(r))
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrEmptyFile):
		shared.RespondWithError(w, r, http.StatusBadRequest, avatarMissingMessage)
		return
	case errors.Is(err, storage.ErrUnsupportedType):
		shared.RespondWithError(w, r, http.StatusBadRequest, avatarTypeMessage)
		return
	case errors.Is(err, storage.ErrFileTooLarge):
		shared.RespondWithError(w, r, http.StatusBadRequest, avatarTooLargeMessage)
		return
	default:
		HandleAPIError(w, r, err, "Failed to update avatar")
		return
	}

	log.Debug("avatar updated", slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}
