package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/colloquyhq/colloquy-api/internal/api/shared"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/google/uuid"
)

// NotificationService lists and acknowledges a user's notifications.
type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

// NotificationHandler serves in-app notifications.
type NotificationHandler struct {
	notifications NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications NotificationService, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// List handles GET /api/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	list, err := h.notifications.List(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load notifications")
		return
	}
	if list == nil {
		list = []domain.Notification{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, list)
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.notifications.MarkRead(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to update notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
