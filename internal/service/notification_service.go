package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/colloquyhq/colloquy-api/internal/task"
	"github.com/google/uuid"
)

// DefaultNotificationLimit caps how many notifications are listed.
const DefaultNotificationLimit = 50

// NotificationService manages in-app notifications.
type NotificationService struct {
	notifications store.NotificationStore
	userStore     store.UserStore
	logger        *slog.Logger
}

var _ task.WelcomeNotifier = (*NotificationService)(nil)

// NewNotificationService creates a NotificationService.
func NewNotificationService(notifications store.NotificationStore, userStore store.UserStore, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		userStore:     userStore,
		logger:        logger.With("component", "notification_service"),
	}
}

// CreateWelcomeNotification greets a newly registered user.
func (s *NotificationService) CreateWelcomeNotification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	n, err := domain.WelcomeNotification(user)
	if err != nil {
		return err
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("welcome notification created",
		slog.String("user_id", userID.String()))
	return nil
}

// List returns the newest notifications of userID.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	list, err := s.notifications.ListByUser(ctx, userID, DefaultNotificationLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

// MarkRead marks one of userID's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.notifications.MarkRead(ctx, id, userID)
}
