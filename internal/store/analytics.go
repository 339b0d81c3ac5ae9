package store

import (
	"context"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/google/uuid"
)

// AnalyticsStore persists analytics events.
type AnalyticsStore interface {
	Create(ctx context.Context, event *domain.AnalyticsEvent) error
}

// NotificationStore persists per-user notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error

	// ListByUser returns up to limit notifications, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)

	// MarkRead flags a notification as read. Returns ErrNotificationNotFound
	// when it does not exist or belongs to another user.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}
