package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/redact"
	"github.com/google/uuid"
)

// EmailPayload identifies the recipient and the token embedded in the link.
type EmailPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Token  string    `json:"token"`
}

func (p EmailPayload) validate() error {
	if p.UserID == uuid.Nil {
		return errors.New("email payload user ID cannot be empty")
	}
	if p.Token == "" {
		return errors.New("email payload token cannot be empty")
	}
	return nil
}

// WelcomePayload identifies the newly registered user.
type WelcomePayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// AccountMailer sends account emails.
type AccountMailer interface {
	SendVerificationEmail(ctx context.Context, userID uuid.UUID, token string) error
	SendPasswordResetEmail(ctx context.Context, userID uuid.UUID, token string) error
}

// WelcomeNotifier creates the notification shown after registration.
type WelcomeNotifier interface {
	CreateWelcomeNotification(ctx context.Context, userID uuid.UUID) error
}

// EventRecorder persists analytics events.
type EventRecorder interface {
	Record(ctx context.Context, event *domain.AnalyticsEvent) error
}

// VerificationEmailFactory builds send_verification_email tasks.
func VerificationEmailFactory(mailer AccountMailer) Factory {
	return payloadFactory(TypeVerificationEmail, EmailPayload.validate,
		func(ctx context.Context, p EmailPayload) error {
			return mailer.SendVerificationEmail(ctx, p.UserID, p.Token)
		})
}

// PasswordResetEmailFactory builds send_password_reset_email tasks.
func PasswordResetEmailFactory(mailer AccountMailer) Factory {
	return payloadFactory(TypePasswordResetEmail, EmailPayload.validate,
		func(ctx context.Context, p EmailPayload) error {
			return mailer.SendPasswordResetEmail(ctx, p.UserID, p.Token)
		})
}

// WelcomeNotificationFactory builds welcome_notification tasks.
func WelcomeNotificationFactory(notifier WelcomeNotifier) Factory {
	return payloadFactory(TypeWelcomeNotification,
		func(p WelcomePayload) error {
			if p.UserID == uuid.Nil {
				return errors.New("welcome payload user ID cannot be empty")
			}
			return nil
		},
		func(ctx context.Context, p WelcomePayload) error {
			if err := notifier.CreateWelcomeNotification(ctx, p.UserID); err != nil {
				return fmt.Errorf("failed to create welcome notification: %w", err)
			}
			return nil
		})
}

// AnalyticsEventFactory builds analytics_event tasks. Recording failures are
// logged and swallowed so tracking never surfaces as a failed task.
func AnalyticsEventFactory(recorder EventRecorder) Factory {
	return payloadFactory(TypeAnalyticsEvent,
		func(e domain.AnalyticsEvent) error {
			if e.EventType == "" {
				return errors.New("analytics payload event type cannot be empty")
			}
			return nil
		},
		func(ctx context.Context, e domain.AnalyticsEvent) error {
			if err := recorder.Record(ctx, &e); err != nil {
				logger.FromContext(ctx).Warn("failed to record analytics event",
					"event_type", e.EventType,
					redact.ErrorAttr(err))
			}
			return nil
		})
}
