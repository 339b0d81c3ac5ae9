package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotificationWelcome NotificationKind = "welcome"
	NotificationSystem  NotificationKind = "system"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification creates an unread notification.
func NewNotification(userID uuid.UUID, kind NotificationKind, title, body string) (*Notification, error) {
	if userID == uuid.Nil {
		return nil, NewValidationError("user_id", "user ID cannot be empty", ErrInvalidID)
	}
	if title == "" {
		return nil, NewValidationError("title", "title cannot be empty", ErrEmptyContent)
	}
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// WelcomeNotification builds the notification sent after registration.
func WelcomeNotification(u *User) (*Notification, error) {
	name := u.FirstName
	if name == "" {
		name = u.Username
	}
	return NewNotification(u.ID, NotificationWelcome,
		"Welcome to Colloquy!",
		"Hi "+name+", thanks for joining. Ask your first question in the chat to get started.")
}
