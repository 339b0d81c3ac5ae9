package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/google/uuid"
)

// MockPasswordResetStore is an in-memory store.PasswordResetStore.
type MockPasswordResetStore struct {
	mu     sync.Mutex
	Tokens []*domain.PasswordResetToken
}

// Create implements store.PasswordResetStore.
func (m *MockPasswordResetStore) Create(_ context.Context, t *domain.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.Tokens = append(m.Tokens, &cp)
	return nil
}

// GetValid implements store.PasswordResetStore.
func (m *MockPasswordResetStore) GetValid(
	_ context.Context,
	token string,
	notBefore time.Time,
) (*domain.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Tokens {
		if t.Token == token && !t.IsUsed && !t.CreatedAt.Before(notBefore) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrResetTokenNotFound
}

// MarkUsed implements store.PasswordResetStore.
func (m *MockPasswordResetStore) MarkUsed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Tokens {
		if t.ID == id && !t.IsUsed {
			t.IsUsed = true
			return nil
		}
	}
	return store.ErrResetTokenNotFound
}

// DeleteExpired implements store.PasswordResetStore.
func (m *MockPasswordResetStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Tokens[:0]
	var removed int64
	for _, t := range m.Tokens {
		if t.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	m.Tokens = kept
	return removed, nil
}

// WithTx implements store.PasswordResetStore. The mock ignores transactions.
func (m *MockPasswordResetStore) WithTx(*sql.Tx) store.PasswordResetStore {
	return m
}

// MockAnalyticsStore is an in-memory store.AnalyticsStore.
type MockAnalyticsStore struct {
	CreateErr error

	mu     sync.Mutex
	Events []*domain.AnalyticsEvent
}

// Create implements store.AnalyticsStore.
func (m *MockAnalyticsStore) Create(_ context.Context, e *domain.AnalyticsEvent) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}

// Types returns the recorded event types in order.
func (m *MockAnalyticsStore) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.EventType)
	}
	return out
}

// MockNotificationStore is an in-memory store.NotificationStore.
type MockNotificationStore struct {
	mu            sync.Mutex
	Notifications []*domain.Notification
}

// Create implements store.NotificationStore.
func (m *MockNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, n)
	return nil
}

// ListByUser implements store.NotificationStore.
func (m *MockNotificationStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Notification{}
	for _, n := range m.Notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkRead implements store.NotificationStore.
func (m *MockNotificationStore) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.Notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return store.ErrNotificationNotFound
}
