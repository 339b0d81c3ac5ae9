package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/google/uuid"
)

// HashPrefix marks passwords "hashed" by MockUserStore. Pair it with
// PrefixVerifier to check them.
const HashPrefix = "hashed:"

// MockUserStore is an in-memory store.UserStore. Function fields override the
// default behavior when set.
type MockUserStore struct {
	CreateFn     func(ctx context.Context, user *domain.User) error
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	GetByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateFn     func(ctx context.Context, user *domain.User) error

	mu    sync.Mutex
	Users map[uuid.UUID]*domain.User
}

// NewMockUserStore creates an empty store.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{Users: make(map[uuid.UUID]*domain.User)}
}

// Add stores a user as is, without hashing.
func (m *MockUserStore) Add(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[u.ID] = u
}

// Create implements store.UserStore.
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
		if existing.Username == user.Username {
			return store.ErrUsernameExists
		}
	}
	user.HashedPassword = HashPrefix + user.Password
	user.Password = ""
	m.Users[user.ID] = user
	return nil
}

// GetByID implements store.UserStore.
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByEmail implements store.UserStore.
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return m.find(func(u *domain.User) bool { return u.Email == domain.NormalizeEmail(email) })
}

// GetByVerificationToken implements store.UserStore.
func (m *MockUserStore) GetByVerificationToken(_ context.Context, token string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool {
		return token != "" && u.EmailVerificationToken == token
	})
}

func (m *MockUserStore) find(match func(*domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// Update implements store.UserStore.
func (m *MockUserStore) Update(ctx context.Context, user *domain.User) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	cp := *user
	if cp.Password != "" {
		cp.HashedPassword = HashPrefix + cp.Password
		cp.Password = ""
	}
	m.Users[user.ID] = &cp
	return nil
}

// RecordLogin implements store.UserStore.
func (m *MockUserStore) RecordLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.RecordLogin(at)
	return nil
}

// WithTx implements store.UserStore. The mock ignores transactions.
func (m *MockUserStore) WithTx(*sql.Tx) store.UserStore {
	return m
}
