package auth

import (
	"context"
	"sync"
	"time"
)

// Revocations stores the ids of revoked refresh tokens.
type Revocations interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocations keeps revoked ids in process memory. Entries lapse when
// the token they describe would have expired.
type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

var _ Revocations = (*MemoryRevocations)(nil)

// NewMemoryRevocations creates an empty MemoryRevocations.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke implements Revocations.
func (m *MemoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.revoked[jti] = m.now().Add(ttl)
	m.mu.Unlock()
	return nil
}

// IsRevoked implements Revocations.
func (m *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.revoked[jti]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.revoked, jti)
		return false, nil
	}
	return true, nil
}

// Purge drops lapsed entries and reports how many were removed.
func (m *MemoryRevocations) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for jti, until := range m.revoked {
		if !now.Before(until) {
			delete(m.revoked, jti)
			removed++
		}
	}
	return removed
}
