package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocations(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryRevocations()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Revoke(ctx, "a", time.Hour))
	require.NoError(t, m.Revoke(ctx, "b", 2*time.Hour))
	require.NoError(t, m.Revoke(ctx, "expired", 0))

	revoked, err := m.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = m.IsRevoked(ctx, "expired")
	assert.False(t, revoked)

	now = now.Add(90 * time.Minute)
	revoked, _ = m.IsRevoked(ctx, "a")
	assert.False(t, revoked)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, m.Purge())
}
