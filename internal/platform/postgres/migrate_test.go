package postgres

import (
	"context"
	"testing"

	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectMigrations(t *testing.T) {
	migrations, err := CollectMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 4)

	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].Version, migrations[i-1].Version)
	}
}

func TestMigrate_UnknownCommand(t *testing.T) {
	db, _ := newMockDB(t)
	err := Migrate(context.Background(), db, "sideways", logger.NewTestLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration command")
}
