package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunOnce(t *testing.T) {
	var order []string
	jobs := []Job{
		{Name: "first", Run: func(context.Context) error { order = append(order, "first"); return errors.New("fail") }},
		{Name: "second", Run: func(context.Context) error { order = append(order, "second"); return nil }},
	}
	s, err := NewScheduler("@every 1h", jobs, logger.NewTestLogger(t))
	require.NoError(t, err)

	failed := s.RunOnce(context.Background())

	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler("not a schedule", nil, logger.NewTestLogger(t))
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler("@every 1h", nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	s.Start()
	s.Stop()
}

func TestPruneFinishedTasks(t *testing.T) {
	store := NewMockTaskStore()
	old, recent, pending := uuid.New(), uuid.New(), uuid.New()
	store.Put(Record{ID: old, Status: TaskStatusCompleted, UpdatedAt: time.Now().Add(-48 * time.Hour)})
	store.Put(Record{ID: recent, Status: TaskStatusFailed, UpdatedAt: time.Now()})
	store.Put(Record{ID: pending, Status: TaskStatusPending, UpdatedAt: time.Now().Add(-48 * time.Hour)})

	job := PruneFinishedTasks(store, 24*time.Hour)
	require.NoError(t, job.Run(context.Background()))

	_, ok := store.Get(old)
	assert.False(t, ok)
	_, ok = store.Get(recent)
	assert.True(t, ok)
	_, ok = store.Get(pending)
	assert.True(t, ok)
}
