package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTaskStore is an in-memory TaskStore for tests.
type MockTaskStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]*Record
	now     func() time.Time

	SaveFn         func(ctx context.Context, task Task) error
	UpdateStatusFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
}

// NewMockTaskStore creates a new MockTaskStore with default implementations
func NewMockTaskStore() *MockTaskStore {
	s := &MockTaskStore{
		records: make(map[uuid.UUID]*Record),
		now:     time.Now,
	}
	s.SaveFn = s.save
	s.UpdateStatusFn = s.updateStatus
	return s
}

func (s *MockTaskStore) save(_ context.Context, task Task) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := s.now()
	s.records[task.ID()] = &Record{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   task.Payload(),
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *MockTaskStore) updateStatus(_ context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	rec, ok := s.records[taskID]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = s.now()
	return nil
}

// Put stores rec directly, e.g. to simulate rows left by a previous process.
func (s *MockTaskStore) Put(rec Record) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now()
	}
	s.records[rec.ID] = &rec
}

// Get returns a copy of the stored record.
func (s *MockTaskStore) Get(id uuid.UUID) (Record, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// SaveTask persists a task to the mock store
func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	return s.SaveFn(ctx, task)
}

// UpdateTaskStatus updates the status of a task in the mock store
func (s *MockTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	return s.UpdateStatusFn(ctx, taskID, status, errorMsg)
}

// GetPendingTasks retrieves all tasks with "pending" status
func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]Record, error) {
	return s.filter(func(r *Record) bool { return r.Status == TaskStatusPending }), nil
}

// GetProcessingTasks retrieves tasks with "processing" status
func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error) {
	now := s.now()
	return s.filter(func(r *Record) bool {
		return r.Status == TaskStatusProcessing &&
			(olderThan == 0 || now.Sub(r.UpdatedAt) > olderThan)
	}), nil
}

// DeleteFinishedBefore removes completed and failed records updated before the cutoff.
func (s *MockTaskStore) DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var n int64
	for id, r := range s.records {
		finished := r.Status == TaskStatusCompleted || r.Status == TaskStatusFailed
		if finished && r.UpdatedAt.Before(before) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// WithTx returns the same store; the mock has no transactions.
func (s *MockTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return s
}

func (s *MockTaskStore) filter(keep func(*Record) bool) []Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var out []Record
	for _, r := range s.records {
		if keep(r) {
			out = append(out, *r)
		}
	}
	return out
}
