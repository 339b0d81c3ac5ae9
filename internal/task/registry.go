package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownTaskType is returned when no factory is registered for a type.
var ErrUnknownTaskType = errors.New("unknown task type")

// Factory builds a task of one type from its ID and serialized payload.
type Factory func(id uuid.UUID, payload []byte) (Task, error)

// Registry maps task types to the factories that rebuild them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs the factory for taskType, replacing any previous one.
func (r *Registry) Register(taskType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[taskType] = f
}

// Build creates a task of taskType with the given ID from payload.
func (r *Registry) Build(taskType string, id uuid.UUID, payload []byte) (Task, error) {
	r.mu.RLock()
	f, ok := r.factories[taskType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}

	t, err := f(id, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s task: %w", taskType, err)
	}
	return t, nil
}

// Rebuild recreates the task stored in rec, keeping its ID.
func (r *Registry) Rebuild(rec Record) (Task, error) {
	return r.Build(rec.Type, rec.ID, rec.Payload)
}

// Types lists the registered task types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
