package task

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps tasks in process memory. Its contents are lost when the
// store is discarded.
type MemoryStore struct {
	mu     sync.RWMutex
	tasks  map[int64]*Task
	order  []int64 // insertion order
	lastID int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[int64]*Task)}
}

// Create assigns the next ID and stores a copy of t.
func (s *MemoryStore) Create(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	now := time.Now().UTC()
	t.ID = s.lastID
	t.CreatedAt = now
	t.UpdatedAt = now

	s.tasks[t.ID] = t.Clone()
	s.order = append(s.order, t.ID)
	return nil
}

// Get returns a copy of the task with the given ID.
func (s *MemoryStore) Get(_ context.Context, id int64) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, notFound(id)
	}
	return t.Clone(), nil
}

// List returns copies of the tasks matching filter in insertion order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		t := s.tasks[id]
		if filter.Match(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// Update applies mutate to a copy of the stored task and swaps it in on success.
func (s *MemoryStore) Update(_ context.Context, id int64, mutate func(*Task) error) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[id]
	if !ok {
		return nil, notFound(id)
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = id
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	s.tasks[id] = next
	return next.Clone(), nil
}

// Delete removes the task with the given ID.
func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return notFound(id)
	}
	delete(s.tasks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
