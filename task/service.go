package task

import (
	"context"
	"log/slog"

	"github.com/GoCodeAlone/taskflow/comms"
)

// Service enforces the task CRUD contract on top of a Store and announces
// successful mutations on an optional event bus.
type Service struct {
	store  Store
	bus    comms.Bus
	logger *slog.Logger
}

// NewService creates a Service. bus may be nil; logger defaults to slog.Default.
func NewService(store Store, bus comms.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, bus: bus, logger: logger}
}

// Create validates p, fills defaults and persists a new task.
func (s *Service) Create(ctx context.Context, p Patch) (*Task, error) {
	t, err := p.NewTask()
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Debug("task created", slog.Int64("id", t.ID), slog.String("status", string(t.Status)))
	s.publish(ctx, comms.TypeTaskCreated, t.ID, t)
	return t, nil
}

// Get returns the task with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*Task, error) {
	return s.store.Get(ctx, id)
}

// List returns every task that matches filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Task, error) {
	tasks, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	return tasks, nil
}

// Update merges p onto the task with the given id. A missing task yields
// ErrNotFound regardless of whether p is valid.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (*Task, error) {
	t, err := s.store.Update(ctx, id, func(cur *Task) error {
		if err := p.Validate(); err != nil {
			return err
		}
		p.Apply(cur)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("task updated", slog.Int64("id", id))
	s.publish(ctx, comms.TypeTaskUpdated, id, t)
	return t, nil
}

// Delete removes the task with the given id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("task deleted", slog.Int64("id", id))
	s.publish(ctx, comms.TypeTaskDeleted, id, nil)
	return nil
}

// publish never fails the caller: the mutation has already been committed.
func (s *Service) publish(ctx context.Context, typ comms.EventType, id int64, t *Task) {
	if s.bus == nil {
		return
	}
	var payload any
	if t != nil {
		payload = t.Clone()
	}
	if err := s.bus.Publish(ctx, comms.NewEvent(typ, id, payload)); err != nil {
		s.logger.Warn("publish task event", slog.String("type", string(typ)), slog.Int64("id", id), slog.Any("err", err))
	}
}
