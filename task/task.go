// Package task defines the task model, its validation rules and persistence.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// DefaultStatus is assigned on create when no status is supplied.
const DefaultStatus = StatusTodo

// Statuses lists every valid Status in workflow order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("invalid status %q: must be one of todo, in_progress, done", raw),
		}
	}
	return s, nil
}

// Priority determines how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is assigned on create when no priority is supplied.
const DefaultPriority = PriorityMedium

// Priorities lists every valid Priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts a raw string into a Priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", &ValidationError{
			Field:   "priority",
			Message: fmt.Sprintf("invalid priority %q: must be one of low, medium, high", raw),
		}
	}
	return p, nil
}

// Task is a single unit of tracked work.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy of t that shares no state with it.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}

// Filter controls which tasks are returned by List. Nil fields match everything;
// set fields are combined with AND.
type Filter struct {
	Status   *Status   `json:"status,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
}

// Match reports whether t satisfies every set field of f.
func (f Filter) Match(t *Task) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	return true
}

// ErrNotFound is returned when a referenced task id does not exist.
var ErrNotFound = errors.New("task not found")

// notFound wraps ErrNotFound with the offending id.
func notFound(id int64) error {
	return fmt.Errorf("task %d: %w", id, ErrNotFound)
}

// ValidationError reports a payload field that violates its constraint.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Store persists and retrieves tasks. Implementations must be safe for
// concurrent use and must never reuse an id.
type Store interface {
	// Create assigns t a fresh ID and timestamps and persists it.
	Create(ctx context.Context, t *Task) error

	// Get retrieves a task by ID.
	Get(ctx context.Context, id int64) (*Task, error)

	// List returns tasks matching the filter in insertion order.
	List(ctx context.Context, filter Filter) ([]*Task, error)

	// Update runs mutate against a copy of the stored task and persists the
	// result atomically. mutate is not called when the task does not exist;
	// if it returns an error nothing is written.
	Update(ctx context.Context, id int64, mutate func(*Task) error) (*Task, error)

	// Delete removes a task by ID.
	Delete(ctx context.Context, id int64) error

	// Close releases any resources held by the store.
	Close() error
}
