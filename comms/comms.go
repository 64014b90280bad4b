// Package comms provides the in-process bus that fans out task change events.
package comms

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of change an event records.
type EventType string

const (
	TypeTaskCreated EventType = "task.created"
	TypeTaskUpdated EventType = "task.updated"
	TypeTaskDeleted EventType = "task.deleted"
)

// Event records one successful mutation of a task.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TaskID    int64     `json:"task_id"`
	Payload   any       `json:"payload,omitempty"` // task snapshot after the change
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps a fresh event with a random ID and the current time.
func NewEvent(typ EventType, taskID int64, payload any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      typ,
		TaskID:    taskID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Handler processes a published event.
type Handler func(ctx context.Context, ev *Event) error

// Bus distributes task events to subscribers and keeps a short history.
type Bus interface {
	// Publish delivers ev to every subscriber.
	Publish(ctx context.Context, ev *Event) error

	// Subscribe registers a handler for all events.
	// Returns an unsubscribe function.
	Subscribe(handler Handler) (unsubscribe func())

	// History returns up to limit of the most recent events, oldest first.
	History(limit int) ([]*Event, error)
}
