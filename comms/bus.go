package comms

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultHistory is the number of events an InMemoryBus retains when no
// explicit cap is given.
const DefaultHistory = 1000

// InMemoryBus is a thread-safe in-process event bus.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers []handlerEntry
	nextID   int
	history  []*Event
	maxHist  int
}

type handlerEntry struct {
	id      int
	handler Handler
}

// NewInMemoryBus creates an InMemoryBus that keeps the last maxHist events.
// A non-positive maxHist selects DefaultHistory.
func NewInMemoryBus(maxHist int) *InMemoryBus {
	if maxHist <= 0 {
		maxHist = DefaultHistory
	}
	return &InMemoryBus{maxHist: maxHist}
}

// Publish records ev and invokes every subscriber outside the lock.
func (b *InMemoryBus) Publish(ctx context.Context, ev *Event) error {
	b.mu.Lock()
	b.history = append(b.history, ev)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}
	targets := make([]Handler, 0, len(b.handlers))
	for _, e := range b.handlers {
		targets = append(targets, e.handler)
	}
	b.mu.Unlock()

	var errs []error
	for _, h := range targets {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish %s: %d handler error(s): %w", ev.Type, len(errs), errors.Join(errs...))
	}
	return nil
}

// Subscribe registers handler for every subsequent event.
// The returned function unsubscribes the handler and is safe to call twice.
func (b *InMemoryBus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, handlerEntry{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		filtered := b.handlers[:0]
		for _, e := range b.handlers {
			if e.id != id {
				filtered = append(filtered, e)
			}
		}
		b.handlers = filtered
	}
}

// History returns the most recent limit events in chronological order.
// A non-positive limit returns the whole retained history.
func (b *InMemoryBus) History(limit int) ([]*Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if limit > 0 && len(b.history) > limit {
		start = len(b.history) - limit
	}
	out := make([]*Event, len(b.history)-start)
	copy(out, b.history[start:])
	return out, nil
}
