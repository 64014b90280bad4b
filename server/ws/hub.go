// Package ws implements a Server-Sent Events (SSE) hub for real-time task updates.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/GoCodeAlone/taskflow/comms"
)

// client represents a single SSE connection.
type client struct {
	ch chan []byte
}

// Hub manages SSE client connections and broadcasts task events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a Hub ready to accept connections.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Close ends every open stream and makes new streams return at once.
// It is safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Attach subscribes the hub to bus. The returned function detaches it.
func (h *Hub) Attach(bus comms.Bus) (detach func()) {
	return bus.Subscribe(func(_ context.Context, ev *comms.Event) error {
		h.Broadcast(ev)
		return nil
	})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(ev *comms.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("hub broadcast marshal", slog.Any("err", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.ch <- data:
		default:
			// slow client: drop rather than block
		}
	}
}

// ServeHTTP handles an SSE connection request.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	c := &client{ch: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.ch)
	}()

	// Send connected event
	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n") //nolint:errcheck
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case data, ok := <-c.ch:
			if !ok {
				return
			}
			// Each SSE "data:" line must not contain newlines
			for _, line := range strings.Split(string(data), "\n") {
				fmt.Fprintf(w, "data: %s\n", line) //nolint:errcheck
			}
			fmt.Fprintln(w) //nolint:errcheck
			flusher.Flush()
		}
	}
}
