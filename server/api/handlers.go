// Package api implements the TaskFlow REST handlers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoCodeAlone/taskflow/comms"
	"github.com/GoCodeAlone/taskflow/task"
)

// maxBodyBytes caps request payloads.
const maxBodyBytes = 1 << 20

// WelcomeMessage is returned by GET /.
const WelcomeMessage = "Welcome to TaskFlow API"

// Error codes carried in the "code" field of error bodies.
const (
	CodeValidation = "validation_error"
	CodeNotFound   = "not_found"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Tasks   *task.Service
	Bus     comms.Bus
	Logger  *slog.Logger
	Version string
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /health", h.health)

	mux.HandleFunc("GET /tasks", h.listTasks)
	mux.HandleFunc("POST /tasks", h.createTask)
	mux.HandleFunc("GET /tasks/{id}", h.getTask)
	mux.HandleFunc("PUT /tasks/{id}", h.updateTask)
	mux.HandleFunc("PATCH /tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /tasks/{id}", h.deleteTask)

	mux.HandleFunc("GET /events/history", h.eventHistory)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
	Field  string `json:"field,omitempty"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorBody{Detail: detail, Code: code})
}

// writeTaskError maps service errors onto status codes.
func (h *Handlers) writeTaskError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *task.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Detail: ve.Message,
			Code:   CodeValidation,
			Field:  ve.Field,
		})
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "Task not found")
	default:
		h.logger().Error("task request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// pathID parses the {id} path segment. On failure it writes a 422 and
// returns false.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Detail: "task id must be an integer, got " + strconv.Quote(raw),
			Code:   CodeValidation,
			Field:  "id",
		})
		return 0, false
	}
	return id, true
}

// decodePatch reads and validates a JSON task payload. A missing body or a
// field of the wrong JSON type is a validation failure; only syntactically
// broken JSON is a bad request.
func (h *Handlers) decodePatch(w http.ResponseWriter, r *http.Request) (task.Patch, bool) {
	var raw task.RawPatch
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var ute *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			h.writeTaskError(w, r, &task.ValidationError{Field: "body", Message: "request body is required"})
		case errors.As(err, &ute) && ute.Field != "":
			h.writeTaskError(w, r, &task.ValidationError{Field: ute.Field, Message: ute.Field + " must be a string"})
		case errors.As(err, &ute):
			h.writeTaskError(w, r, &task.ValidationError{Field: "body", Message: "request body must be a JSON object"})
		default:
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		}
		return task.Patch{}, false
	}
	p, err := raw.Decode()
	if err != nil {
		h.writeTaskError(w, r, err)
		return task.Patch{}, false
	}
	return p, true
}

// --- Info handlers ---

func (h *Handlers) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": WelcomeMessage,
		"version": h.Version,
	})
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// --- Task handlers ---

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := task.Filter{}

	if s := q.Get("status"); s != "" {
		st, err := task.ParseStatus(s)
		if err != nil {
			h.writeTaskError(w, r, err)
			return
		}
		filter.Status = &st
	}
	if p := q.Get("priority"); p != "" {
		pr, err := task.ParsePriority(p)
		if err != nil {
			h.writeTaskError(w, r, err)
			return
		}
		filter.Priority = &pr
	}

	tasks, err := h.Tasks.List(r.Context(), filter)
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodePatch(w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Create(r.Context(), p)
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Get(r.Context(), id)
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// updateTask checks existence before decoding so a missing task is a 404
// even when the payload is invalid.
func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.Tasks.Get(r.Context(), id); err != nil {
		h.writeTaskError(w, r, err)
		return
	}
	p, ok := h.decodePatch(w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Update(r.Context(), id, p)
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Tasks.Delete(r.Context(), id); err != nil {
		h.writeTaskError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Event handlers ---

func (h *Handlers) eventHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}
	events := []*comms.Event{}
	if h.Bus != nil {
		hist, err := h.Bus.History(limit)
		if err != nil {
			h.writeTaskError(w, r, err)
			return
		}
		events = append(events, hist...)
	}
	writeJSON(w, http.StatusOK, events)
}
