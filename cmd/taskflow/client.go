package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Task mirrors the server's task representation.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// apiError is returned for 4xx/5xx responses.
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
}

// do sends a request with an optional JSON body and decodes the JSON
// response into v (may be nil).
func (c *Client) do(method, path string, body, v any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		var eb struct {
			Detail string `json:"detail"`
		}
		detail := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &eb) == nil && eb.Detail != "" {
			detail = eb.Detail
		}
		return &apiError{Status: resp.StatusCode, Detail: detail}
	}
	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// Health returns the server's reported status.
func (c *Client) Health() (string, error) {
	var out map[string]string
	if err := c.do(http.MethodGet, "/health", nil, &out); err != nil {
		return "", err
	}
	return out["status"], nil
}

// ListTasks lists tasks, optionally filtered.
func (c *Client) ListTasks(status, priority string) ([]Task, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if priority != "" {
		q.Set("priority", priority)
	}
	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var tasks []Task
	if err := c.do(http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(id string) (*Task, error) {
	var t Task
	if err := c.do(http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a task from the supplied fields.
func (c *Client) CreateTask(fields map[string]string) (*Task, error) {
	var t Task
	if err := c.do(http.MethodPost, "/tasks", fields, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask sends a partial update.
func (c *Client) UpdateTask(id string, fields map[string]string) (*Task, error) {
	var t Task
	if err := c.do(http.MethodPut, "/tasks/"+url.PathEscape(id), fields, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(id string) error {
	return c.do(http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}
