package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// AUTOINCREMENT keeps SQLite from handing out the id of a deleted row again.
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL CHECK (status IN ('todo', 'in_progress', 'done')),
	priority    TEXT NOT NULL CHECK (priority IN ('low', 'medium', 'high')),
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);
`

const selectColumns = `id, title, description, status, priority, created_at, updated_at`

// SQLiteStore persists tasks in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the tasks table exists. The caller is responsible for calling Close.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Create inserts t and sets its ID, CreatedAt, and UpdatedAt.
func (s *SQLiteStore) Create(ctx context.Context, t *Task) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, status, priority, created_at, updated_at)
		VALUES (?,?,?,?,?,?)`,
		t.Title, t.Description, string(t.Status), string(t.Priority), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// Get retrieves a task by ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// List returns tasks matching the filter ordered by ID.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Task, error) {
	q := strings.Builder{}
	q.WriteString("SELECT " + selectColumns + " FROM tasks WHERE 1=1")
	args := []any{}

	if filter.Status != nil {
		q.WriteString(" AND status=?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		q.WriteString(" AND priority=?")
		args = append(args, string(*filter.Priority))
	}
	q.WriteString(" ORDER BY id ASC")

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update reads, mutates and writes the task inside one transaction.
func (s *SQLiteStore) Update(ctx context.Context, id int64, mutate func(*Task) error) (*Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}

	createdAt := t.CreatedAt
	if err := mutate(t); err != nil {
		return nil, err
	}
	t.ID = id
	t.CreatedAt = createdAt
	t.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks SET title=?, description=?, status=?, priority=?, updated_at=?
		WHERE id=?`,
		t.Title, t.Description, string(t.Status), string(t.Priority), t.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return t, nil
}

// Delete removes a task by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound(id)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var status, priority string

	err := s.Scan(
		&t.ID, &t.Title, &t.Description, &status, &priority,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	t.Priority = Priority(priority)
	return &t, nil
}
