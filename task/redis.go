package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic-lock retries in RedisStore.Update.
const maxTxRetries = 16

// RedisStore persists tasks in Redis. Each task is a JSON value under
// <prefix>:task:<id>; <prefix>:ids is a sorted set scored by id that keeps
// insertion order; <prefix>:seq is the id counter.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client. An empty prefix defaults to "taskflow".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if client == nil {
		panic("task.NewRedisStore: client is nil")
	}
	if prefix == "" {
		prefix = "taskflow"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) seqKey() string          { return s.prefix + ":seq" }
func (s *RedisStore) idsKey() string          { return s.prefix + ":ids" }
func (s *RedisStore) taskKey(id int64) string { return fmt.Sprintf("%s:task:%d", s.prefix, id) }

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

// Create allocates an ID with INCR and writes the task and its index entry
// in one MULTI block.
func (s *RedisStore) Create(ctx context.Context, t *Task) error {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("allocate task id: %w", err)
	}
	now := time.Now().UTC()
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.taskKey(id), data, 0)
		pipe.ZAdd(ctx, s.idsKey(), redis.Z{Score: float64(id), Member: strconv.FormatInt(id, 10)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Get retrieves a task by ID.
func (s *RedisStore) Get(ctx context.Context, id int64) (*Task, error) {
	data, err := s.client.Get(ctx, s.taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return decodeTask(data)
}

// List returns tasks matching filter in ID order.
func (s *RedisStore) List(ctx context.Context, filter Filter) ([]*Task, error) {
	members, err := s.client.ZRange(ctx, s.idsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list task ids: %w", err)
	}
	tasks := []*Task{}
	if len(members) == 0 {
		return tasks, nil
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("list tasks: bad id %q in index: %w", m, err)
		}
		keys = append(keys, s.taskKey(id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // deleted between ZRANGE and MGET
		}
		t, err := decodeTask([]byte(raw))
		if err != nil {
			return nil, err
		}
		if filter.Match(t) {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// Update runs mutate under WATCH on the task key and retries when another
// client changes the key before EXEC.
func (s *RedisStore) Update(ctx context.Context, id int64, mutate func(*Task) error) (*Task, error) {
	key := s.taskKey(id)
	var updated *Task

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return notFound(id)
		}
		if err != nil {
			return fmt.Errorf("get task %d: %w", id, err)
		}
		t, err := decodeTask(data)
		if err != nil {
			return err
		}
		createdAt := t.CreatedAt
		if err := mutate(t); err != nil {
			return err
		}
		t.ID = id
		t.CreatedAt = createdAt
		t.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal task: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = t
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update task %d: too much contention", id)
}

// Delete removes the task and its index entry atomically.
func (s *RedisStore) Delete(ctx context.Context, id int64) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.taskKey(id))
		pipe.ZRem(ctx, s.idsKey(), strconv.FormatInt(id, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if del.Val() == 0 {
		return notFound(id)
	}
	return nil
}

func decodeTask(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}
