package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Task statuses follow the broker lifecycle. A task id that was never seen
// reports PENDING, matching how result backends treat unknown ids.
const (
	TaskPending = "PENDING"
	TaskStarted = "STARTED"
	TaskSuccess = "SUCCESS"
	TaskFailure = "FAILURE"
)

const taskStateKey = "task:%s"

// Task is one unit of background work on the queue.
type Task struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// TaskState is the broker-side status and result of a task.
type TaskState struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Queue is a redis-list task queue: producers LPUSH, workers BRPOP. Task
// state lives alongside the queue in the same redis, so a restarted worker
// picks up where the previous one stopped.
type Queue struct {
	client redis.Cmdable
	name   string

	// newID generates task ids. Swappable in tests.
	newID func() string
}

// NewQueue creates a queue on the named redis list.
func NewQueue(client redis.Cmdable, name string) *Queue {
	return &Queue{
		client: client,
		name:   name,
		newID:  func() string { return uuid.New().String() },
	}
}

// Enqueue serializes the payload, records the task as PENDING and pushes it.
// Returns the opaque task id used for status lookups.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal task payload: %w", err)
	}

	task := Task{
		ID:      q.newID(),
		Name:    name,
		Payload: data,
	}
	encoded, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	if err := q.SetState(ctx, task.ID, TaskState{Status: TaskPending}); err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, q.name, encoded).Err(); err != nil {
		return "", fmt.Errorf("enqueue task: %w", err)
	}
	return task.ID, nil
}

// Dequeue blocks for up to timeout waiting for a task. Returns redis.Nil
// when the queue stayed empty.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (Task, error) {
	vals, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		return Task{}, err
	}
	// BRPOP returns [key, value].
	if len(vals) != 2 {
		return Task{}, fmt.Errorf("unexpected BRPOP reply length %d", len(vals))
	}
	var task Task
	if err := json.Unmarshal([]byte(vals[1]), &task); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	return task, nil
}

// SetState writes the task's status/result record.
func (q *Queue) SetState(ctx context.Context, taskID string, state TaskState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal task state: %w", err)
	}
	key := fmt.Sprintf(taskStateKey, taskID)
	if err := q.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("store task state: %w", err)
	}
	return nil
}

// State reads a task's status/result record. Unknown ids report PENDING.
func (q *Queue) State(ctx context.Context, taskID string) (TaskState, error) {
	key := fmt.Sprintf(taskStateKey, taskID)
	data, err := q.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return TaskState{Status: TaskPending}, nil
	}
	if err != nil {
		return TaskState{}, fmt.Errorf("load task state: %w", err)
	}
	var state TaskState
	if err := json.Unmarshal(data, &state); err != nil {
		return TaskState{}, fmt.Errorf("decode task state: %w", err)
	}
	return state, nil
}
