package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ingestion task outcomes.
const (
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

const (
	taskKeyPrefix = "task:"
	taskStatusTTL = 7 * 24 * time.Hour
)

// TaskStatus records the outcome of one ingestion task, keyed by task id.
type TaskStatus struct {
	TaskID     string    `json:"task_id"`
	FilePath   string    `json:"file_path"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// TaskStatusRepository persists ingestion outcomes so a dropped task can be
// attributed to its root cause after the fact.
type TaskStatusRepository interface {
	Record(ctx context.Context, status TaskStatus) error
	Get(ctx context.Context, taskID string) (*TaskStatus, error)
}

// RedisTaskStatusRepository implements TaskStatusRepository on Redis.
type RedisTaskStatusRepository struct {
	client *redis.Client
}

// NewRedisTaskStatusRepository creates a Redis-backed task status repository.
func NewRedisTaskStatusRepository(client *redis.Client) *RedisTaskStatusRepository {
	return &RedisTaskStatusRepository{client: client}
}

// Record stores the task outcome with a bounded retention.
func (r *RedisTaskStatusRepository) Record(ctx context.Context, status TaskStatus) error {
	if status.FinishedAt.IsZero() {
		status.FinishedAt = time.Now()
	}

	data, err := json.Marshal(status)
	if err != nil {
		return NewRepositoryError("record_task_status", err)
	}

	if err := r.client.Set(ctx, taskKeyPrefix+status.TaskID, data, taskStatusTTL).Err(); err != nil {
		return NewRepositoryError("record_task_status", err)
	}

	return nil
}

// Get returns the recorded outcome, or ErrNotFound for an unknown task id.
func (r *RedisTaskStatusRepository) Get(ctx context.Context, taskID string) (*TaskStatus, error) {
	data, err := r.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewRepositoryError("get_task_status", err)
	}

	var status TaskStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, NewRepositoryError("get_task_status", err)
	}

	return &status, nil
}
