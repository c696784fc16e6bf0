package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity scans the ledger for entries whose lines do not balance.
	TaskGLIntegrity = "ledger:gl_integrity"
	// TaskStaleShifts reports cash shifts left open too long.
	TaskStaleShifts = "pos:stale_shifts"
)

// StaleShiftsPayload configures the stale shift scan.
type StaleShiftsPayload struct {
	MaxAgeSeconds int64 `json:"max_age_seconds"`
}

// MaxAge returns the payload threshold, falling back when unset.
func (p StaleShiftsPayload) MaxAge(fallback time.Duration) time.Duration {
	if p.MaxAgeSeconds <= 0 {
		return fallback
	}
	return time.Duration(p.MaxAgeSeconds) * time.Second
}

// NewGLIntegrityTask constructs the ledger integrity task.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGLIntegrity, nil, asynq.Queue(QueueDefault))
}

// NewStaleShiftsTask constructs the stale shift scan task. A zero maxAge
// defers to the worker's configured threshold.
func NewStaleShiftsTask(maxAge time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(StaleShiftsPayload{MaxAgeSeconds: int64(maxAge / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleShifts, body, asynq.Queue(QueueDefault)), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueGLIntegrity queues an on-demand integrity scan.
func (c *Client) EnqueueGLIntegrity(ctx context.Context) (*asynq.TaskInfo, error) {
	return c.client.EnqueueContext(ctx, NewGLIntegrityTask(), asynq.TaskID(uuid.NewString()), asynq.MaxRetry(3))
}

// EnqueueStaleShifts queues an on-demand stale shift scan.
func (c *Client) EnqueueStaleShifts(ctx context.Context, maxAge time.Duration) (*asynq.TaskInfo, error) {
	task, err := NewStaleShiftsTask(maxAge)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.TaskID(uuid.NewString()), asynq.MaxRetry(3))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
