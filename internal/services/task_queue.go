package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/creditgate/creditgate/internal/config"
	"github.com/creditgate/creditgate/pkg/logger"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeSettlement = "billing:settle"

	// settlementRetryDelay spaces out re-attempts so an operator has time
	// to allocate credits before the next try.
	settlementRetryDelay = 5 * time.Minute
	settlementMaxRetry   = 5
)

// SettlementTask re-attempts the settlement step of a completed job
// whose deduction was deferred for insufficient credits.
type SettlementTask struct {
	JobID uint `json:"job_id"`
}

// TaskQueue defines the interface for settlement task processing
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(task *SettlementTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// Global task queue instance
var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue initializes the global task queue based on config
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Infof("[TaskQueue] Redis unavailable, falling back to in-process mode: %v", err)
				globalTaskQueue = NewSyncQueue()
			} else {
				logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalTaskQueue = queue
			}
		} else {
			logger.Infof("[TaskQueue] In-process queue initialized (Redis disabled)")
			globalTaskQueue = NewSyncQueue()
		}
	})
	return globalTaskQueue
}

// GetTaskQueue returns the global task queue instance
func GetTaskQueue() TaskQueue {
	return globalTaskQueue
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Test connection by pinging Redis
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	_, err := inspector.Queues()
	if err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue schedules a settlement retry with backoff.
func (q *AsyncQueue) Enqueue(task *SettlementTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeSettlement, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("billing"),
		asynq.MaxRetry(settlementMaxRetry),
		asynq.ProcessIn(settlementRetryDelay),
	)
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Settlement task enqueued: id=%s, job=%d", info.ID, task.JobID)
	return nil
}

// IsAsync returns true for async queue
func (q *AsyncQueue) IsAsync() bool {
	return true
}

// Close closes the async queue client
func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue in-process (no Redis). Tasks run after
// a fixed delay with no persistence: a restart drops pending retries,
// which is safe because re-completing the job re-attempts settlement.
type SyncQueue struct {
	mu        sync.Mutex
	processor func(context.Context, *SettlementTask) error
	delay     time.Duration
}

// NewSyncQueue creates a new in-process queue
func NewSyncQueue() *SyncQueue {
	return &SyncQueue{delay: settlementRetryDelay}
}

// SetProcessor sets the function invoked for each task
func (q *SyncQueue) SetProcessor(processor func(context.Context, *SettlementTask) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processor = processor
}

// SetDelay overrides the retry delay (used by tests).
func (q *SyncQueue) SetDelay(d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.delay = d
}

// Enqueue schedules the task in-process after the retry delay.
func (q *SyncQueue) Enqueue(task *SettlementTask) error {
	q.mu.Lock()
	processor := q.processor
	delay := q.delay
	q.mu.Unlock()

	if processor == nil {
		logger.Infof("[SyncQueue] Warning: no processor set, settlement task for job %d dropped", task.JobID)
		return nil
	}

	time.AfterFunc(delay, func() {
		if err := processor(context.Background(), task); err != nil {
			logger.Infof("[SyncQueue] Settlement retry for job %d failed: %v", task.JobID, err)
		}
	})
	return nil
}

// IsAsync returns false for the in-process queue
func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close is a no-op for the in-process queue
func (q *SyncQueue) Close() error {
	return nil
}
