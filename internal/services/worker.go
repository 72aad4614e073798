package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/creditgate/creditgate/internal/config"
	"github.com/creditgate/creditgate/pkg/logger"
	"github.com/hibiken/asynq"
)

// Worker processes settlement retry tasks from the Redis queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor func(context.Context, *SettlementTask) error
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker creates a new worker instance. Returns nil when Redis is
// disabled; the SyncQueue handles retries in-process in that case.
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"billing": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Infof("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// SetProcessor sets the function that settles a job
func (w *Worker) SetProcessor(processor func(context.Context, *SettlementTask) error) {
	w.processor = processor
}

// Start begins processing tasks
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeSettlement, w.handleSettlementTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting settlement worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Infof("[Worker] Server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts the worker down and waits for in-flight tasks.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.server.Shutdown()
	w.wg.Wait()
	w.running = false
}

func (w *Worker) handleSettlementTask(ctx context.Context, task *asynq.Task) error {
	var settle SettlementTask
	if err := json.Unmarshal(task.Payload(), &settle); err != nil {
		logger.Infof("[Worker] Bad settlement payload: %v", err)
		return nil // drop malformed tasks, retrying cannot help
	}

	if w.processor == nil {
		logger.Infof("[Worker] No processor configured, dropping settlement for job %d", settle.JobID)
		return nil
	}

	return w.processor(ctx, &settle)
}
