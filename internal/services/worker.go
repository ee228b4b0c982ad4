package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/metrics"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

// Worker processes async learning tasks from the queue
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor TaskProcessor
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker creates a new worker instance. It returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig, concurrency int) *Worker {
	if !cfg.Enabled {
		return nil
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				learningQueue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				metrics.LearningTasks.WithLabelValues("async", "error").Inc()
				logger.Warn().Err(err).Str("type", task.Type()).Msg("[Worker] Task failed")
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// SetProcessor sets the function to process learning tasks
func (w *Worker) SetProcessor(processor TaskProcessor) {
	w.processor = processor
}

// Start begins processing tasks
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeLearning, w.handleLearningTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting async worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[Worker] Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleLearningTask(ctx context.Context, t *asynq.Task) error {
	var task LearningTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("decode learning task: %v: %w", err, asynq.SkipRetry)
	}

	logger.Debug().
		Uint("feedback_id", task.FeedbackID).
		Str("request_id", task.RequestID).
		Msg("[Worker] Processing learning task")

	if w.processor == nil {
		logger.Warn().Msg("[Worker] No processor set")
		return nil
	}

	if err := w.processor(ctx, &task); err != nil {
		return err
	}
	metrics.LearningTasks.WithLabelValues("async", "ok").Inc()
	return nil
}
