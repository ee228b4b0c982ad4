package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/metrics"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

const (
	TaskTypeLearning = "learning:fold_feedback"
	learningQueue    = "learning"
)

// LearningTask asks for one persisted feedback event to be folded into the
// heuristic stats.
type LearningTask struct {
	FeedbackID uint   `json:"feedback_id"`
	RequestID  string `json:"request_id,omitempty"`
}

// TaskProcessor handles one learning task.
type TaskProcessor func(context.Context, *LearningTask) error

// TaskQueue defines the interface for learning task processing
type TaskQueue interface {
	// Enqueue hands a task to the queue. Processing failures never surface here.
	Enqueue(ctx context.Context, task *LearningTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue returns a Redis-backed queue when Redis is enabled and
// reachable, and a SyncQueue otherwise.
func NewTaskQueue(cfg *config.RedisConfig) TaskQueue {
	if !cfg.Enabled {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue()
	}
	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("[TaskQueue] Redis unavailable, falling back to sync mode")
		return NewSyncQueue()
	}
	logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
	return queue
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// learningTaskID deduplicates tasks for the same feedback event while one is
// still pending or retained.
func learningTaskID(feedbackID uint) string {
	return fmt.Sprintf("feedback-%d", feedbackID)
}

// Enqueue adds a learning task to the async queue
func (q *AsyncQueue) Enqueue(ctx context.Context, task *LearningTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeLearning, payload)
	info, err := q.client.EnqueueContext(ctx, t,
		asynq.Queue(learningQueue),
		asynq.TaskID(learningTaskID(task.FeedbackID)),
		// a retry only folds the keys that failed; applied keys are skipped
		asynq.MaxRetry(3),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Debug().Uint("feedback_id", task.FeedbackID).Msg("[AsyncQueue] Task already queued")
		return nil
	}
	if err != nil {
		metrics.LearningTasks.WithLabelValues("async", "enqueue_error").Inc()
		return err
	}

	metrics.LearningTasks.WithLabelValues("async", "enqueued").Inc()
	logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Uint("feedback_id", task.FeedbackID).
		Msg("[AsyncQueue] Task enqueued")
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

// SyncQueue implements TaskQueue by processing in the caller's goroutine
type SyncQueue struct {
	processor TaskProcessor
}

// NewSyncQueue creates a new synchronous queue
func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function to process tasks synchronously
func (q *SyncQueue) SetProcessor(processor TaskProcessor) {
	q.processor = processor
}

// Enqueue processes the task before returning. Processor errors are logged
// and swallowed.
func (q *SyncQueue) Enqueue(ctx context.Context, task *LearningTask) error {
	if q.processor == nil {
		logger.Warn().Uint("feedback_id", task.FeedbackID).Msg("[SyncQueue] No processor set, task dropped")
		return nil
	}

	if err := q.processor(ctx, task); err != nil {
		metrics.LearningTasks.WithLabelValues("sync", "error").Inc()
		logger.Warn().Err(err).
			Uint("feedback_id", task.FeedbackID).
			Str("request_id", task.RequestID).
			Msg("[SyncQueue] Task processing failed")
		return nil
	}
	metrics.LearningTasks.WithLabelValues("sync", "ok").Inc()
	return nil
}

// IsAsync returns false for sync queue
func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close is a no-op for sync queue
func (q *SyncQueue) Close() error {
	return nil
}
