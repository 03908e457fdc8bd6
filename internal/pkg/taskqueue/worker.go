package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler executes one task type. The returned value is stored as the
// task result; a returned error marks the task failed.
type Handler func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Worker consumes the pending list and runs registered handlers.
type Worker struct {
	svc    *Service
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	concurrency int
}

// NewWorker builds a worker pool over the queue service.
func NewWorker(svc *Service, logger *zap.Logger, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		svc:         svc,
		logger:      logger.Named("taskqueue"),
		handlers:    make(map[string]Handler),
		concurrency: concurrency,
	}
}

// Register binds a handler to a task type. Must be called before Start.
func (w *Worker) Register(taskType string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[taskType] = h
}

// Start launches the consumer goroutines. They exit when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		go w.loop(ctx)
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := w.svc.rc.Raw().BRPop(ctx, 5*time.Second, keyPending).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("queue pop failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		w.run(ctx, res[1])
	}
}

func (w *Worker) run(ctx context.Context, id string) {
	task, err := w.svc.GetByID(ctx, id)
	if err != nil || task == nil {
		return
	}
	if task.Status != TaskPending {
		return
	}

	w.mu.RLock()
	handler, ok := w.handlers[task.Type]
	w.mu.RUnlock()
	if !ok {
		_ = w.svc.UpdateStatus(ctx, id, TaskFailed, nil, fmt.Sprintf("no handler for task type %q", task.Type))
		return
	}

	if err := w.svc.UpdateStatus(ctx, id, TaskRunning, nil, ""); err != nil {
		w.logger.Warn("mark running failed", zap.String("task", id), zap.Error(err))
	}

	started := time.Now()
	result, err := handler(ctx, task.Payload)
	if err != nil {
		w.logger.Warn("task failed",
			zap.String("task", id),
			zap.String("type", task.Type),
			zap.Duration("took", time.Since(started)),
			zap.Error(err),
		)
		_ = w.svc.UpdateStatus(ctx, id, TaskFailed, nil, err.Error())
		return
	}

	w.logger.Info("task completed",
		zap.String("task", id),
		zap.String("type", task.Type),
		zap.Duration("took", time.Since(started)),
	)
	_ = w.svc.UpdateStatus(ctx, id, TaskCompleted, result, "")
}
