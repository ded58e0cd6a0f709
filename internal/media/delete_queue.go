package media

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RemoveFunc deletes one stored object by key.
type RemoveFunc func(ctx context.Context, key string) error

// DeleteQueueConfig controls the concurrency characteristics of the delete queue.
type DeleteQueueConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// DeleteQueue removes stored objects on a bounded worker pool. Callers never wait for a delete and
// failures are only logged.
type DeleteQueue struct {
	remove  RemoveFunc
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewDeleteQueue starts cfg.Workers goroutines draining the queue.
func NewDeleteQueue(remove RemoveFunc, cfg DeleteQueueConfig, logger *slog.Logger) *DeleteQueue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &DeleteQueue{
		remove:  remove,
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan string, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}
	return q
}

// Enqueue schedules key for deletion without blocking. It reports false when the queue is full or
// already shut down.
func (q *DeleteQueue) Enqueue(key string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case q.jobs <- key:
		return true
	default:
		q.logger.Warn("media delete queue full, dropping job", "key", key)
		return false
	}
}

// Shutdown stops accepting jobs and waits for queued deletes to finish. When ctx expires first the
// in-flight deletes are cancelled.
func (q *DeleteQueue) Shutdown(ctx context.Context) error {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.jobs)
		q.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	case <-done:
		q.cancel()
		return nil
	}
}

func (q *DeleteQueue) worker() {
	defer q.wg.Done()

	for key := range q.jobs {
		select {
		case <-q.ctx.Done():
			return
		default:
		}
		q.handle(key)
	}
}

func (q *DeleteQueue) handle(key string) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	if err := q.remove(ctx, key); err != nil {
		q.logger.Error("media delete failed", "key", key, "error", err)
		return
	}
	q.logger.Debug("media deleted", "key", key)
}
