package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	maxWriteAttempts = 3
	writeRetryStep   = 200 * time.Millisecond
)

// WriterQueue runs background writes that callers do not wait for, such as
// task history rows, on one goroutine. Writes share a key when a later one
// makes an earlier one obsolete: only the newest pending write per key runs.
type WriterQueue struct {
	logger *slog.Logger

	mu      sync.Mutex
	order   []string
	pending map[string]func(context.Context) error
	waiters []chan struct{}
	wake    chan struct{}
}

func NewWriterQueue(logger *slog.Logger) *WriterQueue {
	if logger == nil {
		logger = slog.Default().With("component", "persistence.writer")
	}

	return &WriterQueue{
		logger:  logger,
		pending: make(map[string]func(context.Context) error),
		wake:    make(chan struct{}, 1),
	}
}

func (w *WriterQueue) Enqueue(key string, fn func(context.Context) error) {
	w.mu.Lock()
	if _, queued := w.pending[key]; queued {
		w.logger.Debug("replacing pending write", "key", key)
	} else {
		w.order = append(w.order, key)
	}
	w.pending[key] = fn
	w.mu.Unlock()
	w.signal()
}

// Flush blocks until every write enqueued before the call has run.
func (w *WriterQueue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	w.mu.Lock()
	w.waiters = append(w.waiters, done)
	w.mu.Unlock()
	w.signal()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *WriterQueue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.wake:
				w.drain(ctx)
			}
		}
	}()
}

func (w *WriterQueue) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// drain runs one batch. Waiters registered before the batch was taken are
// released after it.
func (w *WriterQueue) drain(ctx context.Context) {
	w.mu.Lock()
	order, pending, waiters := w.order, w.pending, w.waiters
	w.order, w.pending, w.waiters = nil, make(map[string]func(context.Context) error), nil
	w.mu.Unlock()

	for _, key := range order {
		if ctx.Err() != nil {
			return
		}
		w.runWithRetry(ctx, key, pending[key])
	}
	for _, done := range waiters {
		close(done)
	}
}

func (w *WriterQueue) runWithRetry(ctx context.Context, key string, fn func(context.Context) error) {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return
		}
		w.logger.Error("db write failed", "key", key, "attempt", attempt, "error", err)
		if attempt == maxWriteAttempts {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * writeRetryStep):
		}
	}
}
