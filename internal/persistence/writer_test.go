package persistence

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
)

func startWriter(t *testing.T) (*WriterQueue, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w := NewWriterQueue(nil)
	w.Start(ctx)

	return w, ctx
}

func TestWriterQueueRetriesAndFlushes(t *testing.T) {
	w, ctx := startWriter(t)

	var attempts atomic.Int32
	w.Enqueue("flaky", func(context.Context) error {
		if attempts.Add(1) < 2 {
			return errors.New("busy")
		}

		return nil
	})
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
}

func TestWriterQueueKeepsNewestWritePerKey(t *testing.T) {
	w := NewWriterQueue(nil)

	var (
		mu  sync.Mutex
		ran []string
	)
	write := func(label string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			ran = append(ran, label)

			return nil
		}
	}
	// Queued before Start so both writes for run-1 are pending together.
	w.Enqueue("run-1", write("run-1 running"))
	w.Enqueue("run-2", write("run-2 running"))
	w.Enqueue("run-1", write("run-1 finished"))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w.Start(ctx)
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if want := []string{"run-1 finished", "run-2 running"}; !reflect.DeepEqual(ran, want) {
		t.Fatalf("ran %v, want %v", ran, want)
	}
}

func TestWriterQueueFlushHonorsContext(t *testing.T) {
	w := NewWriterQueue(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Flush(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled flush without a running writer, got %v", err)
	}
}
