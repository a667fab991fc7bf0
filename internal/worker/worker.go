package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var ErrStopped = errors.New("worker pool stopped")

type ProcessFunc[T any] func(ctx context.Context, job T) error

// WorkerPool runs a fixed number of workers over a buffered job queue. A job
// that fails or panics is logged and does not stop its worker.
type WorkerPool[T any] struct {
	name       string
	numWorkers int
	jobs       chan T
	quit       chan struct{}
	processor  ProcessFunc[T]
	wg         sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
	once    sync.Once

	processed atomic.Int64
	failed    atomic.Int64
}

func NewWorkerPool[T any](name string, numWorkers, bufferSize int, processor ProcessFunc[T]) *WorkerPool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T]{
		name:       name,
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		quit:       make(chan struct{}),
		processor:  processor,
	}
}

func (wp *WorkerPool[T]) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool[T]) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			if err := wp.process(ctx, job); err != nil {
				wp.failed.Add(1)
				slog.Warn("job failed", "pool", wp.name, "worker", id, "error", err)
				continue
			}
			wp.processed.Add(1)
		}
	}
}

func (wp *WorkerPool[T]) process(ctx context.Context, job T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return wp.processor(ctx, job)
}

// Submit queues a job, blocking while the queue is full until ctx is done or
// the pool stops.
func (wp *WorkerPool[T]) Submit(ctx context.Context, job T) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrStopped
	}

	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.quit:
		return ErrStopped
	}
}

// Stop closes the queue and waits for workers to exit. Safe to call more
// than once.
func (wp *WorkerPool[T]) Stop() {
	wp.once.Do(func() {
		close(wp.quit)

		wp.mu.Lock()
		wp.stopped = true
		close(wp.jobs)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

func (wp *WorkerPool[T]) Processed() int64 { return wp.processed.Load() }
func (wp *WorkerPool[T]) Failed() int64    { return wp.failed.Load() }
func (wp *WorkerPool[T]) Queued() int      { return len(wp.jobs) }
