package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool("test", 2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		if err := pool.Submit(ctx, i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	waitFor(t, func() bool { return processed.Load() == 5 })

	cancel()
	pool.Stop()

	if pool.Processed() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", pool.Processed())
	}
}

func TestWorkerPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool("test", 4, 100, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = pool.Submit(ctx, n)
		}(i)
	}
	wg.Wait()

	waitFor(t, func() bool { return processed.Load() == 100 })

	cancel()
	pool.Stop()
}

func TestWorkerPool_FailuresAndPanicsAreContained(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		switch job {
		case 1:
			return errors.New("bad record")
		case 2:
			panic("boom")
		}
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool("test", 1, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for _, j := range []int{1, 2, 3} {
		if err := pool.Submit(ctx, j); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	waitFor(t, func() bool { return processed.Load() == 1 })
	pool.Stop()

	if pool.Failed() != 2 {
		t.Errorf("expected 2 failed jobs, got %d", pool.Failed())
	}
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool("test", 1, 1, func(ctx context.Context, job int) error { return nil })
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()

	if err := pool.Submit(context.Background(), 1); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestWorkerPool_SubmitRespectsContext(t *testing.T) {
	block := make(chan struct{})
	pool := NewWorkerPool("test", 1, 1, func(ctx context.Context, job int) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	// one job in flight, one buffered
	_ = pool.Submit(ctx, 1)
	waitFor(t, func() bool { return pool.Queued() == 0 })
	_ = pool.Submit(ctx, 2)

	subCtx, subCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer subCancel()
	if err := pool.Submit(subCtx, 3); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	close(block)
	cancel()
	pool.Stop()
}

func TestWorkerPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool("test", 2, 50, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		_ = pool.Submit(ctx, i)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}

	t.Logf("processed %d jobs before shutdown", processed.Load())
}
