package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

func TestGroup_RunsTask(t *testing.T) {
	g := NewGroup(nil)
	executed := atomic.Bool{}

	g.Go(context.Background(), time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !executed.Load() {
		t.Error("Go did not execute function")
	}
}

func TestGroup_DetachedFromParentCancel(t *testing.T) {
	g := NewGroup(observability.NopLogger())
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	var taskErr atomic.Value
	g.Go(parent, time.Second, "detached", func(ctx context.Context) error {
		taskErr.Store(ctx.Err() == nil)
		return nil
	})
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if ok, _ := taskErr.Load().(bool); !ok {
		t.Error("task context was cancelled with its parent")
	}
}

func TestGroup_Timeout(t *testing.T) {
	g := NewGroup(nil)
	var timedOut atomic.Bool

	g.Go(context.Background(), 20*time.Millisecond, "slow", func(ctx context.Context) error {
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			timedOut.Store(true)
		}
		return ctx.Err()
	})

	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !timedOut.Load() {
		t.Error("task context did not time out")
	}
}

func TestGroup_RecoversPanic(t *testing.T) {
	g := NewGroup(nil)
	g.Go(context.Background(), time.Second, "panicky", func(ctx context.Context) error {
		panic("boom")
	})
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestGroup_WaitDeadline(t *testing.T) {
	g := NewGroup(nil)
	release := make(chan struct{})
	defer close(release)

	g.Go(context.Background(), time.Minute, "blocked", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestBatch(t *testing.T) {
	var processed atomic.Int32
	items := []int{1, 2, 3, 4, 5, 6}

	errs := Batch(context.Background(), items, 3, time.Second, func(ctx context.Context, n int) error {
		processed.Add(1)
		if n%2 == 0 {
			return errors.New("even")
		}
		return nil
	})

	if processed.Load() != 6 {
		t.Errorf("processed %d items, want 6", processed.Load())
	}
	if len(errs) != 3 {
		t.Errorf("got %d errors, want 3", len(errs))
	}
}

func TestBatch_Panic(t *testing.T) {
	errs := Batch(context.Background(), []string{"a"}, 0, time.Second, func(ctx context.Context, s string) error {
		panic("bad item")
	})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
}

func TestBatch_BoundsWorkers(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	Batch(context.Background(), items, 2, time.Second, func(ctx context.Context, _ int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d, want <= 2", peak.Load())
	}
}
