package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// Group runs background tasks with panic recovery and a per-task timeout, and
// lets shutdown wait for the ones still running.
type Group struct {
	logger *observability.Logger
	wg     sync.WaitGroup
}

// NewGroup creates a task group that logs through logger
func NewGroup(logger *observability.Logger) *Group {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Group{logger: logger.WithField("component", "async")}
}

// Go runs fn in a goroutine. The task context is detached from parentCtx's
// cancellation but keeps its values, and is bounded by timeout.
//
//	tasks.Go(ctx, 2*time.Minute, "build mirror upload", func(ctx context.Context) error {
//		return publisher.Publish(ctx, build)
//	})
func (g *Group) Go(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		log := observability.FromContext(parentCtx, g.logger).WithField("task", taskName)
		defer observability.RecoverPanic(log, taskName)

		start := time.Now()
		if err := fn(ctx); err != nil {
			log.WithError(err).WithField("duration_ms", time.Since(start).Milliseconds()).Warn("Background task failed")
		}
	}()
}

// Wait blocks until every task finished or ctx is done
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}

// Batch runs fn for every item with at most workers in flight, each call
// bounded by timeout, and returns every error. A panic in fn is returned as an
// error for that item.
//
//	errs := async.Batch(ctx, files, 4, 30*time.Second, func(ctx context.Context, f string) error {
//		return upload(ctx, f)
//	})
func Batch[T any](ctx context.Context, items []T, workers int, timeout time.Duration, fn func(context.Context, T) error) []error {
	if workers <= 0 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	work := make(chan T)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				if err := runOne(ctx, timeout, item, fn); err != nil {
					record(err)
				}
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case work <- item:
		case <-ctx.Done():
			record(ctx.Err())
			break feed
		}
	}
	close(work)
	wg.Wait()
	return errs
}

func runOne[T any](ctx context.Context, timeout time.Duration, item T, fn func(context.Context, T) error) (err error) {
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if perr := observability.PanicError(recover()); perr != nil {
			err = perr
		}
	}()
	return fn(taskCtx, item)
}
