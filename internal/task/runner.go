// Package task runs fire-and-forget units of work outside the request cycle.
package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

const maxStackBytes = 4096

// Runner dispatches one goroutine per unit of work, unbounded. Failures and
// panics are caught at the unit's boundary and logged; they never propagate
// to the dispatcher and are never retried. No ordering is guaranteed between
// two units dispatched for the same user.
type Runner struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewRunner constructs a Runner.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.L()
	}
	return &Runner{logger: logger}
}

// Go starts fn on a fresh goroutine. The context handed to fn is detached
// from any request context: the unit outlives the HTTP response that
// dispatched it.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("panic in async task",
					zap.String("task", name),
					zap.Any("panic", rec),
					zap.String("stack", truncatedStack()),
				)
			}
		}()

		if err := fn(context.Background()); err != nil {
			r.logger.Error("error in async task",
				zap.String("task", name),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until all dispatched units finish or ctx expires. A unit still
// in flight when the process exits is silently dropped; there is no
// durability or redelivery.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain async tasks: %w", ctx.Err())
	}
}

func truncatedStack() string {
	stack := debug.Stack()
	if len(stack) > maxStackBytes {
		stack = stack[:maxStackBytes]
	}
	return string(stack)
}
