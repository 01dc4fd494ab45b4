package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by WithTimeout when fn overruns its budget while the
// parent context is still live. It wraps context.DeadlineExceeded.
var ErrTimeout = fmt.Errorf("operation timed out: %w", context.DeadlineExceeded)

// WithTimeout runs fn under a context cancelled after timeout. It returns as
// soon as the budget is spent even if fn has not yet observed cancellation.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		if err != nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%s: %w (limit: %v)", name, ErrTimeout, timeout)
		}
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w (limit: %v)", name, ErrTimeout, timeout)
	}
}

// IsTimeout reports whether err came from an exhausted deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
