package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout marks an operation that ran past its own limit, as opposed to
// one whose caller went away.
var ErrTimeout = errors.New("operation timed out")

// WithTimeout runs fn under a context that expires after timeout. fn must
// honour its context. When the derived deadline is what stopped fn, the
// returned error wraps both ErrTimeout and context.DeadlineExceeded; a
// cancelled parent is reported as-is. A non-positive timeout runs fn
// under ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(timeoutCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
	}
	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %v: %w", name, ErrTimeout, timeout, context.DeadlineExceeded)
	}
	return err
}
