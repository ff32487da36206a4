package hal

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout indicates the operation lost the race against its deadline.
var ErrTimeout = errors.New("timeout")

// Delay suspends for d.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TimeoutAfter races op against d.
// op must return at its next suspension point once its context is done.
// A failure of op after the deadline expired is reported as ErrTimeout;
// a completed op always wins.
func TimeoutAfter(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	err := op(opCtx)
	if err != nil && ctx.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
