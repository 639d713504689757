package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// waitStandby polls ch every interval until it is Standby.
// A Disconnected lane fails immediately.
func waitStandby(ctx context.Context, ch Channel, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		switch ch.State() {
		case Standby:
			return nil
		case Disconnected:
			return ErrChannelUnavailable
		}

		select {
		case <-ctx.Done():
			return ctxErr(ctx, "standby")
		case <-ticker.C:
		}
	}
}

// ctxErr maps a deadline to ErrCompletionTimeout and passes cancellation through.
func ctxErr(ctx context.Context, what string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrCompletionTimeout, what)
	}
	return ctx.Err()
}

// bounded returns ctx limited by d, or ctx unchanged when d is zero.
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
