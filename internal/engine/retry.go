package engine

import (
	"context"
	"time"
)

// withRetry runs fn until it succeeds or maxRetries retries have failed,
// doubling the delay after each attempt. onRetry, if set, sees every error
// that is followed by another attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, onRetry func(error), fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		if onRetry != nil {
			onRetry(err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
