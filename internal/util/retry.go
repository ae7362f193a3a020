package util

import (
	"context"
	"math/rand/v2"
	"time"
)

// Retry calls fn until it succeeds or maxAttempts is exhausted, sleeping
// between attempts with exponential backoff from baseDelay plus up to 50%
// random jitter so concurrent gatherers don't hammer an upstream in
// lockstep. It returns nil on the first successful call, the last error
// once attempts run out, or the context error if cancelled mid-wait.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		delay := baseDelay << (attempt - 1)
		delay += rand.N(delay/2 + 1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return err
}
