package velmoadmin

import (
	"context"
	"errors"
	"time"

	"github.com/velmohq/velmoadmin/backend"
)

// withRetry executes fn with exponential backoff on retryable errors.
// Queries get up to maxRetries automatic retries; mutations never go
// through here. Backoff doubles from 500ms and respects context
// cancellation during the sleep.
func withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	backoff := 500 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return lastErr
}

// isRetryable reports whether an error is worth retrying.
//
// A backend rejection is only retried for rate-limit and gateway
// statuses; constraint violations, permission denials and missing views
// will not heal on retry. Transport errors are retried unless the
// context itself was cancelled.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if rej, ok := backend.IsRejection(err); ok {
		switch rej.Status {
		case 408, 429, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	// Anything else is a transport-level failure.
	return true
}
