package velmoadmin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/velmohq/velmoadmin/backend"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped cancellation", fmt.Errorf("query: %w", context.Canceled), false},
		{"rate limited", &backend.RejectionError{Status: 429}, true},
		{"request timeout", &backend.RejectionError{Status: 408}, true},
		{"bad gateway", &backend.RejectionError{Status: 502}, true},
		{"unavailable", &backend.RejectionError{Status: 503}, true},
		{"gateway timeout", &backend.RejectionError{Status: 504}, true},
		{"bad request", &backend.RejectionError{Status: 400}, false},
		{"forbidden", &backend.RejectionError{Status: 403}, false},
		{"server error", &backend.RejectionError{Status: 500}, false},
		{"transport error", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, func() error {
		calls++
		return &backend.RejectionError{Status: 403}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error ran %d attempts, want 1", calls)
	}
}

func TestWithRetryZeroRetries(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 0, func() error {
		calls++
		return errors.New("transport down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("maxRetries=0 ran %d attempts, want 1", calls)
	}
}

func TestWithRetrySucceedsImmediately(t *testing.T) {
	calls := 0
	if err := withRetry(context.Background(), 2, func() error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("successful call ran %d attempts, want 1", calls)
	}
}

func TestWithRetryRespectsCancellation(t *testing.T) {
	// The deadline fires during the first 500ms backoff sleep, so the
	// loop must give up after a single attempt.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	err := withRetry(ctx, 3, func() error {
		calls++
		return errors.New("transport down")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if calls != 1 {
		t.Errorf("cancelled retry loop ran %d attempts, want 1", calls)
	}
}
