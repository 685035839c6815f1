package scanner

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestPolicyBackoff tests the exact retry delay sequence.
func TestPolicyBackoff(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 5 * time.Second},
		{attempt: 2, want: 10 * time.Second},
		{attempt: 3, want: 20 * time.Second},
		{attempt: 0, want: 5 * time.Second}, // clamped
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

// TestPolicyWait tests backoff waiting and cancellation.
func TestPolicyWait(t *testing.T) {
	t.Parallel()

	t.Run("completes", func(t *testing.T) {
		t.Parallel()

		p := Policy{MaxAttempts: 3, BackoffBase: time.Millisecond}
		if err := p.Wait(context.Background(), 1); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()

		p := Policy{MaxAttempts: 3, BackoffBase: time.Hour}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		if err := p.Wait(ctx, 1); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
