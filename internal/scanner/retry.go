package scanner

import (
	"context"
	"time"
)

// Retry defaults. Three attempts with 5s/10s/20s waits rides out short
// network blips and staging deployments without stretching a failing
// page past two minutes.
const (
	// DefaultMaxAttempts is the number of load attempts per URL.
	DefaultMaxAttempts = 3

	// DefaultBackoffBase is the wait before the first retry; each further
	// retry doubles it.
	DefaultBackoffBase = 5 * time.Second
)

// Policy is the retry state machine for a single URL.
// Attempt numbers are 1-based.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BackoffBase is the wait after the first failed attempt.
	BackoffBase time.Duration
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BackoffBase: DefaultBackoffBase}
}

// Backoff returns the wait after the given failed attempt:
// base * 2^(attempt-1), so 5s, 10s, 20s with the default base.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BackoffBase << (attempt - 1)
}

// Wait sleeps for the backoff after the given failed attempt, returning
// early with the context error on cancellation.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Backoff(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
