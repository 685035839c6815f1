package browser

import (
	"context"
	"errors"
	"testing"
)

// TestPoolLeaseBeforeStart tests that Lease refuses before Start.
func TestPoolLeaseBeforeStart(t *testing.T) {
	t.Parallel()

	p := NewPool(2, true, "")
	if _, err := p.Lease(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

// TestPoolLeaseAfterClose tests that Lease refuses after Close.
func TestPoolLeaseAfterClose(t *testing.T) {
	t.Parallel()

	p := NewPool(2, true, "")
	p.Close()
	if _, err := p.Lease(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

// TestPoolLeaseCancelledContext tests that a cancelled context aborts the
// semaphore wait.
func TestPoolLeaseCancelledContext(t *testing.T) {
	t.Parallel()

	p := NewPool(1, true, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Lease(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestPoolConcurrencyClamp tests that non-positive concurrency is clamped.
func TestPoolConcurrencyClamp(t *testing.T) {
	t.Parallel()

	p := NewPool(0, true, "")
	// A single slot must be acquirable; a zero-weight semaphore would
	// block forever.
	if !p.sem.TryAcquire(1) {
		t.Error("expected one slot to be available")
	}
	p.sem.Release(1)
}

// TestPoolReleaseNil tests nil-handle safety.
func TestPoolReleaseNil(t *testing.T) {
	t.Parallel()

	p := NewPool(1, true, "")
	p.Release(nil, false)
}

// TestPoolCloseIdempotent tests double Close.
func TestPoolCloseIdempotent(t *testing.T) {
	t.Parallel()

	p := NewPool(1, true, "")
	p.Close()
	p.Close()
}

// TestAttemptError tests the error string and unwrapping.
func TestAttemptError(t *testing.T) {
	t.Parallel()

	underlying := errors.New("net::ERR_CONNECTION_REFUSED")
	e := &AttemptError{Kind: AttemptNavigation, Err: underlying}
	if !errors.Is(e, underlying) {
		t.Error("AttemptError should unwrap to the underlying error")
	}
	if e.Error() == "" {
		t.Error("empty error string")
	}

	httpErr := &AttemptError{Kind: AttemptHTTPError, Status: 503}
	if want := "attempt failed: root document returned HTTP 503"; httpErr.Error() != want {
		t.Errorf("Error() = %q, want %q", httpErr.Error(), want)
	}
}
