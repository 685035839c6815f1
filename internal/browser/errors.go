package browser

import (
	"errors"
	"fmt"
)

// Pool errors, usable with errors.Is.
var (
	// ErrPoolFatal is returned by Lease after a browser restart has
	// failed. The pool cannot recover; no new sessions can start.
	ErrPoolFatal = errors.New("browser: pool is in fatal state")

	// ErrPoolClosed is returned by Lease after Close.
	ErrPoolClosed = errors.New("browser: pool is closed")

	// ErrNotStarted is returned by Lease before Start has been called.
	ErrNotStarted = errors.New("browser: pool not started")
)

// AttemptErrorKind classifies why a single page-load attempt failed.
type AttemptErrorKind string

const (
	// AttemptTimeout means the page did not finish loading within the
	// configured timeout.
	AttemptTimeout AttemptErrorKind = "timeout"

	// AttemptNavigation covers navigation-level failures such as DNS
	// errors, connection refusals, and protocol errors.
	AttemptNavigation AttemptErrorKind = "navigation"

	// AttemptDisconnected means the browser process died or the CDP
	// connection dropped during the attempt.
	AttemptDisconnected AttemptErrorKind = "disconnected"

	// AttemptHTTPError means the root document answered with a 4xx or
	// 5xx status.
	AttemptHTTPError AttemptErrorKind = "http_error"
)

// AttemptError is the typed failure of a single page-load attempt.
// The retry policy inspects Kind to decide recovery behavior; a
// disconnected attempt additionally marks the leased browser unhealthy.
type AttemptError struct {
	// Kind classifies the failure.
	Kind AttemptErrorKind

	// Status is the root document HTTP status for AttemptHTTPError,
	// zero otherwise.
	Status int64

	// Err is the underlying error, nil for AttemptHTTPError.
	Err error
}

// Error implements the error interface.
func (e *AttemptError) Error() string {
	switch e.Kind {
	case AttemptHTTPError:
		return fmt.Sprintf("attempt failed: root document returned HTTP %d", e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("attempt failed (%s): %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("attempt failed (%s)", e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *AttemptError) Unwrap() error {
	return e.Err
}
