package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// ErrorKind classifies a single page diagnostic.
type ErrorKind string

// Diagnostic kinds observed during a page session.
//
// Design decision: We use string constants rather than iota because the
// values are serialized into JSON reports and the SQLite history database.
// Stable, self-describing strings survive schema evolution better than
// positional integers.
const (
	// KindConsoleError is a console.error() message.
	KindConsoleError ErrorKind = "console_error"

	// KindConsoleWarn is a console.warn() message.
	KindConsoleWarn ErrorKind = "console_warn"

	// KindConsoleInfo covers console.info/log/debug/trace messages.
	// These are only captured when the console level is "all".
	KindConsoleInfo ErrorKind = "console_info"

	// KindPageError is an uncaught JavaScript exception
	// (e.g. "Uncaught TypeError: ..."). These do not appear as console
	// messages and are reported through a separate browser event.
	KindPageError ErrorKind = "page_error"

	// KindCSPViolation is a Content-Security-Policy violation reported by
	// the browser's audits or log domain.
	KindCSPViolation ErrorKind = "csp_violation"

	// KindRequestFailed is a network request that never completed
	// (connection reset, DNS failure, blocked by CSP), as opposed to a
	// request that completed with an error status.
	KindRequestFailed ErrorKind = "request_failed"

	// KindHTTPError is a completed response with status >= 400, for the
	// root document or any sub-resource.
	KindHTTPError ErrorKind = "http_error"
)

// IsErrorClass reports whether the kind counts as an error (as opposed to
// a warning) when deriving the page status. Whitelisting is handled
// separately; this is purely the kind classification.
func (k ErrorKind) IsErrorClass() bool {
	switch k {
	case KindConsoleError, KindPageError, KindCSPViolation, KindHTTPError:
		return true
	default:
		return false
	}
}

// PageError is one observed diagnostic on a page.
//
// Two PageErrors are duplicates iff Kind and the normalized Message are
// equal within the same page; the deduplicator collapses them into one
// record and increments OccurrenceCount.
type PageError struct {
	// Kind classifies the diagnostic.
	Kind ErrorKind `json:"kind"`

	// Message is the diagnostic text as observed.
	Message string `json:"message"`

	// Source is the script or resource URL the diagnostic points at.
	// Empty when the browser did not report a location.
	Source string `json:"source,omitempty"`

	// Line is the 1-based line number within Source, 0 when unknown.
	Line int64 `json:"line,omitempty"`

	// Timestamp is when the diagnostic was first observed.
	Timestamp time.Time `json:"timestamp"`

	// OccurrenceCount is how many times this (kind, normalized message)
	// pair was observed on the page. Always >= 1.
	OccurrenceCount int `json:"occurrence_count"`

	// Whitelisted is true when the message matches a whitelist pattern.
	Whitelisted bool `json:"whitelisted"`
}

// NewPageError creates a PageError with OccurrenceCount 1 and the current
// time as Timestamp.
func NewPageError(kind ErrorKind, message string) *PageError {
	return &PageError{
		Kind:            kind,
		Message:         message,
		Timestamp:       time.Now(),
		OccurrenceCount: 1,
	}
}

// DedupKey returns the deduplication key for this error:
// the kind plus the normalized message.
func (e *PageError) DedupKey() string {
	return string(e.Kind) + "\x00" + NormalizeMessage(e.Message)
}

// messageFolder performs Unicode case folding for message normalization.
// cases.Fold is locale-independent, which matters because diagnostics
// arrive in whatever language the scanned site uses.
var messageFolder = cases.Fold()

// NormalizeMessage canonicalizes a diagnostic message for deduplication:
// Unicode case folding plus whitespace collapsing. The original message is
// kept verbatim in PageError.Message; normalization only affects matching.
func NormalizeMessage(message string) string {
	folded := messageFolder.String(message)
	return strings.Join(strings.Fields(folded), " ")
}
