package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no sitemap URL, domain, or local file
	// is specified as the scan target.
	ErrNoTarget = errors.New("no target specified: provide a sitemap URL, domain, or local sitemap file")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	// Zero concurrency would mean no pages are ever scanned.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the page load timeout is not positive.
	// A timeout of zero or negative would fail every attempt immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSettleTime is returned when the settle time is negative.
	// Use 0 to skip the post-load wait entirely.
	ErrInvalidSettleTime = errors.New("invalid settle time: must be non-negative")

	// ErrInvalidConsoleLevel is returned when the console level is not one
	// of error, warn, or all.
	ErrInvalidConsoleLevel = errors.New("invalid console level: must be error, warn, or all")

	// ErrInvalidConsentMode is returned when the consent mode is not one
	// of accept or hide.
	ErrInvalidConsentMode = errors.New("invalid consent mode: must be accept or hide")

	// ErrInvalidMaxRetries is returned when the retry count is not positive.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be positive")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --html, and --markdown is specified. Only one output format can be
	// used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: only one of --json, --html, --markdown may be used")

	// ErrInvalidCookie is returned when a --cookie flag is not in
	// name=value form.
	ErrInvalidCookie = errors.New("invalid cookie")
)
