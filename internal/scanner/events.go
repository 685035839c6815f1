package scanner

import "github.com/nao1215/consolescan/internal/model"

// EventType identifies what a scan Event reports.
type EventType string

const (
	// EventStarted fires when a URL's first attempt begins.
	EventStarted EventType = "started"

	// EventErrorObserved fires for each diagnostic recorded on a page.
	// Deduplicated repeats fire again with the same record, occurrence
	// count already bumped.
	EventErrorObserved EventType = "error_observed"

	// EventFinished fires exactly once per URL when it reaches a
	// terminal status.
	EventFinished EventType = "finished"

	// EventFatal fires at most once per scan when the browser pool
	// cannot recover. No new sessions start afterwards.
	EventFatal EventType = "fatal"

	// EventComplete fires once after the last URL finished.
	EventComplete EventType = "complete"
)

// Event is a progress notification published to subscribers.
type Event struct {
	// Type identifies the event.
	Type EventType

	// URL is the page concerned, empty for Fatal and Complete.
	URL string

	// Error is the observed diagnostic for ErrorObserved.
	Error *model.PageError

	// Result is the finalized result for Finished.
	Result *model.ScanResult

	// Err carries the failure for Fatal.
	Err error
}
