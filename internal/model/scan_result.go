package model

import "time"

// PageStatus is the terminal (or live) status of one scanned URL.
type PageStatus string

// Page statuses, ordered from best to worst.
const (
	// StatusPending means the URL has not been picked up by a worker yet.
	StatusPending PageStatus = "pending"

	// StatusScanning means a page session is currently working on the URL.
	StatusScanning PageStatus = "scanning"

	// StatusOK means the page loaded with no diagnostics at all.
	StatusOK PageStatus = "ok"

	// StatusWarn means the page loaded and produced only warnings.
	StatusWarn PageStatus = "warn"

	// StatusIgnored means the page loaded and every diagnostic matched
	// the whitelist.
	StatusIgnored PageStatus = "ignored"

	// StatusError means the page loaded but produced at least one
	// non-whitelisted error-class diagnostic.
	StatusError PageStatus = "error"

	// StatusFailed means all retry attempts were exhausted without the
	// page ever loading (network or browser fault).
	StatusFailed PageStatus = "failed"
)

// ScanResult is the outcome of scanning one URL.
//
// A ScanResult is exclusively owned by the page session processing its URL
// until Finalize is called; after finalization ownership transfers to the
// orchestrator's result store and the value must be treated as read-only.
type ScanResult struct {
	// URL is the scanned page URL.
	URL string `json:"url"`

	// Status is recomputed every time a diagnostic is added so a live UI
	// can render it while the scan is still running.
	Status PageStatus `json:"status"`

	// Errors holds the deduplicated diagnostics in observation order.
	Errors []*PageError `json:"errors"`

	// AttemptCount is the number of navigation attempts made (1..3).
	AttemptCount int `json:"attempt_count"`

	// Duration is the total wall time spent on this URL, including
	// retries and backoff waits.
	Duration time.Duration `json:"duration_ms"`

	// FinalHTTPStatus is the HTTP status of the root document response,
	// 0 when no response was ever received.
	FinalHTTPStatus int `json:"final_http_status,omitempty"`

	// finalized guards against post-finalization mutation.
	finalized bool

	// dedup maps PageError.DedupKey to the index in Errors.
	dedup map[string]int
}

// NewScanResult creates a pending result for the given URL.
func NewScanResult(url string) *ScanResult {
	return &ScanResult{
		URL:    url,
		Status: StatusPending,
		Errors: make([]*PageError, 0),
		dedup:  make(map[string]int),
	}
}

// AddError adds a diagnostic to the result, collapsing duplicates.
// It returns true when a new record was appended and false when an existing
// record's OccurrenceCount was incremented instead. The status is
// recomputed either way.
//
// AddError must not be called after Finalize; such calls are ignored.
func (r *ScanResult) AddError(e *PageError) bool {
	if r.finalized || e == nil {
		return false
	}

	key := e.DedupKey()
	if idx, ok := r.dedup[key]; ok {
		r.Errors[idx].OccurrenceCount++
		r.recomputeStatus()
		return false
	}

	if e.OccurrenceCount < 1 {
		e.OccurrenceCount = 1
	}
	r.dedup[key] = len(r.Errors)
	r.Errors = append(r.Errors, e)
	r.recomputeStatus()
	return true
}

// ResetErrors discards all diagnostics collected so far.
// Each retry attempt starts with a clean diagnostic set; diagnostics from a
// failed attempt never carry over into a later attempt's result.
func (r *ScanResult) ResetErrors() {
	if r.finalized {
		return
	}
	r.Errors = r.Errors[:0]
	r.dedup = make(map[string]int)
	r.Status = StatusScanning
}

// MarkScanning flips the status to scanning. Used when a worker picks up
// the URL so subscribers can render progress.
func (r *ScanResult) MarkScanning() {
	if !r.finalized {
		r.Status = StatusScanning
	}
}

// MarkFailed sets the terminal failed status. Diagnostics captured during
// the last attempt are kept as partial data.
func (r *ScanResult) MarkFailed() {
	if !r.finalized {
		r.Status = StatusFailed
	}
}

// Finalize recomputes the status one last time (unless the result already
// failed) and freezes the result. Further mutation is ignored.
func (r *ScanResult) Finalize() {
	if r.finalized {
		return
	}
	if r.Status != StatusFailed {
		r.recomputeStatus()
	}
	r.finalized = true
}

// Finalized reports whether the result has been frozen.
func (r *ScanResult) Finalized() bool {
	return r.finalized
}

// recomputeStatus derives the status from the current diagnostic set.
//
// Whitelisted diagnostics are excluded from the error-vs-warn decision but
// stay visible in Errors for reporting. The rules, applied to the
// non-whitelisted subset:
//
//	empty set, no diagnostics at all  -> ok
//	empty set, but diagnostics exist  -> ignored (everything whitelisted)
//	any error-class diagnostic        -> error
//	otherwise                         -> warn
func (r *ScanResult) recomputeStatus() {
	if len(r.Errors) == 0 {
		r.Status = StatusOK
		return
	}

	hasError := false
	hasVisible := false
	for _, e := range r.Errors {
		if e.Whitelisted {
			continue
		}
		hasVisible = true
		if e.Kind.IsErrorClass() {
			hasError = true
			break
		}
	}

	switch {
	case hasError:
		r.Status = StatusError
	case hasVisible:
		r.Status = StatusWarn
	default:
		r.Status = StatusIgnored
	}
}

// ErrorCount returns the number of non-whitelisted error-class diagnostics.
func (r *ScanResult) ErrorCount() int {
	return r.countKind(true)
}

// WarningCount returns the number of non-whitelisted warning-class
// diagnostics.
func (r *ScanResult) WarningCount() int {
	return r.countKind(false)
}

func (r *ScanResult) countKind(errorClass bool) int {
	n := 0
	for _, e := range r.Errors {
		if e.Whitelisted {
			continue
		}
		if e.Kind.IsErrorClass() == errorClass {
			n += e.OccurrenceCount
		}
	}
	return n
}

// WhitelistedCount returns the number of whitelisted diagnostic records.
func (r *ScanResult) WhitelistedCount() int {
	n := 0
	for _, e := range r.Errors {
		if e.Whitelisted {
			n++
		}
	}
	return n
}

// HasDiagnostics reports whether any diagnostic was recorded.
func (r *ScanResult) HasDiagnostics() bool {
	return len(r.Errors) > 0
}
