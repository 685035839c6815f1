package model

import "time"

// ScanSummary aggregates one whole scan run for reporting and history.
type ScanSummary struct {
	// SitemapURL is the sitemap (or discovery target) the scan started from.
	SitemapURL string `json:"sitemap_url"`

	// StartedAt is when the scan began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total scan wall time.
	Duration time.Duration `json:"duration_ms"`

	// TotalURLs is the number of URLs handed to the orchestrator,
	// including ones skipped by filter or cancellation.
	TotalURLs int `json:"total_urls"`

	// ScannedURLs is the number of URLs that reached a terminal result.
	ScannedURLs int `json:"scanned_urls"`

	// Per-status counts over the terminal results.
	OKCount      int `json:"ok_count"`
	WarnCount    int `json:"warn_count"`
	IgnoredCount int `json:"ignored_count"`
	ErrorCount   int `json:"error_count"`
	FailedCount  int `json:"failed_count"`

	// Per-kind totals over all diagnostics, occurrence counts included.
	ConsoleErrors  int `json:"console_errors"`
	ConsoleWarns   int `json:"console_warns"`
	ConsoleInfos   int `json:"console_infos"`
	PageErrors     int `json:"page_errors"`
	CSPViolations  int `json:"csp_violations"`
	RequestFailed  int `json:"requests_failed"`
	HTTPErrors     int `json:"http_errors"`
	WhitelistedHit int `json:"whitelisted_hits"`
}

// NewScanSummary builds a summary from the terminal results of a scan.
// totalURLs is the size of the original URL list; results may be shorter
// when URLs were skipped by filter or cancellation.
func NewScanSummary(sitemapURL string, totalURLs int, results []*ScanResult, startedAt time.Time, duration time.Duration) *ScanSummary {
	s := &ScanSummary{
		SitemapURL: sitemapURL,
		StartedAt:  startedAt,
		Duration:   duration,
		TotalURLs:  totalURLs,
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		s.ScannedURLs++

		switch r.Status {
		case StatusOK:
			s.OKCount++
		case StatusWarn:
			s.WarnCount++
		case StatusIgnored:
			s.IgnoredCount++
		case StatusError:
			s.ErrorCount++
		case StatusFailed:
			s.FailedCount++
		}

		for _, e := range r.Errors {
			if e.Whitelisted {
				s.WhitelistedHit++
			}
			switch e.Kind {
			case KindConsoleError:
				s.ConsoleErrors += e.OccurrenceCount
			case KindConsoleWarn:
				s.ConsoleWarns += e.OccurrenceCount
			case KindConsoleInfo:
				s.ConsoleInfos += e.OccurrenceCount
			case KindPageError:
				s.PageErrors += e.OccurrenceCount
			case KindCSPViolation:
				s.CSPViolations += e.OccurrenceCount
			case KindRequestFailed:
				s.RequestFailed += e.OccurrenceCount
			case KindHTTPError:
				s.HTTPErrors += e.OccurrenceCount
			}
		}
	}

	return s
}

// TotalDiagnostics returns the sum of all diagnostic occurrences.
func (s *ScanSummary) TotalDiagnostics() int {
	return s.ConsoleErrors + s.ConsoleWarns + s.ConsoleInfos +
		s.PageErrors + s.CSPViolations + s.RequestFailed + s.HTTPErrors
}

// Clean reports whether the scan found no errors and no failures.
func (s *ScanSummary) Clean() bool {
	return s.ErrorCount == 0 && s.FailedCount == 0
}
