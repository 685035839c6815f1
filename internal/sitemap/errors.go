package sitemap

import "errors"

// Sitemap loading and discovery errors, usable with errors.Is.
var (
	// ErrNoURLs is returned when a sitemap parses successfully but
	// contains no usable URLs after filtering. Scanning cannot proceed.
	ErrNoURLs = errors.New("sitemap: no URLs found")

	// ErrNoSitemap is returned when auto-discovery exhausts robots.txt
	// entries and all well-known paths without finding a sitemap.
	ErrNoSitemap = errors.New("sitemap: no sitemap found for domain")

	// ErrFetchFailed is returned when the sitemap cannot be fetched after
	// all retry attempts.
	ErrFetchFailed = errors.New("sitemap: fetch failed")

	// ErrParseFailed is returned when the sitemap content is not valid XML.
	ErrParseFailed = errors.New("sitemap: parse failed")
)
