// Package whitelist loads and matches glob patterns for known, ignorable
// page diagnostics. A whitelist is immutable after load and safe to share
// read-only across all scan workers.
package whitelist
