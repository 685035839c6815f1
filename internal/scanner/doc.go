// Package scanner orchestrates the scan of a URL list. It fans the URLs
// out over a bounded set of workers, drives the per-URL retry state
// machine, applies the whitelist, and publishes progress events to
// subscribers while results accumulate.
package scanner
