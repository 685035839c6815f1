// Package model defines the core data types shared across consolescan:
// page diagnostics (PageError), per-URL scan results (ScanResult), and
// scan-wide summaries (ScanSummary).
//
// The types in this package are plain data holders with small derivation
// helpers. They carry no I/O and no locking; ownership rules are documented
// on each type (a ScanResult is exclusively owned by the session scanning
// its URL until Finalize, afterwards it is read-only).
package model
