// Package log provides secure logging utilities for consolescan.
//
// Scans regularly run against protected staging environments, which means
// auth cookies and bearer tokens travel through the configuration and can
// leak into log attributes. The SecureHandler wraps any slog.Handler and
// redacts sensitive attribute values before they reach the output.
package log
