// Package database persists scan history in a local SQLite database.
//
// Every completed scan is stored as a run (configuration plus summary)
// with its per-page results, so past scans can be listed, inspected,
// and re-run with the same parameters.
package database
