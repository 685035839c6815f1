package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/consolescan/internal/config"
	"github.com/nao1215/consolescan/internal/model"
)

// MaxRuns is the number of scan runs kept in the history.
// Older runs are pruned when a new run is saved.
const MaxRuns = 50

// HistoryDB provides SQLite-based storage for scan history.
// It manages connection pooling and provides methods for saving,
// listing, and retrieving past scan runs.
//
// Design decision: We use a single database file for all targets rather
// than one file per site. Cross-target queries (such as "show my last
// ten scans") stay cheap, and backup is a single file copy.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "consolescan.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection avoids
	// SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the path of the database file.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Scan runs store one row per completed scan
	CREATE TABLE IF NOT EXISTS scan_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		summary_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON scan_runs(target);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at);

	-- Page results store the per-URL outcomes of each run
	CREATE TABLE IF NOT EXISTS page_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		attempt_count INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		final_http_status INTEGER,
		errors_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON page_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON page_results(url);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one complete stored scan.
type Run struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Target is the sitemap URL or discovery target of the scan.
	Target string

	// StartedAt is when the scan began.
	StartedAt time.Time

	// Duration is the total scan wall time.
	Duration time.Duration

	// Config holds the configuration the scan ran with.
	Config *config.Config

	// Summary is the aggregated scan outcome.
	Summary *model.ScanSummary

	// Results holds the per-page outcomes in scan start order.
	Results []*model.ScanResult
}

// RunMetadata is the listing view of a stored run: everything needed to
// render a history table without loading the per-page results.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Target is the sitemap URL or discovery target of the scan.
	Target string

	// StartedAt is when the scan began.
	StartedAt time.Time

	// Duration is the total scan wall time.
	Duration time.Duration

	// Summary is the aggregated scan outcome.
	Summary *model.ScanSummary
}

// SaveScan stores a completed scan with its configuration, summary, and
// per-page results, then prunes runs beyond MaxRuns. It returns the new
// run's ID.
func (hdb *HistoryDB) SaveScan(ctx context.Context, cfg *config.Config, results []*model.ScanResult, summary *model.ScanSummary) (int64, error) {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize config: %w", err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	res, err := tx.ExecContext(ctx, `
	INSERT INTO scan_runs (target, started_at, duration_ms, config_json, summary_json)
	VALUES (?, ?, ?, ?, ?)
	`,
		summary.SitemapURL,
		summary.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		summary.Duration.Milliseconds(),
		string(configJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		errorsJSON, err := json.Marshal(r.Errors)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize page errors: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
		INSERT INTO page_results (run_id, url, status, attempt_count, duration_ms, final_http_status, errors_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			r.URL,
			string(r.Status),
			r.AttemptCount,
			r.Duration.Milliseconds(),
			r.FinalHTTPStatus,
			string(errorsJSON),
		); err != nil {
			return 0, fmt.Errorf("failed to insert page result: %w", err)
		}
	}

	// Prune runs beyond the retention limit, oldest first. Page results
	// go with them via the cascading foreign key.
	if _, err := tx.ExecContext(ctx, `
	DELETE FROM page_results WHERE run_id IN (
		SELECT id FROM scan_runs ORDER BY id DESC LIMIT -1 OFFSET ?
	)
	`, MaxRuns); err != nil {
		return 0, fmt.Errorf("failed to prune page results: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
	DELETE FROM scan_runs WHERE id IN (
		SELECT id FROM scan_runs ORDER BY id DESC LIMIT -1 OFFSET ?
	)
	`, MaxRuns); err != nil {
		return 0, fmt.Errorf("failed to prune scan runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan run: %w", err)
	}

	return runID, nil
}

// ListRuns returns metadata of the most recent runs, newest first.
// A limit of 0 or less lists up to MaxRuns entries.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	if limit <= 0 {
		limit = MaxRuns
	}

	rows, err := hdb.db.QueryContext(ctx, `
	SELECT id, target, started_at, duration_ms, summary_json
	FROM scan_runs
	ORDER BY id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var startedAt string
		var durationMS int64
		var summaryJSON string

		if err := rows.Scan(&meta.ID, &meta.Target, &startedAt, &durationMS, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.Duration = time.Duration(durationMS) * time.Millisecond

		var summary model.ScanSummary
		if err := json.Unmarshal([]byte(summaryJSON), &summary); err == nil {
			meta.Summary = &summary
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRun retrieves a complete stored run by ID, including its per-page
// results. Returns nil when the run does not exist.
func (hdb *HistoryDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	var run Run
	var startedAt string
	var durationMS int64
	var configJSON, summaryJSON string

	err := hdb.db.QueryRowContext(ctx, `
	SELECT id, target, started_at, duration_ms, config_json, summary_json
	FROM scan_runs
	WHERE id = ?
	`, id).Scan(&run.ID, &run.Target, &startedAt, &durationMS, &configJSON, &summaryJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.Duration = time.Duration(durationMS) * time.Millisecond

	var cfg config.Config
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse stored config: %w", err)
	}
	run.Config = &cfg

	var summary model.ScanSummary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse stored summary: %w", err)
	}
	run.Summary = &summary

	results, err := hdb.getPageResults(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Results = results

	return &run, nil
}

// getPageResults loads the per-page outcomes of one run in insert order.
func (hdb *HistoryDB) getPageResults(ctx context.Context, runID int64) ([]*model.ScanResult, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT url, status, attempt_count, duration_ms, final_http_status, errors_json
	FROM page_results
	WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get page results: %w", err)
	}
	defer rows.Close()

	var results []*model.ScanResult
	for rows.Next() {
		var url, status, errorsJSON string
		var attemptCount int
		var durationMS int64
		var httpStatus sql.NullInt64

		if err := rows.Scan(&url, &status, &attemptCount, &durationMS, &httpStatus, &errorsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan page result: %w", err)
		}

		r := model.NewScanResult(url)
		r.Status = model.PageStatus(status)
		r.AttemptCount = attemptCount
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if httpStatus.Valid {
			r.FinalHTTPStatus = int(httpStatus.Int64)
		}
		if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
			continue // Skip malformed rows
		}

		results = append(results, r)
	}

	return results, rows.Err()
}

// GetRunConfig retrieves only the stored configuration of a run.
// This is what a re-run needs; the page results stay on disk.
func (hdb *HistoryDB) GetRunConfig(ctx context.Context, id int64) (*config.Config, error) {
	var configJSON string
	err := hdb.db.QueryRowContext(ctx, `
	SELECT config_json FROM scan_runs WHERE id = ?
	`, id).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run config: %w", err)
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse stored config: %w", err)
	}
	return &cfg, nil
}

// RunsForTarget returns metadata of past runs for one target, newest first.
func (hdb *HistoryDB) RunsForTarget(ctx context.Context, target string, limit int) ([]RunMetadata, error) {
	if limit <= 0 {
		limit = MaxRuns
	}

	rows, err := hdb.db.QueryContext(ctx, `
	SELECT id, target, started_at, duration_ms, summary_json
	FROM scan_runs
	WHERE target = ?
	ORDER BY id DESC
	LIMIT ?
	`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs for target: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var startedAt string
		var durationMS int64
		var summaryJSON string

		if err := rows.Scan(&meta.ID, &meta.Target, &startedAt, &durationMS, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.Duration = time.Duration(durationMS) * time.Millisecond

		var summary model.ScanSummary
		if err := json.Unmarshal([]byte(summaryJSON), &summary); err == nil {
			meta.Summary = &summary
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
