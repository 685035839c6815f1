package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/consolescan/internal/config"
	"github.com/nao1215/consolescan/internal/database"
	"github.com/nao1215/consolescan/internal/log"
	"github.com/nao1215/consolescan/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and replay past scans",
		Long: `History lists past scans stored in the local database, shows their
full results, and re-runs a scan with the exact configuration it was
originally started with.

Examples:
  # List the most recent scans
  consolescan history

  # Only scans of one target
  consolescan history --target https://example.com/sitemap.xml

  # Show the full report of run 12
  consolescan history --show 12

  # Repeat run 12 with its original settings
  consolescan history --rerun 12`,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "L", 20,
		"Maximum number of runs to list")
	cmd.Flags().String("target", "",
		"Only list runs of this target")
	cmd.Flags().Int64("show", 0,
		"Show the full report of the run with this ID")
	cmd.Flags().Int64("rerun", 0,
		"Re-run the scan with this ID using its stored configuration")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)
	slog.SetDefault(log.NewSecureLogger(os.Stderr, verbose))

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	showID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}
	rerunID, err := cmd.Flags().GetInt64("rerun")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch {
	case rerunID > 0:
		return rerunScan(db, rerunID, verbose)
	case showID > 0:
		return showRun(ctx, cmd, db, showID, verbose)
	default:
		return listRuns(ctx, cmd, db, target, limit)
	}
}

// listRuns prints one line per stored run.
func listRuns(ctx context.Context, cmd *cobra.Command, db *database.HistoryDB, target string, limit int) error {
	var runs []database.RunMetadata
	var err error
	if target != "" {
		runs, err = db.RunsForTarget(ctx, target, limit)
	} else {
		runs, err = db.ListRuns(ctx, limit)
	}
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded yet.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-5s %-17s %-40s %-10s %s\n", "ID", "DATE", "TARGET", "DURATION", "RESULT")
	for _, run := range runs {
		result := "-"
		if s := run.Summary; s != nil {
			if s.Clean() {
				result = fmt.Sprintf("clean (%d pages)", s.ScannedURLs)
			} else {
				result = fmt.Sprintf("%d error(s), %d failed", s.ErrorCount, s.FailedCount)
			}
		}
		fmt.Fprintf(out, "%-5d %-17s %-40s %-10s %s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04"),
			truncate(run.Target, 40),
			run.Duration.Round(time.Second).String(),
			result,
		)
	}
	return nil
}

// showRun prints the full stored report of one run.
func showRun(ctx context.Context, cmd *cobra.Command, db *database.HistoryDB, id int64, verbose bool) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run with ID %d", id)
	}

	writer := report.NewSimpleWriter(cmd.OutOrStdout(),
		report.WithShowClean(true),
		report.WithVerbose(verbose),
	)
	_, err = writer.Write(run.Results, run.Summary)
	return err
}

// rerunScan repeats a stored scan with its original configuration.
// The new run is recorded in the history like any other scan.
func rerunScan(db *database.HistoryDB, id int64, verbose bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := db.GetRunConfig(ctx, id)
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("no run with ID %d", id)
	}
	cfg.Verbose = verbose
	cfg.DBDir = config.XDGDataDir()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("stored configuration is no longer valid: %w", err)
	}

	fmt.Printf("Re-running scan %d: %s\n\n", id, cfg.Target)
	return runScan(ctx, cfg)
}

// truncate shortens a string for table display.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
