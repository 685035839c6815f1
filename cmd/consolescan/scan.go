package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/consolescan/internal/browser"
	"github.com/nao1215/consolescan/internal/config"
	"github.com/nao1215/consolescan/internal/database"
	"github.com/nao1215/consolescan/internal/log"
	"github.com/nao1215/consolescan/internal/model"
	"github.com/nao1215/consolescan/internal/report"
	"github.com/nao1215/consolescan/internal/scanner"
	"github.com/nao1215/consolescan/internal/sitemap"
	"github.com/nao1215/consolescan/internal/whitelist"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <target>",
		Short: "Scan a website for console errors",
		Long: `Scan loads every page of a website in a headless browser and reports
JavaScript console errors, uncaught exceptions, CSP violations, HTTP
errors, and failed network requests.

The target can be a sitemap URL, a bare domain (the sitemap is then
discovered via robots.txt and common paths), or a local sitemap file.

Examples:
  # Scan all pages of a sitemap
  consolescan scan https://example.com/sitemap.xml

  # Discover the sitemap automatically
  consolescan scan example.com

  # Scan a staging host behind cookie auth, errors only
  consolescan scan --cookie "session=abc123" --console-level error staging.example.com

  # Only URLs containing /shop, write an HTML report
  consolescan scan --filter /shop --html -o report.html example.com

  # Suppress known errors via whitelist
  consolescan scan --whitelist known-errors.json example.com

Configuration file (.consolescan) example:
  sites:
    staging.example.com:
      cookies:
        - name: session
          value: abc123
      consentMode: hide
      whitelist: staging-whitelist.json`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	// Scan behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pages scanned in parallel (browser tabs)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Navigation timeout per page")
	cmd.Flags().Duration("settle", config.DefaultSettleTime,
		"Extra wait after page load to let async errors surface")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxRetries,
		"Number of load attempts per page")

	// Capture flags
	cmd.Flags().StringP("console-level", "l", string(config.DefaultConsoleLevel),
		"Console capture level: error, warn, or all")
	cmd.Flags().StringP("whitelist", "w", "",
		"Path to a whitelist JSON file with glob patterns to suppress")

	// Browser flags
	cmd.Flags().String("consent", string(config.DefaultConsentMode),
		"Cookie consent handling: accept or hide")
	cmd.Flags().StringArray("cookie", nil,
		"Cookie as name=value, sent on every request (repeatable)")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User agent for browser sessions and sitemap fetches")
	cmd.Flags().Bool("headless", true,
		"Run the browser headless (disable to watch the scan)")

	// URL selection
	cmd.Flags().StringP("filter", "f", "",
		"Only scan URLs containing this substring")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .consolescan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report")
	cmd.Flags().Bool("html", false,
		"Output self-contained HTML report")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not record this scan in the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cfg)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Target = args[0]
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}
	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	cfg.SettleTime, err = cmd.Flags().GetDuration("settle")
	if err != nil {
		return nil, err
	}
	cfg.MaxRetries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	level, err := cmd.Flags().GetString("console-level")
	if err != nil {
		return nil, err
	}
	cfg.ConsoleLevel = config.ConsoleLevel(level)

	consent, err := cmd.Flags().GetString("consent")
	if err != nil {
		return nil, err
	}
	cfg.ConsentMode = config.ConsentMode(consent)

	rawCookies, err := cmd.Flags().GetStringArray("cookie")
	if err != nil {
		return nil, err
	}
	for _, raw := range rawCookies {
		cookie, err := config.ParseCookie(raw)
		if err != nil {
			return nil, err
		}
		cfg.Cookies = append(cfg.Cookies, cookie)
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}
	cfg.Headless, err = cmd.Flags().GetBool("headless")
	if err != nil {
		return nil, err
	}
	cfg.Filter, err = cmd.Flags().GetString("filter")
	if err != nil {
		return nil, err
	}
	cfg.WhitelistPath, err = cmd.Flags().GetString("whitelist")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// An explicitly specified path must exist; an implicit lookup that
	// finds nothing falls back to an empty config.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.HTMLReport, err = cmd.Flags().GetBool("html")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
}

// runScan resolves the target, scans all URLs, and outputs the report.
func runScan(ctx context.Context, cfg *config.Config) error {
	target, err := resolveTarget(ctx, cfg)
	if err != nil {
		return err
	}
	applySiteConfig(cfg, target)

	var wl *whitelist.Whitelist
	if cfg.WhitelistPath != "" {
		wl, err = whitelist.Load(cfg.WhitelistPath)
		if err != nil {
			return fmt.Errorf("failed to load whitelist: %w", err)
		}
		fmt.Printf("Whitelist loaded: %d pattern(s)\n", wl.Len())
	}

	parser := sitemap.NewParser(target,
		sitemap.WithFilter(cfg.Filter),
		sitemap.WithCookies(cfg.Cookies),
		sitemap.WithUserAgent(cfg.UserAgent),
	)
	urls, err := parser.Parse(ctx)
	if err != nil {
		return fmt.Errorf("failed to read sitemap: %w", err)
	}
	fmt.Printf("Found %d URL(s) in %s\n\n", len(urls), target)

	pool := browser.NewPool(cfg.Concurrency, cfg.Headless, cfg.UserAgent)
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer pool.Close()

	orch := scanner.NewOrchestrator(cfg, pool, scanner.WithWhitelist(wl))
	events := orch.Subscribe()

	// Progress lines stream while workers run; the channel closes after
	// the final Complete event so the drain goroutine ends with the scan.
	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(events, len(urls))
	}()

	results, summary, scanErr := orch.Scan(ctx, urls)
	<-done
	fmt.Println()

	if err := outputReport(cfg, results, summary); err != nil {
		slog.Error("report output failed", "error", err)
	}

	if cfg.SaveToDB {
		if err := saveScan(ctx, cfg, results, summary); err != nil {
			slog.Error("failed to save scan to history", "error", err)
		}
	}

	return scanErr
}

// printProgress renders one line per finished page until the scan ends.
func printProgress(events <-chan scanner.Event, total int) {
	finished := 0
	for ev := range events {
		switch ev.Type {
		case scanner.EventFinished:
			finished++
			r := ev.Result
			line := fmt.Sprintf("[%d/%d] %-7s %s", finished, total, strings.ToUpper(string(r.Status)), r.URL)
			if n := len(r.Errors); n > 0 {
				line += fmt.Sprintf(" (%d finding(s))", n)
			}
			fmt.Println(line)
		case scanner.EventFatal:
			fmt.Fprintf(os.Stderr, "browser failed, aborting remaining pages: %v\n", ev.Err)
		}
	}
}

// resolveTarget turns the CLI target into something the sitemap parser
// can fetch: local files and explicit sitemap URLs pass through, bare
// domains go through sitemap discovery.
func resolveTarget(ctx context.Context, cfg *config.Config) (string, error) {
	target := strings.TrimSpace(cfg.Target)

	if sitemap.IsLocalFile(target) {
		return target, nil
	}

	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	if sitemap.IsSitemapURL(target) {
		return target, nil
	}

	// Progress goes to stderr so `urls` output stays pipeable.
	fmt.Fprintf(os.Stderr, "Discovering sitemap for %s...\n", target)
	discoverer := sitemap.NewDiscoverer(cfg.Cookies, cfg.UserAgent)
	found, err := discoverer.Discover(ctx, target)
	if err != nil {
		return "", fmt.Errorf("no sitemap found for %s: %w (pass the sitemap URL directly)", target, err)
	}
	fmt.Fprintf(os.Stderr, "Sitemap found: %s\n", found)
	return found, nil
}

// applySiteConfig fills configuration gaps from the per-site section of
// the config file. Explicit CLI values win: only fields still at their
// defaults are overridden.
func applySiteConfig(cfg *config.Config, target string) {
	if cfg.SiteConfigs == nil {
		return
	}

	host := target
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	site := cfg.SiteConfigs.GetSiteConfig(host)

	if len(cfg.Cookies) == 0 && len(site.Cookies) > 0 {
		cfg.Cookies = site.Cookies
	}
	if cfg.UserAgent == config.DefaultUserAgent && site.UserAgent != "" {
		cfg.UserAgent = site.UserAgent
	}
	if cfg.ConsentMode == config.DefaultConsentMode && site.ConsentMode != "" && site.ConsentMode.Valid() {
		cfg.ConsentMode = site.ConsentMode
	}
	if cfg.Filter == "" && site.Filter != "" {
		cfg.Filter = site.Filter
	}
	if cfg.WhitelistPath == "" && site.Whitelist != "" {
		cfg.WhitelistPath = site.Whitelist
	}
}

// outputReport writes the scan report in the requested format.
func outputReport(cfg *config.Config, results []*model.ScanResult, summary *model.ScanSummary) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain cookie-protected staging URLs, so they are
		// only readable by the owner.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.HTMLReport:
		writer = report.NewHTMLWriter(output)
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(results, summary)
	if err == nil && cfg.ReportFile != "" {
		fmt.Printf("Report written to %s\n", cfg.ReportFile)
	}
	return err
}

// saveScan records the completed scan in the history database.
func saveScan(ctx context.Context, cfg *config.Config, results []*model.ScanResult, summary *model.ScanSummary) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	// The save must finish even when the scan context was cancelled.
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runID, err := db.SaveScan(saveCtx, cfg, results, summary)
	if err != nil {
		return err
	}

	slog.Info("scan saved to history", "run_id", runID, "db", db.Path())
	return nil
}
