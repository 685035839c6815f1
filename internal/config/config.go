package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen based on typical page-load characteristics of
// modern JavaScript-heavy sites.
const (
	// DefaultConcurrency of 8 parallel page sessions balances throughput
	// with Chromium resource usage. Each session is a tab in a shared
	// browser process; higher values increase memory pressure and can make
	// individual page loads slower, skewing timeout behavior.
	DefaultConcurrency = 8

	// DefaultTimeout is the per-attempt page load timeout. 30 seconds is
	// generous enough for slow staging environments while keeping a full
	// retry cycle (3 attempts plus backoff) under two minutes per page.
	DefaultTimeout = 30 * time.Second

	// DefaultSettleTime is how long a session waits after the load event
	// before reading captured diagnostics. Many errors (analytics scripts,
	// lazy-loaded widgets, consent tooling) only fire after load; 2 seconds
	// catches the bulk of them without dominating scan time.
	DefaultSettleTime = 2 * time.Second

	// DefaultConsoleLevel captures console.error and console.warn calls.
	// "error" and "all" are the other accepted levels.
	DefaultConsoleLevel = ConsoleLevelWarn

	// DefaultConsentMode accepts consent banners via vendor APIs or click
	// fallback so that post-consent scripts run and their errors surface.
	DefaultConsentMode = ConsentAccept

	// DefaultUserAgent mimics a current desktop Chrome. Headless Chromium
	// announces itself as "HeadlessChrome", which some consent and bot
	// protection layers special-case; a realistic UA keeps the scanned
	// pages on their normal code path.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// DefaultMaxRetries is the number of load attempts per URL before the
	// page is marked failed.
	DefaultMaxRetries = 3

	// AppName is the application name used for XDG directory paths.
	AppName = "consolescan"
)

// ConsoleLevel selects which console.* call types are captured.
type ConsoleLevel string

// Console capture levels, most to least restrictive.
const (
	// ConsoleLevelError captures only console.error calls.
	ConsoleLevelError ConsoleLevel = "error"

	// ConsoleLevelWarn captures console.error and console.warn calls.
	ConsoleLevelWarn ConsoleLevel = "warn"

	// ConsoleLevelAll captures error, warning, info, log, debug and trace.
	ConsoleLevelAll ConsoleLevel = "all"
)

// Valid reports whether the level is one of the accepted values.
func (l ConsoleLevel) Valid() bool {
	switch l {
	case ConsoleLevelError, ConsoleLevelWarn, ConsoleLevelAll:
		return true
	}
	return false
}

// ConsentMode controls how consent banners are handled during a session.
type ConsentMode string

const (
	// ConsentAccept tries vendor consent APIs, then clicking accept
	// buttons, then hiding banner elements.
	ConsentAccept ConsentMode = "accept"

	// ConsentHide skips interaction and only hides banner elements via
	// injected CSS. Post-consent scripts will not run in this mode.
	ConsentHide ConsentMode = "hide"
)

// Valid reports whether the mode is one of the accepted values.
func (m ConsentMode) Valid() bool {
	return m == ConsentAccept || m == ConsentHide
}

// Cookie is a single cookie attached to browser sessions and sitemap
// fetches, typically an auth cookie for a protected staging environment.
type Cookie struct {
	// Name is the cookie name.
	Name string `yaml:"name"`

	// Value is the cookie value. Treated as sensitive by the log package.
	Value string `yaml:"value"`
}

// ParseCookie parses a "name=value" CLI flag into a Cookie.
// The value may itself contain '=' characters.
func ParseCookie(s string) (Cookie, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Cookie{}, fmt.Errorf("%w: %q (want name=value)", ErrInvalidCookie, s)
	}
	return Cookie{Name: name, Value: value}, nil
}

// Config holds all configuration options for consolescan.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., BrowserConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// Target is the sitemap URL, bare domain, or local sitemap file to scan.
	// Bare domains go through sitemap auto-discovery before scanning.
	Target string

	// Concurrency is the number of pages scanned in parallel.
	// Each concurrent page occupies one tab in the shared browser process.
	Concurrency int

	// Timeout is the page load timeout for a single attempt.
	// This applies per attempt, not to the overall scan duration.
	Timeout time.Duration

	// SettleTime is the wait after the load event before diagnostics are
	// read, so late-firing scripts get a chance to error.
	SettleTime time.Duration

	// ConsoleLevel selects which console call types are captured.
	ConsoleLevel ConsoleLevel

	// ConsentMode selects consent banner handling for each session.
	ConsentMode ConsentMode

	// Cookies are attached to every browser session and sitemap fetch.
	// Typically used for auth cookies on protected environments.
	Cookies []Cookie

	// UserAgent is the User-Agent for browser sessions and HTTP fetches.
	// Defaults to a realistic desktop Chrome string; headless Chromium's
	// own UA trips bot detection on some consent platforms.
	UserAgent string

	// Filter is a case-insensitive substring filter applied to the URL
	// list from the sitemap. Empty means scan every URL.
	Filter string

	// WhitelistPath is the path to a whitelist JSON file of known,
	// ignorable error message patterns. Empty disables whitelisting.
	WhitelistPath string

	// Headless controls whether Chromium runs without a visible window.
	// Disabling it is occasionally useful to watch a misbehaving page.
	Headless bool

	// MaxRetries is the number of load attempts per URL.
	MaxRetries int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .consolescan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config
	// file. This is populated by LoadConfigFile and consulted per target host.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with HTMLReport and MarkdownReport.
	JSONReport bool

	// HTMLReport enables a self-contained HTML report.
	// Mutually exclusive with JSONReport and MarkdownReport.
	HTMLReport bool

	// MarkdownReport enables GitHub Flavored Markdown report output.
	// Mutually exclusive with JSONReport and HTMLReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite history database.
	// When empty, the XDG data directory is used.
	DBDir string

	// SaveToDB indicates whether to save scan results to the history
	// database. Disabled by the --no-save flag.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, concurrency).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Concurrency:  DefaultConcurrency,
		Timeout:      DefaultTimeout,
		SettleTime:   DefaultSettleTime,
		ConsoleLevel: DefaultConsoleLevel,
		ConsentMode:  DefaultConsentMode,
		UserAgent:    DefaultUserAgent,
		Headless:     true,
		MaxRetries:   DefaultMaxRetries,
		SaveToDB:     true,
	}
}

// XDGDataDir returns the XDG data directory for consolescan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/consolescan
// On macOS: ~/Library/Application Support/consolescan
// On Windows: %LOCALAPPDATA%\consolescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for consolescan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scanning begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have a sitemap URL, domain, or local file to scan
	if strings.TrimSpace(c.Target) == "" {
		return ErrNoTarget
	}

	// Concurrency must be positive; zero would mean no scanning
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	// Timeout must be positive; zero timeout would fail every attempt
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// SettleTime may be zero (skip the wait) but not negative
	if c.SettleTime < 0 {
		return ErrInvalidSettleTime
	}

	if !c.ConsoleLevel.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidConsoleLevel, c.ConsoleLevel)
	}

	if !c.ConsentMode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidConsentMode, c.ConsentMode)
	}

	if c.MaxRetries <= 0 {
		return ErrInvalidMaxRetries
	}

	// At most one report format flag may be set
	formats := 0
	for _, set := range []bool{c.JSONReport, c.HTMLReport, c.MarkdownReport} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}
