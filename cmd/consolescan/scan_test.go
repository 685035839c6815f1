package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/consolescan/internal/config"
	"github.com/nao1215/consolescan/internal/model"
)

// parseScanFlags creates a scan command and parses the given flags.
func parseScanFlags(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()

	cmd := NewScanCmd()
	if err := cmd.ParseFlags(flags); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return cmd
}

// TestBuildConfigDefaults tests the configuration built without flags.
func TestBuildConfigDefaults(t *testing.T) {
	t.Parallel()

	cmd := parseScanFlags(t)
	cfg, err := buildConfig(cmd, []string{"https://example.com/sitemap.xml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Target != "https://example.com/sitemap.xml" {
		t.Errorf("Target = %q, want the positional argument", cfg.Target)
	}
	if cfg.Concurrency != config.DefaultConcurrency {
		t.Errorf("Concurrency = %d, want default %d", cfg.Concurrency, config.DefaultConcurrency)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("Timeout = %v, want default %v", cfg.Timeout, config.DefaultTimeout)
	}
	if cfg.ConsoleLevel != config.DefaultConsoleLevel {
		t.Errorf("ConsoleLevel = %q, want default", cfg.ConsoleLevel)
	}
	if !cfg.Headless {
		t.Error("expected headless by default")
	}
	if !cfg.SaveToDB {
		t.Error("expected history saving by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestBuildConfigFlags tests flag values flowing into the configuration.
func TestBuildConfigFlags(t *testing.T) {
	t.Parallel()

	cmd := parseScanFlags(t,
		"--concurrency", "3",
		"--timeout", "45s",
		"--settle", "1s",
		"--retries", "2",
		"--console-level", "all",
		"--consent", "hide",
		"--cookie", "session=abc",
		"--cookie", "theme=dark",
		"--filter", "/shop",
		"--headless=false",
		"--no-save",
	)

	cfg, err := buildConfig(cmd, []string{"example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.SettleTime != time.Second {
		t.Errorf("SettleTime = %v, want 1s", cfg.SettleTime)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
	}
	if cfg.ConsoleLevel != config.ConsoleLevelAll {
		t.Errorf("ConsoleLevel = %q, want all", cfg.ConsoleLevel)
	}
	if cfg.ConsentMode != config.ConsentHide {
		t.Errorf("ConsentMode = %q, want hide", cfg.ConsentMode)
	}
	if len(cfg.Cookies) != 2 || cfg.Cookies[0].Name != "session" || cfg.Cookies[1].Value != "dark" {
		t.Errorf("Cookies = %+v, want both parsed cookies", cfg.Cookies)
	}
	if cfg.Filter != "/shop" {
		t.Errorf("Filter = %q, want /shop", cfg.Filter)
	}
	if cfg.Headless {
		t.Error("expected headless disabled")
	}
	if cfg.SaveToDB {
		t.Error("expected history saving disabled")
	}
}

// TestBuildConfigInvalidCookie tests the error for malformed cookies.
func TestBuildConfigInvalidCookie(t *testing.T) {
	t.Parallel()

	cmd := parseScanFlags(t, "--cookie", "no-equals-sign")
	if _, err := buildConfig(cmd, []string{"example.com"}); err == nil {
		t.Error("expected error for malformed cookie")
	}
}

// TestBuildConfigExplicitConfigMissing tests the error for a missing
// explicitly specified configuration file.
func TestBuildConfigExplicitConfigMissing(t *testing.T) {
	t.Parallel()

	cmd := parseScanFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := buildConfig(cmd, []string{"example.com"}); err == nil {
		t.Error("expected error for missing config file")
	}
}

// TestBuildConfigLoadsConfigFile tests site configuration loading.
func TestBuildConfigLoadsConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
sites:
  staging.example.com:
    consentMode: hide
    filter: /shop
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cmd := parseScanFlags(t, "--config", path)
	cfg, err := buildConfig(cmd, []string{"staging.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	site := cfg.SiteConfigs.GetSiteConfig("staging.example.com")
	if site.ConsentMode != config.ConsentHide {
		t.Errorf("site ConsentMode = %q, want hide", site.ConsentMode)
	}
	if site.Filter != "/shop" {
		t.Errorf("site Filter = %q, want /shop", site.Filter)
	}
}

// TestResolveTarget tests target resolution without network access.
func TestResolveTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "local file", target: "testdata/sitemap.xml", want: "testdata/sitemap.xml"},
		{name: "sitemap URL", target: "https://example.com/sitemap.xml", want: "https://example.com/sitemap.xml"},
		{name: "bare domain with sitemap path", target: "example.com/sitemap.xml", want: "https://example.com/sitemap.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.Target = tt.target

			got, err := resolveTarget(context.Background(), cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveTarget(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

// TestApplySiteConfig tests filling defaults from per-site configuration.
func TestApplySiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("fills unset values", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Target = "https://staging.example.com/sitemap.xml"
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{
				"staging.example.com": {
					Cookies:     []config.Cookie{{Name: "session", Value: "abc"}},
					ConsentMode: config.ConsentHide,
					Filter:      "/shop",
					Whitelist:   "wl.json",
				},
			},
		}

		applySiteConfig(cfg, "https://staging.example.com/sitemap.xml")

		if len(cfg.Cookies) != 1 || cfg.Cookies[0].Name != "session" {
			t.Errorf("Cookies = %+v, want the site cookie", cfg.Cookies)
		}
		if cfg.ConsentMode != config.ConsentHide {
			t.Errorf("ConsentMode = %q, want hide", cfg.ConsentMode)
		}
		if cfg.Filter != "/shop" {
			t.Errorf("Filter = %q, want /shop", cfg.Filter)
		}
		if cfg.WhitelistPath != "wl.json" {
			t.Errorf("WhitelistPath = %q, want wl.json", cfg.WhitelistPath)
		}
	})

	t.Run("CLI values win", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Target = "https://staging.example.com/sitemap.xml"
		cfg.Cookies = []config.Cookie{{Name: "cli", Value: "1"}}
		cfg.Filter = "/cli"
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{
				"staging.example.com": {
					Cookies: []config.Cookie{{Name: "site", Value: "2"}},
					Filter:  "/site",
				},
			},
		}

		applySiteConfig(cfg, "https://staging.example.com/sitemap.xml")

		if cfg.Cookies[0].Name != "cli" {
			t.Errorf("Cookies = %+v, want CLI cookie kept", cfg.Cookies)
		}
		if cfg.Filter != "/cli" {
			t.Errorf("Filter = %q, want CLI filter kept", cfg.Filter)
		}
	})
}

// TestOutputReportToFile tests writing a report to a file path.
func TestOutputReportToFile(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Target = "https://example.com/sitemap.xml"
	cfg.JSONReport = true
	cfg.ReportFile = filepath.Join(t.TempDir(), "out", "report.json")

	r := model.NewScanResult("https://example.com/")
	r.MarkScanning()
	r.AttemptCount = 1
	r.Finalize()
	results := []*model.ScanResult{r}
	summary := model.NewScanSummary(cfg.Target, 1, results, time.Now(), time.Second)

	if err := outputReport(cfg, results, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("failed to read report file: %v", err)
	}
	if !strings.Contains(string(content), `"summary"`) {
		t.Error("expected JSON report content")
	}
}
