package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/consolescan/internal/config"
	"github.com/nao1215/consolescan/internal/log"
	"github.com/nao1215/consolescan/internal/sitemap"
)

// NewURLsCmd creates the urls command.
func NewURLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urls <target>",
		Short: "List the URLs a scan would visit",
		Long: `URLs resolves the target's sitemap and prints every URL a scan would
visit, one per line. Useful for checking filters before a long scan or
for piping into other tools.

When the site has no sitemap, --crawl-fallback extracts same-host links
from the start page instead.

Examples:
  # List all sitemap URLs
  consolescan urls example.com

  # Only URLs containing /blog
  consolescan urls --filter /blog example.com

  # Site without a sitemap
  consolescan urls --crawl-fallback example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runURLsCmd,
	}

	cmd.Flags().StringP("filter", "f", "",
		"Only list URLs containing this substring")
	cmd.Flags().StringArray("cookie", nil,
		"Cookie as name=value, sent on every request (repeatable)")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User agent for sitemap fetches")
	cmd.Flags().Bool("crawl-fallback", false,
		"Extract links from the start page when no sitemap exists")

	return cmd
}

// runURLsCmd executes the urls command.
func runURLsCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	cfg.Target = args[0]
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.Filter, err = cmd.Flags().GetString("filter")
	if err != nil {
		return err
	}
	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return err
	}
	rawCookies, err := cmd.Flags().GetStringArray("cookie")
	if err != nil {
		return err
	}
	for _, raw := range rawCookies {
		cookie, err := config.ParseCookie(raw)
		if err != nil {
			return err
		}
		cfg.Cookies = append(cfg.Cookies, cookie)
	}
	crawlFallback, err := cmd.Flags().GetBool("crawl-fallback")
	if err != nil {
		return err
	}

	slog.SetDefault(log.NewSecureLogger(os.Stderr, cfg.Verbose))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	urls, err := collectURLs(ctx, cfg, crawlFallback)
	if err != nil {
		return err
	}

	for _, u := range urls {
		fmt.Fprintln(cmd.OutOrStdout(), u)
	}
	return nil
}

// collectURLs resolves the target and returns the URL list, falling back
// to start-page link extraction when allowed and no sitemap exists.
func collectURLs(ctx context.Context, cfg *config.Config, crawlFallback bool) ([]string, error) {
	target, err := resolveTarget(ctx, cfg)
	if err != nil {
		if !crawlFallback || !errors.Is(err, sitemap.ErrNoSitemap) {
			return nil, err
		}

		base := strings.TrimSpace(cfg.Target)
		if !strings.Contains(base, "://") {
			base = "https://" + base
		}
		slog.Info("no sitemap found, extracting links from start page", "url", base)
		return crawlStartPage(ctx, cfg, base)
	}

	parser := sitemap.NewParser(target,
		sitemap.WithFilter(cfg.Filter),
		sitemap.WithCookies(cfg.Cookies),
		sitemap.WithUserAgent(cfg.UserAgent),
	)
	return parser.Parse(ctx)
}

// crawlStartPage fetches the start page and returns its same-host links,
// filtered like sitemap URLs would be.
func crawlStartPage(ctx context.Context, cfg *config.Config, base string) ([]string, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // Staging certs are often self-signed
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid start page URL: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	for _, c := range cfg.Cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch start page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("start page returned HTTP %d", resp.StatusCode)
	}

	links, err := sitemap.ExtractLinks(base, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to extract links: %w", err)
	}

	if cfg.Filter == "" {
		return links, nil
	}
	filtered := make([]string, 0, len(links))
	for _, l := range links {
		if strings.Contains(l, cfg.Filter) {
			filtered = append(filtered, l)
		}
	}
	return filtered, nil
}
