package sitemap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/consolescan/internal/config"
)

// discoverTimeout bounds each probe request during auto-discovery.
// Discovery fires many small requests, so it is tighter than a sitemap fetch.
const discoverTimeout = 15 * time.Second

// commonSitemapPaths are the well-known sitemap locations tried in
// priority order when robots.txt yields nothing.
var commonSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap/sitemap.xml",
	"/sitemapindex.xml",
	"/sitemap/index.xml",
}

// Discoverer finds the sitemap URL for a domain.
//
// Strategy:
//  1. Load robots.txt and collect "Sitemap:" entries.
//  2. Try well-known paths (/sitemap.xml, /sitemap_index.xml, ...).
//  3. Return the first candidate that validates as sitemap XML.
type Discoverer struct {
	// Cookies are sent with discovery requests for authenticated hosts.
	Cookies []config.Cookie

	// UserAgent is sent with discovery requests when non-empty.
	UserAgent string

	// client is lazily built; tests may inject one.
	client *http.Client
}

// NewDiscoverer creates a Discoverer carrying the given request decoration.
func NewDiscoverer(cookies []config.Cookie, userAgent string) *Discoverer {
	return &Discoverer{Cookies: cookies, UserAgent: userAgent}
}

// Discover returns the sitemap URL for the given base URL.
// It returns ErrNoSitemap when robots.txt and every well-known path fail.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) (string, error) {
	if d.client == nil {
		d.client = newHTTPClient(discoverTimeout)
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: invalid base URL %q", ErrNoSitemap, baseURL)
	}
	origin := parsed.Scheme + "://" + parsed.Host

	// Phase 1: robots.txt Sitemap entries.
	robotsURL := origin + "/robots.txt"
	slog.Debug("sitemap: checking robots.txt", "url", robotsURL)
	if candidates := d.robotsSitemaps(ctx, robotsURL); len(candidates) > 0 {
		for _, candidate := range candidates {
			if d.isValidSitemap(ctx, candidate) {
				slog.Debug("sitemap: found via robots.txt", "url", candidate)
				return candidate, nil
			}
			slog.Debug("sitemap: robots.txt entry not usable", "url", candidate)
		}
	}

	// Phase 2: well-known paths.
	for _, path := range commonSitemapPaths {
		candidate := origin + path
		slog.Debug("sitemap: probing", "url", candidate)
		if d.isValidSitemap(ctx, candidate) {
			slog.Debug("sitemap: found via well-known path", "url", candidate)
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s (tried robots.txt and %d well-known paths)",
		ErrNoSitemap, baseURL, len(commonSitemapPaths))
}

// robotsSitemaps fetches robots.txt and returns its Sitemap: entries in
// file order. Failures are silent; robots.txt is optional.
func (d *Discoverer) robotsSitemaps(ctx context.Context, robotsURL string) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	d.decorate(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var urls []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < len("sitemap:") || !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		if u := strings.TrimSpace(line[len("sitemap:"):]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// isValidSitemap checks whether the URL serves sitemap XML.
// A HEAD request with an XML-ish content type is accepted directly; some
// servers return wrong or missing types on HEAD, so a small ranged GET
// sniffing for XML markers is the fallback.
func (d *Discoverer) isValidSitemap(ctx context.Context, candidate string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidate, nil)
	if err != nil {
		return false
	}
	d.decorate(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "xml") {
		return true
	}

	return d.sniffXML(ctx, candidate)
}

// sniffXML fetches the first bytes of the candidate and looks for sitemap
// XML markers.
func (d *Discoverer) sniffXML(ctx context.Context, candidate string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		return false
	}
	d.decorate(req)
	req.Header.Set("Range", "bytes=0-512")

	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return false
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil {
		return false
	}

	text := string(head)
	return strings.Contains(text, "<?xml") ||
		strings.Contains(text, "<urlset") ||
		strings.Contains(text, "<sitemapindex")
}

// decorate attaches cookies and the user agent to a request.
func (d *Discoverer) decorate(req *http.Request) {
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
	for _, c := range d.Cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}
