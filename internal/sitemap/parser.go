package sitemap

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/nao1215/consolescan/internal/config"
)

// Fetch behavior constants.
const (
	// fetchTimeout bounds a single sitemap HTTP request.
	fetchTimeout = 30 * time.Second

	// maxFetchAttempts is how often a sitemap fetch is retried.
	maxFetchAttempts = 3

	// DefaultBackoffBase is the base for the exponential fetch backoff.
	// Attempt n waits base * 2^(n-1), so 5s, 10s, 20s.
	DefaultBackoffBase = 5 * time.Second

	// maxIndexDepth bounds recursive sitemap index expansion. Real-world
	// indexes nest one level; three covers pathological setups without
	// letting a self-referencing index loop forever.
	maxIndexDepth = 3
)

// Parser loads a sitemap and extracts the URLs it contains.
// Sitemap index files are expanded recursively up to maxIndexDepth.
type Parser struct {
	// Target is the sitemap URL or local file path.
	Target string

	// Filter is a case-insensitive substring filter on extracted URLs.
	// Empty keeps every URL.
	Filter string

	// Cookies are sent with every sitemap request, for sitemaps behind
	// authentication.
	Cookies []config.Cookie

	// UserAgent is sent with every sitemap request when non-empty.
	UserAgent string

	// BackoffBase overrides DefaultBackoffBase when positive.
	BackoffBase time.Duration

	// client is lazily built; tests may inject one.
	client *http.Client
}

// NewParser creates a Parser for the given sitemap URL or local file path.
func NewParser(target string, opts ...ParserOption) *Parser {
	p := &Parser{Target: target}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithFilter sets a case-insensitive substring filter on extracted URLs.
func WithFilter(filter string) ParserOption {
	return func(p *Parser) { p.Filter = filter }
}

// WithCookies attaches cookies to sitemap requests.
func WithCookies(cookies []config.Cookie) ParserOption {
	return func(p *Parser) { p.Cookies = cookies }
}

// WithUserAgent sets the User-Agent for sitemap requests.
func WithUserAgent(ua string) ParserOption {
	return func(p *Parser) { p.UserAgent = ua }
}

// WithHTTPClient injects the HTTP client used for fetches.
func WithHTTPClient(c *http.Client) ParserOption {
	return func(p *Parser) { p.client = c }
}

// WithBackoffBase overrides the retry backoff base.
func WithBackoffBase(d time.Duration) ParserOption {
	return func(p *Parser) { p.BackoffBase = d }
}

// newHTTPClient builds the client used for sitemap and discovery requests.
//
// Design decision: TLS verification is disabled because the primary use
// case is scanning staging environments, which routinely carry self-signed
// or internal-CA certificates. The scanner only reads public page content,
// so the MITM exposure is acceptable for this tool.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // Staging certs are often self-signed
		},
	}
}

// Parse loads the sitemap and returns the contained URLs in document
// order, deduplicated, with the filter applied. Sitemap index documents
// are expanded by fetching each referenced sub-sitemap.
func (p *Parser) Parse(ctx context.Context) ([]string, error) {
	if p.client == nil {
		p.client = newHTTPClient(fetchTimeout)
	}

	urls, err := p.load(ctx, p.Target, 0)
	if err != nil {
		return nil, err
	}

	urls = p.applyFilter(urls)
	urls = dedupe(urls)

	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoURLs, p.Target)
	}
	return urls, nil
}

// load fetches and parses one sitemap document, recursing into index
// entries up to maxIndexDepth.
func (p *Parser) load(ctx context.Context, target string, depth int) ([]string, error) {
	content, err := p.fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	doc, err := parseXML(content)
	if err != nil {
		return nil, err
	}

	if len(doc.Sitemaps) > 0 {
		if depth >= maxIndexDepth {
			slog.Warn("sitemap: index nesting too deep, skipping", "target", target, "depth", depth)
			return nil, nil
		}
		var urls []string
		for _, entry := range doc.Sitemaps {
			sub := strings.TrimSpace(entry.Loc)
			if sub == "" {
				continue
			}
			subURLs, err := p.load(ctx, sub, depth+1)
			if err != nil {
				// One broken sub-sitemap should not sink the whole index.
				slog.Warn("sitemap: sub-sitemap failed", "url", sub, "error", err)
				continue
			}
			urls = append(urls, subURLs...)
		}
		return urls, nil
	}

	urls := make([]string, 0, len(doc.URLs))
	for _, entry := range doc.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		urls = append(urls, SanitizeURL(loc))
	}
	return urls, nil
}

// fetch retrieves the sitemap content from a local file or over HTTP
// with retries.
func (p *Parser) fetch(ctx context.Context, target string) ([]byte, error) {
	if IsLocalFile(target) {
		data, err := os.ReadFile(target) //nolint:gosec // User-provided sitemap path is intentional
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		return data, nil
	}

	backoff := p.BackoffBase
	if backoff <= 0 {
		backoff = DefaultBackoffBase
	}

	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		data, err := p.fetchOnce(ctx, target)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt < maxFetchAttempts {
			wait := backoff << (attempt - 1)
			slog.Debug("sitemap: fetch failed, retrying",
				"url", target, "attempt", attempt, "wait", wait, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v",
		ErrFetchFailed, target, maxFetchAttempts, lastErr)
}

// fetchOnce performs a single HTTP GET for the sitemap.
func (p *Parser) fetchOnce(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	p.decorate(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// decorate attaches cookies and the user agent to a request.
func (p *Parser) decorate(req *http.Request) {
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	for _, c := range p.Cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}

// applyFilter keeps only URLs containing the filter substring,
// case-insensitively.
func (p *Parser) applyFilter(urls []string) []string {
	if p.Filter == "" {
		return urls
	}
	needle := strings.ToLower(p.Filter)
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.Contains(strings.ToLower(u), needle) {
			kept = append(kept, u)
		}
	}
	return kept
}

// sitemapDoc matches both <urlset> and <sitemapindex> documents.
// encoding/xml matches local element names regardless of namespace, which
// covers namespaced sitemaps and the namespace-less ones some generators
// emit with a single struct.
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []locEntry `xml:"url"`
	Sitemaps []locEntry `xml:"sitemap"`
}

// locEntry is a single <url> or <sitemap> element.
type locEntry struct {
	Loc string `xml:"loc"`
}

// parseXML parses sitemap XML content.
func parseXML(content []byte) (*sitemapDoc, error) {
	var doc sitemapDoc
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return &doc, nil
}

// dedupe removes duplicate URLs preserving first-occurrence order.
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	return unique
}

// SanitizeURL percent-encodes parentheses so terminals recognize the whole
// URL when it is printed and clicked.
func SanitizeURL(u string) string {
	u = strings.ReplaceAll(u, "(", "%28")
	return strings.ReplaceAll(u, ")", "%29")
}

// IsSitemapURL reports whether the URL points directly at a sitemap,
// judged by an .xml path suffix.
func IsSitemapURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".xml")
}

// IsLocalFile reports whether the target is an existing local file rather
// than a URL.
func IsLocalFile(target string) bool {
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}
