package sitemap

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ExtractLinks parses HTML content and returns the same-host links it
// contains, resolved against baseURL, deduplicated in document order.
// It is the fallback URL source for domains that publish no sitemap.
//
// Design decision: We use golang.org/x/net/html rather than regex because
// it correctly handles the malformed HTML common on the web and gives us
// proper attribute access without fragile patterns.
func ExtractLinks(baseURL string, content io.Reader) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := getAttr(n, "href"); href != "" {
				if resolved := resolveSameHost(base, href); resolved != "" {
					links = append(links, resolved)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return dedupe(links), nil
}

// resolveSameHost resolves href against base and returns the result only
// when it stays on the base host. Fragments are stripped so anchors on the
// same page do not multiply the URL list.
func resolveSameHost(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	// A fragment-only href ("#", "#top") points back at the page itself.
	if u.Host == "" && u.Path == "" && u.RawQuery == "" {
		return ""
	}

	resolved := base.ResolveReference(u)
	if !strings.EqualFold(resolved.Host, base.Host) {
		return ""
	}
	resolved.Fragment = ""

	return SanitizeURL(resolved.String())
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
