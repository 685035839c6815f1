// Package sitemap loads and parses XML sitemaps into flat URL lists.
// It supports direct sitemap URLs, local sitemap files, sitemap index
// expansion, and auto-discovery of a domain's sitemap via robots.txt
// and well-known paths. When a domain has no sitemap at all, the package
// can fall back to extracting same-host links from the start page.
package sitemap
