package sitemap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const discoverableXML = `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
</urlset>`

// TestDiscoverViaRobots tests discovery through a robots.txt Sitemap entry.
func TestDiscoverViaRobots(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /admin\nSitemap: " + srv.URL + "/custom/map.xml\n"))
	})
	mux.HandleFunc("/custom/map.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(discoverableXML))
	})

	got, err := NewDiscoverer(nil, "").Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != srv.URL+"/custom/map.xml" {
		t.Errorf("Discover = %q", got)
	}
}

// TestDiscoverViaCommonPath tests the well-known path fallback when
// robots.txt has no usable entry.
func TestDiscoverViaCommonPath(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(discoverableXML))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	got, err := NewDiscoverer(nil, "").Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// /sitemap.xml is probed first but 404s; the index path is next.
	if got != srv.URL+"/sitemap_index.xml" {
		t.Errorf("Discover = %q", got)
	}
}

// TestDiscoverSniffFallback tests content sniffing when HEAD reports a
// non-XML content type.
func TestDiscoverSniffFallback(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		// Misconfigured server: generic content type, real XML body.
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(discoverableXML))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	got, err := NewDiscoverer(nil, "").Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != srv.URL+"/sitemap.xml" {
		t.Errorf("Discover = %q", got)
	}
}

// TestDiscoverNothingFound tests ErrNoSitemap when every probe fails.
func TestDiscoverNothingFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	if _, err := NewDiscoverer(nil, "").Discover(context.Background(), srv.URL); !errors.Is(err, ErrNoSitemap) {
		t.Errorf("expected ErrNoSitemap, got %v", err)
	}
}

// TestDiscoverInvalidBaseURL tests bad input handling.
func TestDiscoverInvalidBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewDiscoverer(nil, "").Discover(context.Background(), "not a url"); !errors.Is(err, ErrNoSitemap) {
		t.Errorf("expected ErrNoSitemap, got %v", err)
	}
}
