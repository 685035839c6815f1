package scanner

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"
)

// DefaultProbeTimeout bounds the reachability probe before a retry.
const DefaultProbeTimeout = 5 * time.Second

// Prober checks whether a target is reachable at all before a retry.
// The result is logged for diagnosis but never gates the retry: a failed
// probe can be a transient condition that resolves during the backoff,
// and the attempt itself is the authoritative test.
//
// One Prober is shared by every scan worker, so the client is built once
// at construction and never mutated afterwards.
type Prober struct {
	client *http.Client
}

// NewProber creates a Prober with the default timeout.
func NewProber() *Prober {
	return &Prober{
		client: &http.Client{
			Timeout: DefaultProbeTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // Staging certs are often self-signed
			},
		},
	}
}

// Probe sends a HEAD request to the URL and logs the outcome.
// Safe for concurrent use.
func (p *Prober) Probe(ctx context.Context, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		slog.Debug("probe: invalid URL", "url", url, "error", err)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Debug("probe: target unreachable before retry", "url", url, "error", err)
		return
	}
	_ = resp.Body.Close()

	slog.Debug("probe: target reachable", "url", url, "status", resp.StatusCode)
}
