package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/consolescan/internal/browser"
	"github.com/nao1215/consolescan/internal/config"
	"github.com/nao1215/consolescan/internal/model"
	"github.com/nao1215/consolescan/internal/whitelist"
)

// ErrNoURLs is returned by Scan when the URL list is empty.
var ErrNoURLs = errors.New("scanner: no URLs to scan")

// subscriberBuffer is the event channel capacity per subscriber.
// Sends are non-blocking; a subscriber that falls this far behind loses
// events rather than stalling the scan.
const subscriberBuffer = 256

// Runner executes one page-load attempt. The production implementation
// leases a browser tab; tests substitute scripted outcomes.
type Runner interface {
	Run(ctx context.Context, url string) (*browser.Outcome, error)
}

// PoolRunner is the production Runner: it leases a tab from the pool,
// runs a session in it, and releases the lease with a health verdict.
type PoolRunner struct {
	// Pool supervises the shared browser process.
	Pool *browser.Pool

	// Session drives the page-load attempt.
	Session *browser.Session
}

// Run performs one attempt for the URL in a leased tab.
// A disconnected attempt releases the lease unhealthy, which makes the
// pool restart the browser before the next lease.
func (r *PoolRunner) Run(ctx context.Context, url string) (*browser.Outcome, error) {
	h, err := r.Pool.Lease(ctx)
	if err != nil {
		return nil, err
	}

	outcome, err := r.Session.Run(ctx, h, url)

	healthy := true
	var attemptErr *browser.AttemptError
	if errors.As(err, &attemptErr) && attemptErr.Kind == browser.AttemptDisconnected {
		healthy = false
	}
	r.Pool.Release(h, healthy)

	return outcome, err
}

// Orchestrator runs a whole scan: bounded fan-out over the URL list,
// per-URL retries, whitelist application, and event publication.
type Orchestrator struct {
	cfg    *config.Config
	runner Runner
	wl     *whitelist.Whitelist
	policy Policy
	prober *Prober

	mu          sync.Mutex
	results     []*model.ScanResult
	subscribers []chan Event
	subsClosed  bool
	fatal       bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner substitutes the attempt runner. Used by tests.
func WithRunner(r Runner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithPolicy overrides the retry policy.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithWhitelist sets the whitelist applied to every result.
func WithWhitelist(wl *whitelist.Whitelist) Option {
	return func(o *Orchestrator) { o.wl = wl }
}

// NewOrchestrator creates an Orchestrator. Without WithRunner, a
// PoolRunner over the given pool is used; the pool must be started by
// the caller.
func NewOrchestrator(cfg *config.Config, pool *browser.Pool, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		policy: Policy{MaxAttempts: cfg.MaxRetries, BackoffBase: DefaultBackoffBase},
		prober: NewProber(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = &PoolRunner{Pool: pool, Session: browser.NewSession(cfg)}
	}
	return o
}

// Subscribe returns a channel of scan events. The channel is closed when
// the scan completes. Slow subscribers lose events instead of blocking
// the scan.
func (o *Orchestrator) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subsClosed {
		close(ch)
		return ch
	}
	o.subscribers = append(o.subscribers, ch)
	return ch
}

// Results returns a snapshot of the results created so far, in start
// order. Safe to call while a scan runs; unfinished results may still
// mutate after the snapshot is taken.
func (o *Orchestrator) Results() []*model.ScanResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := make([]*model.ScanResult, 0, len(o.results))
	for _, r := range o.results {
		if r != nil {
			snapshot = append(snapshot, r)
		}
	}
	return snapshot
}

// Cancel stops dequeuing new URLs immediately. In-flight attempts are
// interrupted; URLs that never started are excluded from the result set.
func (o *Orchestrator) Cancel() {
	o.cancelMu.Lock()
	defer o.cancelMu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Scan runs the whole URL list and returns the results of every started
// URL in start order plus a summary. Results are returned even when the
// scan ends early through cancellation or a fatal pool failure; the
// error then reports why the scan is incomplete.
func (o *Orchestrator) Scan(ctx context.Context, urls []string) ([]*model.ScanResult, *model.ScanSummary, error) {
	if len(urls) == 0 {
		return nil, nil, ErrNoURLs
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.cancelMu.Lock()
	o.cancel = cancel
	o.cancelMu.Unlock()

	startedAt := time.Now()
	slog.Info("scan started",
		"urls", len(urls),
		"concurrency", o.cfg.Concurrency,
		"timeout", o.cfg.Timeout,
	)

	// Slots are indexed by URL position so the final result order matches
	// the input order regardless of which worker finishes first.
	slots := make([]*model.ScanResult, len(urls))
	o.mu.Lock()
	o.results = slots
	o.mu.Unlock()

	g := &errgroup.Group{}
	g.SetLimit(o.cfg.Concurrency)

	for i, url := range urls {
		g.Go(func() error {
			// Dequeue gate: a cancelled scan or fatal pool never starts
			// another URL, and the URL then stays out of the results.
			if scanCtx.Err() != nil || o.isFatal() {
				return nil
			}

			result := model.NewScanResult(url)
			result.MarkScanning()
			o.mu.Lock()
			slots[i] = result
			o.mu.Unlock()
			o.publish(Event{Type: EventStarted, URL: url})

			o.scanURL(scanCtx, result)

			o.publish(Event{Type: EventFinished, URL: url, Result: result})
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Workers never return errors; failures live in results

	results := make([]*model.ScanResult, 0, len(urls))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}

	duration := time.Since(startedAt)
	summary := model.NewScanSummary(o.cfg.Target, len(urls), results, startedAt, duration)

	o.publish(Event{Type: EventComplete})
	o.closeSubscribers()

	slog.Info("scan complete",
		"scanned", len(results),
		"total", len(urls),
		"duration", duration,
	)

	var scanErr error
	switch {
	case o.isFatal():
		scanErr = browser.ErrPoolFatal
	case ctx.Err() != nil:
		scanErr = ctx.Err()
	}
	return results, summary, scanErr
}

// scanURL drives the retry state machine for one URL and finalizes its
// result. Every attempt starts from a clean diagnostic set; only the
// diagnostics of the attempt that ends the state machine are kept.
func (o *Orchestrator) scanURL(ctx context.Context, result *model.ScanResult) {
	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		outcome, err := o.runner.Run(ctx, result.URL)
		result.AttemptCount = attempt

		if err == nil {
			o.record(result, outcome)
			result.Finalize()
			return
		}

		if errors.Is(err, browser.ErrPoolFatal) {
			o.markFatal(err)
			o.fail(result, outcome)
			return
		}

		if attempt >= o.policy.MaxAttempts {
			slog.Warn("page failed after final attempt",
				"url", result.URL, "attempts", attempt, "error", err)
			o.fail(result, outcome)
			return
		}

		slog.Debug("attempt failed, will retry",
			"url", result.URL,
			"attempt", attempt,
			"backoff", o.policy.Backoff(attempt),
			"error", err,
		)

		// Diagnostic only: logs whether the target is reachable while we
		// wait, so a retry storm is attributable to the network or the page.
		o.prober.Probe(ctx, result.URL)

		if waitErr := o.policy.Wait(ctx, attempt); waitErr != nil {
			// Cancelled mid-backoff: the URL was started, so it finishes
			// as failed rather than vanishing from the results.
			o.fail(result, outcome)
			return
		}
	}
}

// record applies an attempt's outcome to the result.
func (o *Orchestrator) record(result *model.ScanResult, outcome *browser.Outcome) {
	if outcome == nil {
		return
	}
	result.ResetErrors()
	result.Duration = outcome.Duration
	result.FinalHTTPStatus = int(outcome.RootStatus)
	for _, e := range outcome.Errors {
		result.AddError(e)
		o.publish(Event{Type: EventErrorObserved, URL: result.URL, Error: e})
	}
	o.wl.Apply(result)
}

// fail finalizes a result as failed, keeping the last attempt's partial
// diagnostics for post-mortem value.
func (o *Orchestrator) fail(result *model.ScanResult, outcome *browser.Outcome) {
	o.record(result, outcome)
	result.MarkFailed()
	result.Finalize()
}

// markFatal records the pool failure and publishes EventFatal once.
func (o *Orchestrator) markFatal(err error) {
	o.mu.Lock()
	already := o.fatal
	o.fatal = true
	o.mu.Unlock()

	if !already {
		slog.Error("browser pool failed, aborting remaining URLs", "error", err)
		o.publish(Event{Type: EventFatal, Err: err})
	}
}

// isFatal reports whether the pool has failed.
func (o *Orchestrator) isFatal() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fatal
}

// publish sends an event to every subscriber without blocking.
func (o *Orchestrator) publish(ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subsClosed {
		return
	}
	for _, ch := range o.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// closeSubscribers closes all subscriber channels after the final event.
func (o *Orchestrator) closeSubscribers() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subsClosed {
		return
	}
	o.subsClosed = true
	for _, ch := range o.subscribers {
		close(ch)
	}
}
