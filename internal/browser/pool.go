package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"
)

// startupProbeTimeout bounds the about:blank probe after a browser launch.
const startupProbeTimeout = 30 * time.Second

// Pool supervises a single headless Chromium process shared by all scan
// sessions. Concurrency is bounded by a weighted semaphore: Lease blocks
// until a slot is free, then opens a fresh tab context in the shared
// browser. An unhealthy release marks the browser suspect; the next Lease
// tears the process down and relaunches it before handing out a tab.
//
// Design decision: One browser process with N tabs instead of N browser
// processes. Tabs share the renderer sandbox but a whole Chromium process
// per concurrent page costs hundreds of MB each, and the scanner only
// reads diagnostics, so tab-level isolation is sufficient. Recovery
// replaces the single process, which is the failure unit we actually see
// (OOM kills, crashed GPU process taking the browser down).
type Pool struct {
	// Headless controls whether Chromium runs without a display.
	Headless bool

	// UserAgent is applied at the process level to every session.
	UserAgent string

	sem *semaphore.Weighted

	mu            sync.Mutex
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	suspect       bool
	fatal         bool
	closed        bool
	started       bool
	generation    int
}

// Handle is a leased, exclusive tab context. It is valid until passed
// back to Release.
type Handle struct {
	ctx        context.Context
	cancel     context.CancelFunc
	generation int
	pool       *Pool
}

// Context returns the chromedp tab context for this lease.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Healthy reports whether the parent browser connection is still alive.
func (h *Handle) Healthy() bool {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	return h.pool.browserCtx != nil && h.pool.browserCtx.Err() == nil
}

// NewPool creates a Pool allowing up to concurrency simultaneous leases.
// The browser process is not launched until Start.
func NewPool(concurrency int, headless bool, userAgent string) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{
		Headless:  headless,
		UserAgent: userAgent,
		sem:       semaphore.NewWeighted(int64(concurrency)),
	}
}

// Start launches the browser process and verifies it responds.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.started {
		return nil
	}
	if err := p.launch(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

// launch starts Chromium and probes it. Caller holds the mutex.
func (p *Pool) launch(ctx context.Context) error {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.UserAgent(p.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Startup probe: a browser that cannot load about:blank and report a
	// title will not survive real navigations either.
	probeCtx, probeCancel := context.WithTimeout(browserCtx, startupProbeTimeout)
	defer probeCancel()

	var title string
	if err := chromedp.Run(probeCtx,
		chromedp.Navigate("about:blank"),
		chromedp.Title(&title),
	); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("browser: startup probe failed: %w", err)
	}

	p.allocCtx = allocCtx
	p.allocCancel = allocCancel
	p.browserCtx = browserCtx
	p.browserCancel = browserCancel
	p.suspect = false
	p.generation++

	slog.Debug("browser: process launched", "generation", p.generation, "headless", p.Headless)
	return nil
}

// Lease blocks until a concurrency slot is free, then returns a fresh tab
// context in the shared browser. A suspect browser is restarted first;
// a failed restart puts the pool into a fatal state and every current and
// future Lease returns ErrPoolFatal.
func (p *Pool) Lease(ctx context.Context) (*Handle, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.fatal:
		p.sem.Release(1)
		return nil, ErrPoolFatal
	case p.closed:
		p.sem.Release(1)
		return nil, ErrPoolClosed
	case !p.started:
		p.sem.Release(1)
		return nil, ErrNotStarted
	}

	// A dead CDP connection is treated like an unhealthy release even if
	// nobody reported it yet.
	if p.suspect || p.browserCtx.Err() != nil {
		slog.Warn("browser: restarting suspect browser process", "generation", p.generation)
		p.teardownLocked()
		if err := p.launch(context.Background()); err != nil {
			p.fatal = true
			p.sem.Release(1)
			slog.Error("browser: restart failed, pool is fatal", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrPoolFatal, err)
		}
	}

	tabCtx, tabCancel := chromedp.NewContext(p.browserCtx)
	return &Handle{
		ctx:        tabCtx,
		cancel:     tabCancel,
		generation: p.generation,
		pool:       p,
	}, nil
}

// Release returns a lease. healthy=false marks the browser process
// suspect when the handle belongs to the current process; stale handles
// from an already-replaced process are ignored.
func (p *Pool) Release(h *Handle, healthy bool) {
	if h == nil {
		return
	}
	h.cancel()

	p.mu.Lock()
	if !healthy && h.generation == p.generation {
		p.suspect = true
		slog.Debug("browser: marked suspect by unhealthy release", "generation", p.generation)
	}
	p.mu.Unlock()

	p.sem.Release(1)
}

// Fatal reports whether the pool has entered the unrecoverable state.
func (p *Pool) Fatal() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fatal
}

// Close shuts the browser process down. Outstanding handles become
// invalid; Lease returns ErrPoolClosed afterwards.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.teardownLocked()
}

// teardownLocked cancels the browser and allocator contexts.
// Caller holds the mutex.
func (p *Pool) teardownLocked() {
	if p.browserCancel != nil {
		p.browserCancel()
		p.browserCancel = nil
	}
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	p.browserCtx = nil
	p.allocCtx = nil
}
