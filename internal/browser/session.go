package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/audits"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/consolescan/internal/config"
	"github.com/nao1215/consolescan/internal/model"
)

// eventBufferSize bounds the channel between the CDP listener and the
// collector goroutine. Busy pages emit bursts of network events; 512
// absorbs them comfortably, and overflow drops events instead of
// blocking the CDP dispatcher.
const eventBufferSize = 512

// Outcome is the result of one page-load attempt.
type Outcome struct {
	// Errors are the diagnostics captured during the attempt, in
	// observation order, not yet deduplicated.
	Errors []*model.PageError

	// RootStatus is the HTTP status of the root document, 0 if unknown.
	RootStatus int64

	// Duration is the wall time of the attempt.
	Duration time.Duration
}

// Session drives single page-load attempts inside leased tabs.
// A Session is immutable after construction and safe for concurrent use.
type Session struct {
	// Timeout bounds one attempt end to end.
	Timeout time.Duration

	// SettleTime is the wait after navigation before consent handling
	// and diagnostic collection finish.
	SettleTime time.Duration

	// ConsoleLevel filters captured console events.
	ConsoleLevel config.ConsoleLevel

	// Consent handles cookie banners after the page settles.
	Consent ConsentHandler

	// Cookies are installed into the browser before navigation.
	Cookies []config.Cookie
}

// NewSession creates a Session from scan configuration.
func NewSession(cfg *config.Config) *Session {
	return &Session{
		Timeout:      cfg.Timeout,
		SettleTime:   cfg.SettleTime,
		ConsoleLevel: cfg.ConsoleLevel,
		Consent:      ConsentHandler{Mode: cfg.ConsentMode},
		Cookies:      cfg.Cookies,
	}
}

// Run performs one load attempt for pageURL in the leased tab.
// On failure it returns a typed *AttemptError. Captured diagnostics are
// returned even for failed attempts; the caller decides whether to keep
// them.
//
// Design decision: The CDP listener callback only forwards events into a
// buffered channel; all interpretation happens on the session goroutine.
// chromedp invokes listeners on its internal dispatch goroutine, and
// doing real work there (or calling back into chromedp) deadlocks.
func (s *Session) Run(ctx context.Context, h *Handle, pageURL string) (*Outcome, error) {
	attemptCtx, cancel := context.WithTimeout(h.Context(), s.Timeout+s.SettleTime)
	defer cancel()

	capturer := NewCapturer(s.ConsoleLevel)
	events := make(chan any, eventBufferSize)
	stop := make(chan struct{})
	drained := make(chan struct{})

	chromedp.ListenTarget(attemptCtx, func(ev any) {
		select {
		case events <- ev:
		default:
			// Overflow: dropping a diagnostic beats stalling the browser.
		}
	})

	go func() {
		defer close(drained)
		for {
			select {
			case ev := <-events:
				capturer.HandleEvent(ev)
			case <-stop:
				for {
					select {
					case ev := <-events:
						capturer.HandleEvent(ev)
					default:
						return
					}
				}
			}
		}
	}()

	start := time.Now()
	runErr := chromedp.Run(attemptCtx,
		network.Enable(),
		cdplog.Enable(),
		audits.Enable(),
		s.setCookies(pageURL),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(s.SettleTime),
	)

	if runErr == nil {
		s.Consent.Apply(attemptCtx, pageURL)
	}

	close(stop)
	<-drained

	outcome := &Outcome{
		Errors:     capturer.Errors(),
		RootStatus: capturer.RootStatus(),
		Duration:   time.Since(start),
	}

	if runErr != nil {
		return outcome, s.classify(ctx, h, runErr)
	}

	// A root document answering 4xx/5xx is an attempt failure, not a page
	// diagnostic; the retry policy owns what happens next.
	if outcome.RootStatus >= 400 {
		return outcome, &AttemptError{Kind: AttemptHTTPError, Status: outcome.RootStatus}
	}

	return outcome, nil
}

// setCookies installs configured cookies for the page host.
func (s *Session) setCookies(pageURL string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(s.Cookies) == 0 {
			return nil
		}
		u, err := url.Parse(pageURL)
		if err != nil || u.Hostname() == "" {
			return nil
		}
		for _, c := range s.Cookies {
			if err := network.SetCookie(c.Name, c.Value).
				WithDomain(u.Hostname()).
				WithPath("/").
				Do(ctx); err != nil {
				slog.Warn("session: failed to set cookie", "cookie", c.Name, "error", err)
			}
		}
		return nil
	})
}

// classify turns a chromedp error into a typed AttemptError.
func (s *Session) classify(ctx context.Context, h *Handle, err error) *AttemptError {
	switch {
	case !h.Healthy():
		return &AttemptError{Kind: AttemptDisconnected, Err: err}
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return &AttemptError{Kind: AttemptTimeout, Err: err}
	default:
		return &AttemptError{Kind: AttemptNavigation, Err: err}
	}
}
