package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/nao1215/consolescan/internal/config"
)

// Consent wait times. Accepting consent usually triggers another wave of
// script loading (tag managers, analytics), which is exactly the traffic
// the scanner wants to observe before reading diagnostics.
const (
	consentSettleAfterAccept = 2 * time.Second
	consentSettleAfterHide   = 1 * time.Second
)

// consentAPIJS calls the consent platform's own accept API when one is
// present. The platform name is returned so logs show which one answered.
// API acceptance is preferred over clicking because it works regardless
// of banner markup and language.
const consentAPIJS = `(() => {
	if (window.UC_UI && typeof window.UC_UI.acceptAllConsents === 'function') {
		window.UC_UI.acceptAllConsents();
		return 'usercentrics';
	}
	if (window.OneTrust && typeof window.OneTrust.AllowAll === 'function') {
		window.OneTrust.AllowAll();
		return 'onetrust';
	}
	if (window.Cookiebot && typeof window.Cookiebot.submitCustomConsent === 'function') {
		window.Cookiebot.submitCustomConsent(true, true, true);
		return 'cookiebot';
	}
	return '';
})()`

// consentClickJS clicks the first visible accept button from the known
// selector list and returns the selector that matched. Vendor-specific
// selectors come first; the generic ones are a last resort and may
// occasionally hit a non-consent button, which is acceptable for a
// diagnostic scanner.
const consentClickJS = `(() => {
	const selectors = [
		'[data-testid="uc-accept-all-button"]',
		'#uc-btn-accept-banner',
		'.uc-btn-accept',
		'#onetrust-accept-btn-handler',
		'.onetrust-close-btn-handler',
		'#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll',
		'#CybotCookiebotDialogBodyButtonAccept',
		'[data-cookie-accept]',
		'[data-consent-accept]',
		'button[class*="accept"]',
		'button[class*="consent"]',
		'a[class*="accept"]',
		'.cookie-accept',
		'.cookie-consent-accept',
		'#cookie-accept',
		'#accept-cookies',
		'.cc-accept',
		'.cc-btn.cc-allow',
	];
	for (const sel of selectors) {
		try {
			const el = document.querySelector(sel);
			if (el && el.offsetParent !== null) {
				el.click();
				return sel;
			}
		} catch (e) {}
	}
	return '';
})()`

// consentHideJS hides known banner containers via display:none, including
// banners inside the Usercentrics shadow root, and restores scrolling on
// the body. Hiding runs even after a successful accept: some banners keep
// a confirmation layer on screen that would otherwise sit in screenshots
// and block clicks.
const consentHideJS = `(() => {
	const selectors = [
		'#usercentrics-root',
		'#uc-banner',
		'.uc-banner',
		'#onetrust-banner-sdk',
		'#onetrust-consent-sdk',
		'#CybotCookiebotDialog',
		'#CybotCookiebotDialogBodyUnderlay',
		'.cookie-banner',
		'.cookie-consent',
		'.cookie-notice',
		'[class*="cookie-banner"]',
		'[class*="cookie-consent"]',
		'[id*="cookie-banner"]',
		'[id*="cookie-consent"]',
		'[class*="consent-banner"]',
		'[class*="CookieConsent"]',
	];
	for (const sel of selectors) {
		try {
			document.querySelectorAll(sel).forEach((el) => { el.style.display = 'none'; });
		} catch (e) {}
	}
	const ucRoot = document.getElementById('usercentrics-root');
	if (ucRoot && ucRoot.shadowRoot) {
		ucRoot.shadowRoot.querySelectorAll('[class*="banner"]')
			.forEach((el) => { el.style.display = 'none'; });
	}
	document.body.style.overflow = '';
	document.documentElement.style.overflow = '';
	return '';
})()`

// ConsentHandler deals with cookie consent banners in a loaded page.
//
// Mode accept runs three phases, short-circuiting on success:
//  1. Vendor consent APIs (Usercentrics, OneTrust, Cookiebot).
//  2. Clicking a known accept button.
//  3. Hiding banner elements via CSS, always, as final cleanup.
//
// Mode hide skips interaction and only hides. A missing banner is silent
// success; a throwing page script is logged and never fails the attempt.
type ConsentHandler struct {
	// Mode selects accept or hide-only behavior.
	Mode config.ConsentMode
}

// Apply handles the consent banner in the page behind ctx, which must be
// a chromedp tab context.
func (c *ConsentHandler) Apply(ctx context.Context, pageURL string) {
	if c.Mode == config.ConsentHide {
		c.hide(ctx, pageURL)
		sleep(ctx, consentSettleAfterHide)
		return
	}

	// Phase 1: vendor API.
	var vendor string
	if err := chromedp.Run(ctx, chromedp.Evaluate(consentAPIJS, &vendor)); err != nil {
		slog.Info("consent: API phase failed", "url", pageURL, "error", err)
	} else if vendor != "" {
		slog.Debug("consent: accepted via vendor API", "url", pageURL, "vendor", vendor)
		sleep(ctx, consentSettleAfterAccept)
		c.hide(ctx, pageURL)
		return
	}

	// Phase 2: click fallback.
	var selector string
	if err := chromedp.Run(ctx, chromedp.Evaluate(consentClickJS, &selector)); err != nil {
		slog.Info("consent: click phase failed", "url", pageURL, "error", err)
	} else if selector != "" {
		slog.Debug("consent: accepted via click", "url", pageURL, "selector", selector)
		sleep(ctx, consentSettleAfterAccept)
	}

	// Phase 3: hide whatever is left.
	c.hide(ctx, pageURL)
	if selector == "" {
		sleep(ctx, consentSettleAfterHide)
	}
}

// hide runs the CSS hide script, logging failures without surfacing them.
func (c *ConsentHandler) hide(ctx context.Context, pageURL string) {
	var ignored string
	if err := chromedp.Run(ctx, chromedp.Evaluate(consentHideJS, &ignored)); err != nil {
		slog.Info("consent: hide phase failed", "url", pageURL, "error", err)
	}
}

// sleep waits or returns early when the context ends.
func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
