package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/audits"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"

	"github.com/nao1215/consolescan/internal/config"
	"github.com/nao1215/consolescan/internal/model"
)

// Capturer turns raw CDP events into PageError records.
// It is driven by a single goroutine (the session's event collector), so
// it needs no locking. The request map resolves network request IDs back
// to URLs when a loading failure arrives after the request was sent.
type Capturer struct {
	level config.ConsoleLevel

	// requests maps in-flight request IDs to their URLs.
	requests map[network.RequestID]string

	// rootStatus is the HTTP status of the root document, 0 until seen.
	rootStatus int64

	errors []*model.PageError
}

// NewCapturer creates a Capturer filtering console events at the given level.
func NewCapturer(level config.ConsoleLevel) *Capturer {
	return &Capturer{
		level:    level,
		requests: make(map[network.RequestID]string),
	}
}

// Errors returns the captured diagnostics in observation order.
func (c *Capturer) Errors() []*model.PageError {
	return c.errors
}

// RootStatus returns the root document HTTP status, 0 if never observed.
func (c *Capturer) RootStatus() int64 {
	return c.rootStatus
}

// HandleEvent dispatches one CDP event. Unknown event types are ignored.
func (c *Capturer) HandleEvent(ev any) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		c.onConsoleAPI(e)
	case *runtime.EventExceptionThrown:
		c.onException(e)
	case *cdplog.EventEntryAdded:
		c.onLogEntry(e)
	case *audits.EventIssueAdded:
		c.onIssue(e)
	case *network.EventRequestWillBeSent:
		c.requests[e.RequestID] = e.Request.URL
	case *network.EventResponseReceived:
		c.onResponse(e)
	case *network.EventLoadingFailed:
		c.onLoadingFailed(e)
	}
}

// capturedAPITypes returns whether a console API call type passes the
// configured level.
func (c *Capturer) captured(apiType runtime.APIType) bool {
	switch c.level {
	case config.ConsoleLevelError:
		return apiType == runtime.APITypeError
	case config.ConsoleLevelAll:
		switch apiType {
		case runtime.APITypeError, runtime.APITypeWarning, runtime.APITypeInfo,
			runtime.APITypeLog, runtime.APITypeDebug, runtime.APITypeTrace:
			return true
		}
		return false
	default: // warn
		return apiType == runtime.APITypeError || apiType == runtime.APITypeWarning
	}
}

// onConsoleAPI maps console.* calls to diagnostics.
func (c *Capturer) onConsoleAPI(e *runtime.EventConsoleAPICalled) {
	if !c.captured(e.Type) {
		return
	}

	text := formatConsoleArgs(e.Args)
	if text == "" {
		return
	}

	// Resource load failures are reported separately through the network
	// response handler; the console echo would only produce duplicates
	// with less detail.
	if strings.HasPrefix(text, "Failed to load resource:") {
		return
	}

	kind := model.KindConsoleInfo
	switch e.Type {
	case runtime.APITypeError:
		kind = model.KindConsoleError
	case runtime.APITypeWarning:
		kind = model.KindConsoleWarn
	}

	pe := model.NewPageError(kind, text)
	if e.StackTrace != nil && len(e.StackTrace.CallFrames) > 0 {
		frame := e.StackTrace.CallFrames[0]
		pe.Source = frame.URL
		pe.Line = frame.LineNumber
	}
	c.errors = append(c.errors, pe)
}

// onException maps uncaught page exceptions (TypeError, ReferenceError,
// ...) to diagnostics. These never appear as console API calls.
func (c *Capturer) onException(e *runtime.EventExceptionThrown) {
	d := e.ExceptionDetails
	if d == nil {
		return
	}

	message := d.Text
	if d.Exception != nil && d.Exception.Description != "" {
		message = d.Exception.Description
	}
	if message == "" {
		message = "(unknown error)"
	}

	pe := model.NewPageError(model.KindPageError, message)
	pe.Source = d.URL
	pe.Line = d.LineNumber
	c.errors = append(c.errors, pe)
}

// onLogEntry maps browser-internal log entries. CSP reports arrive here
// with source security or violation; interventions and deprecations are
// informational.
func (c *Capturer) onLogEntry(e *cdplog.EventEntryAdded) {
	entry := e.Entry
	if entry == nil {
		return
	}

	var pe *model.PageError
	switch entry.Source {
	case cdplog.SourceSecurity, cdplog.SourceViolation:
		pe = model.NewPageError(model.KindCSPViolation, "CSP violation: "+entry.Text)
	case cdplog.SourceIntervention:
		pe = model.NewPageError(model.KindConsoleWarn, "Intervention: "+entry.Text)
	case cdplog.SourceDeprecation:
		if c.level != config.ConsoleLevelAll {
			return
		}
		pe = model.NewPageError(model.KindConsoleInfo, "Deprecation: "+entry.Text)
	default:
		return
	}

	pe.Source = entry.URL
	pe.Line = entry.LineNumber
	c.errors = append(c.errors, pe)
}

// onIssue maps Audits-domain issues. Modern Chromium reports CSP
// violations through this domain, not through Log or the console.
func (c *Capturer) onIssue(e *audits.EventIssueAdded) {
	issue := e.Issue
	if issue == nil || issue.Code != audits.InspectorIssueCodeContentSecurityPolicyIssue {
		return
	}
	if issue.Details == nil || issue.Details.ContentSecurityPolicyIssueDetails == nil {
		return
	}
	d := issue.Details.ContentSecurityPolicyIssueDetails

	prefix := "CSP violation"
	if d.IsReportOnly {
		prefix = "CSP report-only"
	}
	message := fmt.Sprintf("%s: '%s'", prefix, d.ViolatedDirective)
	if d.BlockedURL != "" {
		message += " blocked " + d.BlockedURL
	}

	pe := model.NewPageError(model.KindCSPViolation, message)
	if d.SourceCodeLocation != nil {
		pe.Source = d.SourceCodeLocation.URL
		pe.Line = d.SourceCodeLocation.LineNumber
	}
	if pe.Source == "" {
		pe.Source = d.BlockedURL
	}
	c.errors = append(c.errors, pe)
}

// onResponse records failing sub-resource responses and remembers the
// root document status.
func (c *Capturer) onResponse(e *network.EventResponseReceived) {
	if e.Response == nil {
		return
	}
	status := e.Response.Status

	if e.Type == network.ResourceTypeDocument && c.rootStatus == 0 {
		c.rootStatus = status
	}

	if status >= 400 {
		pe := model.NewPageError(model.KindHTTPError,
			fmt.Sprintf("HTTP %d: %s", status, e.Response.URL))
		pe.Source = e.Response.URL
		c.errors = append(c.errors, pe)
	}
}

// onLoadingFailed records failed requests (CSP blocks, DNS errors, reset
// connections). Navigation aborts are routine and skipped.
func (c *Capturer) onLoadingFailed(e *network.EventLoadingFailed) {
	if strings.Contains(e.ErrorText, "net::ERR_ABORTED") {
		return
	}

	url := c.requests[e.RequestID]
	message := "Request failed: " + e.ErrorText
	if url != "" {
		message += " - " + url
	}

	pe := model.NewPageError(model.KindRequestFailed, message)
	pe.Source = url
	c.errors = append(c.errors, pe)
}

// formatConsoleArgs renders console call arguments to a single line the
// way DevTools would, joined by spaces.
func formatConsoleArgs(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		switch {
		case arg.Value != nil:
			s := string(arg.Value)
			// JSON string values keep their quotes in the raw message.
			s = strings.TrimPrefix(s, `"`)
			s = strings.TrimSuffix(s, `"`)
			parts = append(parts, s)
		case arg.Description != "":
			parts = append(parts, arg.Description)
		case arg.UnserializableValue != "":
			parts = append(parts, string(arg.UnserializableValue))
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
