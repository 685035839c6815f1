package browser

import (
	"testing"

	"github.com/chromedp/cdproto/audits"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/nao1215/consolescan/internal/config"
	"github.com/nao1215/consolescan/internal/model"
)

func consoleEvent(apiType runtime.APIType, text string) *runtime.EventConsoleAPICalled {
	return &runtime.EventConsoleAPICalled{
		Type: apiType,
		Args: []*runtime.RemoteObject{
			{Type: runtime.TypeString, Value: jsontext.Value(`"` + text + `"`)},
		},
	}
}

// TestCapturerConsoleLevels tests console level filtering.
func TestCapturerConsoleLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   config.ConsoleLevel
		apiType runtime.APIType
		want    bool
	}{
		{name: "error level keeps error", level: config.ConsoleLevelError, apiType: runtime.APITypeError, want: true},
		{name: "error level drops warning", level: config.ConsoleLevelError, apiType: runtime.APITypeWarning, want: false},
		{name: "warn level keeps error", level: config.ConsoleLevelWarn, apiType: runtime.APITypeError, want: true},
		{name: "warn level keeps warning", level: config.ConsoleLevelWarn, apiType: runtime.APITypeWarning, want: true},
		{name: "warn level drops info", level: config.ConsoleLevelWarn, apiType: runtime.APITypeInfo, want: false},
		{name: "warn level drops log", level: config.ConsoleLevelWarn, apiType: runtime.APITypeLog, want: false},
		{name: "all level keeps log", level: config.ConsoleLevelAll, apiType: runtime.APITypeLog, want: true},
		{name: "all level keeps trace", level: config.ConsoleLevelAll, apiType: runtime.APITypeTrace, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewCapturer(tt.level)
			c.HandleEvent(consoleEvent(tt.apiType, "something happened"))

			if got := len(c.Errors()) == 1; got != tt.want {
				t.Errorf("captured = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCapturerConsoleKinds tests API type to error kind mapping.
func TestCapturerConsoleKinds(t *testing.T) {
	t.Parallel()

	c := NewCapturer(config.ConsoleLevelAll)
	c.HandleEvent(consoleEvent(runtime.APITypeError, "boom"))
	c.HandleEvent(consoleEvent(runtime.APITypeWarning, "hmm"))
	c.HandleEvent(consoleEvent(runtime.APITypeInfo, "fyi"))

	errs := c.Errors()
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3", len(errs))
	}
	if errs[0].Kind != model.KindConsoleError {
		t.Errorf("errs[0].Kind = %q", errs[0].Kind)
	}
	if errs[1].Kind != model.KindConsoleWarn {
		t.Errorf("errs[1].Kind = %q", errs[1].Kind)
	}
	if errs[2].Kind != model.KindConsoleInfo {
		t.Errorf("errs[2].Kind = %q", errs[2].Kind)
	}
}

// TestCapturerSkipsResourceEcho tests that "Failed to load resource"
// console lines are dropped in favor of the network handler.
func TestCapturerSkipsResourceEcho(t *testing.T) {
	t.Parallel()

	c := NewCapturer(config.ConsoleLevelWarn)
	c.HandleEvent(consoleEvent(runtime.APITypeError,
		"Failed to load resource: the server responded with a status of 404"))

	if len(c.Errors()) != 0 {
		t.Errorf("resource echo should be skipped, got %v", c.Errors())
	}
}

// TestCapturerConsoleSource tests stack frame extraction.
func TestCapturerConsoleSource(t *testing.T) {
	t.Parallel()

	ev := consoleEvent(runtime.APITypeError, "boom")
	ev.StackTrace = &runtime.StackTrace{
		CallFrames: []*runtime.CallFrame{
			{URL: "https://example.com/app.js", LineNumber: 42},
		},
	}

	c := NewCapturer(config.ConsoleLevelWarn)
	c.HandleEvent(ev)

	errs := c.Errors()
	if len(errs) != 1 {
		t.Fatalf("got %d errors", len(errs))
	}
	if errs[0].Source != "https://example.com/app.js" || errs[0].Line != 42 {
		t.Errorf("source = %q line = %d", errs[0].Source, errs[0].Line)
	}
}

// TestCapturerException tests uncaught exception mapping.
func TestCapturerException(t *testing.T) {
	t.Parallel()

	c := NewCapturer(config.ConsoleLevelError)
	c.HandleEvent(&runtime.EventExceptionThrown{
		ExceptionDetails: &runtime.ExceptionDetails{
			Text:       "Uncaught",
			URL:        "https://example.com/app.js",
			LineNumber: 7,
			Exception: &runtime.RemoteObject{
				Description: "TypeError: x is not a function",
			},
		},
	})

	errs := c.Errors()
	if len(errs) != 1 {
		t.Fatalf("got %d errors", len(errs))
	}
	if errs[0].Kind != model.KindPageError {
		t.Errorf("kind = %q", errs[0].Kind)
	}
	if errs[0].Message != "TypeError: x is not a function" {
		t.Errorf("message = %q", errs[0].Message)
	}
	if errs[0].Line != 7 {
		t.Errorf("line = %d", errs[0].Line)
	}
}

// TestCapturerLogEntries tests browser log source mapping.
func TestCapturerLogEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		level    config.ConsoleLevel
		source   cdplog.Source
		wantKind model.ErrorKind
		captured bool
	}{
		{name: "security is csp", level: config.ConsoleLevelWarn, source: cdplog.SourceSecurity, wantKind: model.KindCSPViolation, captured: true},
		{name: "violation is csp", level: config.ConsoleLevelWarn, source: cdplog.SourceViolation, wantKind: model.KindCSPViolation, captured: true},
		{name: "intervention is warn", level: config.ConsoleLevelWarn, source: cdplog.SourceIntervention, wantKind: model.KindConsoleWarn, captured: true},
		{name: "deprecation needs all", level: config.ConsoleLevelWarn, source: cdplog.SourceDeprecation, captured: false},
		{name: "deprecation at all", level: config.ConsoleLevelAll, source: cdplog.SourceDeprecation, wantKind: model.KindConsoleInfo, captured: true},
		{name: "javascript source ignored", level: config.ConsoleLevelAll, source: cdplog.SourceJavascript, captured: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewCapturer(tt.level)
			c.HandleEvent(&cdplog.EventEntryAdded{
				Entry: &cdplog.Entry{Source: tt.source, Text: "refused to load", URL: "https://example.com/"},
			})

			errs := c.Errors()
			if !tt.captured {
				if len(errs) != 0 {
					t.Errorf("expected no capture, got %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1", len(errs))
			}
			if errs[0].Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", errs[0].Kind, tt.wantKind)
			}
		})
	}
}

// TestCapturerCSPIssue tests Audits-domain CSP issue mapping.
func TestCapturerCSPIssue(t *testing.T) {
	t.Parallel()

	c := NewCapturer(config.ConsoleLevelError)
	c.HandleEvent(&audits.EventIssueAdded{
		Issue: &audits.InspectorIssue{
			Code: audits.InspectorIssueCodeContentSecurityPolicyIssue,
			Details: &audits.InspectorIssueDetails{
				ContentSecurityPolicyIssueDetails: &audits.ContentSecurityPolicyIssueDetails{
					ViolatedDirective: "script-src",
					BlockedURL:        "https://evil.example.com/x.js",
					IsReportOnly:      true,
					SourceCodeLocation: &audits.SourceCodeLocation{
						URL:        "https://example.com/",
						LineNumber: 3,
					},
				},
			},
		},
	})

	errs := c.Errors()
	if len(errs) != 1 {
		t.Fatalf("got %d errors", len(errs))
	}
	want := "CSP report-only: 'script-src' blocked https://evil.example.com/x.js"
	if errs[0].Message != want {
		t.Errorf("message = %q, want %q", errs[0].Message, want)
	}
	if errs[0].Kind != model.KindCSPViolation {
		t.Errorf("kind = %q", errs[0].Kind)
	}
	if errs[0].Source != "https://example.com/" || errs[0].Line != 3 {
		t.Errorf("source = %q line = %d", errs[0].Source, errs[0].Line)
	}
}

// TestCapturerResponses tests HTTP error capture and root status tracking.
func TestCapturerResponses(t *testing.T) {
	t.Parallel()

	c := NewCapturer(config.ConsoleLevelError)
	c.HandleEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{URL: "https://example.com/", Status: 200},
	})
	c.HandleEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{URL: "https://example.com/gone.js", Status: 404},
	})
	c.HandleEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeXHR,
		Response: &network.Response{URL: "https://example.com/api", Status: 500},
	})

	if c.RootStatus() != 200 {
		t.Errorf("root status = %d, want 200", c.RootStatus())
	}

	errs := c.Errors()
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2", len(errs))
	}
	if errs[0].Message != "HTTP 404: https://example.com/gone.js" {
		t.Errorf("message = %q", errs[0].Message)
	}
	if errs[0].Kind != model.KindHTTPError || errs[1].Kind != model.KindHTTPError {
		t.Error("wrong kinds for HTTP errors")
	}
}

// TestCapturerLoadingFailed tests request failure mapping and the
// navigation abort skip.
func TestCapturerLoadingFailed(t *testing.T) {
	t.Parallel()

	c := NewCapturer(config.ConsoleLevelError)
	c.HandleEvent(&network.EventRequestWillBeSent{
		RequestID: "req-1",
		Request:   &network.Request{URL: "https://example.com/blocked.js"},
	})
	c.HandleEvent(&network.EventLoadingFailed{
		RequestID: "req-1",
		ErrorText: "net::ERR_BLOCKED_BY_CSP",
	})
	c.HandleEvent(&network.EventLoadingFailed{
		RequestID: "req-2",
		ErrorText: "net::ERR_ABORTED",
	})

	errs := c.Errors()
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1 (aborts skipped)", len(errs))
	}
	want := "Request failed: net::ERR_BLOCKED_BY_CSP - https://example.com/blocked.js"
	if errs[0].Message != want {
		t.Errorf("message = %q, want %q", errs[0].Message, want)
	}
	if errs[0].Kind != model.KindRequestFailed {
		t.Errorf("kind = %q", errs[0].Kind)
	}
}

// TestFormatConsoleArgs tests argument rendering.
func TestFormatConsoleArgs(t *testing.T) {
	t.Parallel()

	got := formatConsoleArgs([]*runtime.RemoteObject{
		{Type: runtime.TypeString, Value: jsontext.Value(`"count:"`)},
		{Type: runtime.TypeNumber, Value: jsontext.Value(`3`)},
		{Type: runtime.TypeObject, Description: "Error: broken"},
		nil,
	})
	want := "count: 3 Error: broken"
	if got != want {
		t.Errorf("formatConsoleArgs = %q, want %q", got, want)
	}
}
