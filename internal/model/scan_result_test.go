package model

import "testing"

// TestScanResultAddError tests deduplication behavior.
func TestScanResultAddError(t *testing.T) {
	t.Parallel()

	t.Run("collapses identical diagnostics into one record", func(t *testing.T) {
		t.Parallel()

		r := NewScanResult("https://example.com/")

		if !r.AddError(NewPageError(KindConsoleError, "AppInsights nicht gefunden")) {
			t.Fatal("first add should append a new record")
		}
		if r.AddError(NewPageError(KindConsoleError, "AppInsights nicht gefunden")) {
			t.Fatal("second add should collapse into the existing record")
		}

		if len(r.Errors) != 1 {
			t.Fatalf("expected 1 record, got %d", len(r.Errors))
		}
		if got := r.Errors[0].OccurrenceCount; got != 2 {
			t.Errorf("expected occurrence count 2, got %d", got)
		}
		if r.Status != StatusError {
			t.Errorf("expected status error, got %s", r.Status)
		}
	})

	t.Run("dedup is case and whitespace insensitive", func(t *testing.T) {
		t.Parallel()

		r := NewScanResult("https://example.com/")
		r.AddError(NewPageError(KindConsoleWarn, "Mixed  Content Warning"))
		r.AddError(NewPageError(KindConsoleWarn, "mixed content   warning"))

		if len(r.Errors) != 1 {
			t.Fatalf("expected 1 record, got %d", len(r.Errors))
		}
	})

	t.Run("different kinds stay separate", func(t *testing.T) {
		t.Parallel()

		r := NewScanResult("https://example.com/")
		r.AddError(NewPageError(KindConsoleError, "boom"))
		r.AddError(NewPageError(KindPageError, "boom"))

		if len(r.Errors) != 2 {
			t.Fatalf("expected 2 records, got %d", len(r.Errors))
		}
	})

	t.Run("preserves insertion order", func(t *testing.T) {
		t.Parallel()

		r := NewScanResult("https://example.com/")
		r.AddError(NewPageError(KindConsoleWarn, "first"))
		r.AddError(NewPageError(KindConsoleError, "second"))
		r.AddError(NewPageError(KindConsoleWarn, "first")) // duplicate
		r.AddError(NewPageError(KindHTTPError, "third"))

		want := []string{"first", "second", "third"}
		if len(r.Errors) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(r.Errors))
		}
		for i, msg := range want {
			if r.Errors[i].Message != msg {
				t.Errorf("record %d: got %q, want %q", i, r.Errors[i].Message, msg)
			}
		}
	})

	t.Run("ignores adds after finalize", func(t *testing.T) {
		t.Parallel()

		r := NewScanResult("https://example.com/")
		r.Finalize()

		if r.AddError(NewPageError(KindConsoleError, "late")) {
			t.Error("add after finalize should be ignored")
		}
		if len(r.Errors) != 0 {
			t.Errorf("expected 0 records, got %d", len(r.Errors))
		}
	})
}

// TestScanResultStatusDerivation tests the status rule table.
func TestScanResultStatusDerivation(t *testing.T) {
	t.Parallel()

	whitelisted := func(kind ErrorKind, msg string) *PageError {
		e := NewPageError(kind, msg)
		e.Whitelisted = true
		return e
	}

	tests := []struct {
		name   string
		errors []*PageError
		want   PageStatus
	}{
		{
			name:   "no diagnostics is ok",
			errors: nil,
			want:   StatusOK,
		},
		{
			name:   "only warnings is warn",
			errors: []*PageError{NewPageError(KindConsoleWarn, "w")},
			want:   StatusWarn,
		},
		{
			name:   "console info counts as warning class",
			errors: []*PageError{NewPageError(KindConsoleInfo, "i")},
			want:   StatusWarn,
		},
		{
			name:   "request failure counts as warning class",
			errors: []*PageError{NewPageError(KindRequestFailed, "net::ERR_CONNECTION_RESET")},
			want:   StatusWarn,
		},
		{
			name:   "any console error is error",
			errors: []*PageError{NewPageError(KindConsoleWarn, "w"), NewPageError(KindConsoleError, "e")},
			want:   StatusError,
		},
		{
			name:   "csp violation is error",
			errors: []*PageError{NewPageError(KindCSPViolation, "CSP violation: 'script-src'")},
			want:   StatusError,
		},
		{
			name:   "http error is error",
			errors: []*PageError{NewPageError(KindHTTPError, "HTTP 404: https://example.com/x.js")},
			want:   StatusError,
		},
		{
			name:   "all whitelisted is ignored",
			errors: []*PageError{whitelisted(KindConsoleError, "known"), whitelisted(KindConsoleWarn, "also known")},
			want:   StatusIgnored,
		},
		{
			name:   "whitelisted error plus plain warning is warn",
			errors: []*PageError{whitelisted(KindConsoleError, "known"), NewPageError(KindConsoleWarn, "w")},
			want:   StatusWarn,
		},
		{
			name:   "whitelisted error plus plain error is error",
			errors: []*PageError{whitelisted(KindConsoleError, "known"), NewPageError(KindConsoleError, "new")},
			want:   StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewScanResult("https://example.com/")
			for _, e := range tt.errors {
				r.AddError(e)
			}
			r.Finalize()

			if r.Status != tt.want {
				t.Errorf("got status %s, want %s", r.Status, tt.want)
			}
		})
	}
}

// TestScanResultFailed tests the failed terminal state.
func TestScanResultFailed(t *testing.T) {
	t.Parallel()

	r := NewScanResult("https://example.com/")
	r.AddError(NewPageError(KindRequestFailed, "net::ERR_NAME_NOT_RESOLVED"))
	r.AttemptCount = 3
	r.MarkFailed()
	r.Finalize()

	if r.Status != StatusFailed {
		t.Errorf("expected failed, got %s", r.Status)
	}
	// Partial diagnostics from the last attempt stay visible.
	if len(r.Errors) != 1 {
		t.Errorf("expected partial diagnostics to be kept, got %d", len(r.Errors))
	}
}

// TestScanResultResetErrors tests the clean-set-per-attempt rule.
func TestScanResultResetErrors(t *testing.T) {
	t.Parallel()

	r := NewScanResult("https://example.com/")
	r.AddError(NewPageError(KindConsoleError, "from failed attempt"))
	r.ResetErrors()

	if len(r.Errors) != 0 {
		t.Fatalf("expected empty diagnostic set after reset, got %d", len(r.Errors))
	}

	// The dedup index must reset too; the same message is a new record.
	if !r.AddError(NewPageError(KindConsoleError, "from failed attempt")) {
		t.Error("expected a fresh record after reset")
	}
	if r.Errors[0].OccurrenceCount != 1 {
		t.Errorf("expected occurrence count 1, got %d", r.Errors[0].OccurrenceCount)
	}
}

// TestScanResultCounts tests the count helpers.
func TestScanResultCounts(t *testing.T) {
	t.Parallel()

	r := NewScanResult("https://example.com/")
	r.AddError(NewPageError(KindConsoleError, "e"))
	r.AddError(NewPageError(KindConsoleError, "e")) // occurrence 2
	r.AddError(NewPageError(KindConsoleWarn, "w"))
	wl := NewPageError(KindConsoleError, "known")
	wl.Whitelisted = true
	r.AddError(wl)

	if got := r.ErrorCount(); got != 2 {
		t.Errorf("ErrorCount() = %d, want 2", got)
	}
	if got := r.WarningCount(); got != 1 {
		t.Errorf("WarningCount() = %d, want 1", got)
	}
	if got := r.WhitelistedCount(); got != 1 {
		t.Errorf("WhitelistedCount() = %d, want 1", got)
	}
}
