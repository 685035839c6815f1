package model

import "testing"

// TestNormalizeMessage tests message normalization for deduplication.
func TestNormalizeMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "lowercases ascii",
			message: "AppInsights NOT Found",
			want:    "appinsights not found",
		},
		{
			name:    "collapses whitespace",
			message: "  foo \t bar\n baz ",
			want:    "foo bar baz",
		},
		{
			name:    "folds non-ascii case",
			message: "FEHLER: Skript nicht geladen",
			want:    "fehler: skript nicht geladen",
		},
		{
			name:    "empty message",
			message: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := NormalizeMessage(tt.message); got != tt.want {
				t.Errorf("NormalizeMessage(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

// TestPageErrorDedupKey tests that dedup keys separate kind and message.
func TestPageErrorDedupKey(t *testing.T) {
	t.Parallel()

	t.Run("same kind and message match", func(t *testing.T) {
		t.Parallel()

		a := NewPageError(KindConsoleError, "Uncaught TypeError")
		b := NewPageError(KindConsoleError, "uncaught   typeerror")

		if a.DedupKey() != b.DedupKey() {
			t.Errorf("expected equal keys, got %q and %q", a.DedupKey(), b.DedupKey())
		}
	})

	t.Run("different kinds do not match", func(t *testing.T) {
		t.Parallel()

		a := NewPageError(KindConsoleError, "boom")
		b := NewPageError(KindPageError, "boom")

		if a.DedupKey() == b.DedupKey() {
			t.Error("expected different keys for different kinds")
		}
	})
}

// TestErrorKindIsErrorClass tests the error/warning classification.
func TestErrorKindIsErrorClass(t *testing.T) {
	t.Parallel()

	errorKinds := []ErrorKind{KindConsoleError, KindPageError, KindCSPViolation, KindHTTPError}
	warnKinds := []ErrorKind{KindConsoleWarn, KindConsoleInfo, KindRequestFailed}

	for _, k := range errorKinds {
		if !k.IsErrorClass() {
			t.Errorf("%s: expected error class", k)
		}
	}
	for _, k := range warnKinds {
		if k.IsErrorClass() {
			t.Errorf("%s: expected warning class", k)
		}
	}
}
