package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// TestSecureHandlerRedactsKeys tests that attributes with sensitive key
// names are redacted.
func TestSecureHandlerRedactsKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "cookie value", key: "cookie_value", value: "sess-12345"},
		{name: "authorization header", key: "Authorization", value: "Bearer abc"},
		{name: "token", key: "token", value: "tok-9f3a"},
		{name: "key containing keyword", key: "staging_auth_cookie", value: "v-77c2"},
		{name: "password", key: "password", value: "hunter2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil)))
			logger.Info("msg", tt.key, tt.value)

			out := buf.String()
			if strings.Contains(out, tt.value) {
				t.Errorf("output contains sensitive value %q: %s", tt.value, out)
			}
			if !strings.Contains(out, MaskValue) {
				t.Errorf("output missing mask: %s", out)
			}
		})
	}
}

// TestSecureHandlerRedactsValues tests value-pattern based redaction for
// attributes whose key looks harmless.
func TestSecureHandlerRedactsValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{name: "jwt", value: "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig"},
		{name: "bearer", value: "Bearer deadbeef"},
		{name: "basic", value: "Basic dXNlcjpwYXNz"},
		{name: "long opaque token", value: strings.Repeat("a1", 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil)))
			logger.Info("msg", "detail", tt.value)

			if strings.Contains(buf.String(), tt.value) {
				t.Errorf("output contains sensitive value: %s", buf.String())
			}
		})
	}
}

// TestSecureHandlerPassesThroughNormalAttrs tests that ordinary scan
// attributes survive untouched.
func TestSecureHandlerPassesThroughNormalAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil)))
	logger.Info("page scanned", "url", "https://example.com/", "errors", 3)

	out := buf.String()
	if !strings.Contains(out, "https://example.com/") {
		t.Errorf("url attribute was altered: %s", out)
	}
	if !strings.Contains(out, "errors=3") {
		t.Errorf("count attribute was altered: %s", out)
	}
	if strings.Contains(out, MaskValue) {
		t.Errorf("unexpected redaction: %s", out)
	}
}

// TestSecureHandlerGroups tests that redaction recurses into groups and
// into attributes added via WithAttrs.
func TestSecureHandlerGroups(t *testing.T) {
	t.Parallel()

	t.Run("group attrs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, nil)))
		logger.Info("msg", slog.Group("site", slog.String("cookie", "secret-value")))

		if strings.Contains(buf.String(), "secret-value") {
			t.Errorf("group attribute not redacted: %s", buf.String())
		}
	})

	t.Run("with attrs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		base := NewSecureHandler(slog.NewTextHandler(&buf, nil))
		logger := slog.New(base.WithAttrs([]slog.Attr{slog.String("api_key", "k-123")}))
		logger.Info("msg")

		if strings.Contains(buf.String(), "k-123") {
			t.Errorf("WithAttrs attribute not redacted: %s", buf.String())
		}
	})
}

// TestNewSecureLogger tests the verbose level switch.
func TestNewSecureLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	quiet := NewSecureLogger(&buf, false)
	if quiet.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("non-verbose logger should not enable info")
	}

	verbose := NewSecureLogger(&buf, true)
	if !verbose.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("verbose logger should enable debug")
	}
}
