package whitelist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/nao1215/consolescan/internal/model"
)

// Whitelist is an ordered set of glob patterns marking known, ignorable
// diagnostics. Matching is case-insensitive and uses * (any run of
// characters) and ? (exactly one character) semantics.
//
// Design decision: Patterns are compiled once at construction with
// gobwas/glob rather than interpreted per match. A scan tests every
// diagnostic on every page against every pattern, so compile-once pays off
// quickly; it also surfaces malformed patterns at load time instead of
// silently never matching.
type Whitelist struct {
	// Description is the free-text description from the whitelist file.
	Description string

	// Patterns holds the original pattern strings in file order.
	Patterns []string

	// path is the resolved file path, kept for log output.
	path string

	// compiled holds the case-folded compiled globs, parallel to Patterns.
	compiled []glob.Glob
}

// file is the on-disk JSON layout of a whitelist.
type file struct {
	Description string   `json:"description"`
	Patterns    []string `json:"patterns"`
}

// New creates a Whitelist from the given patterns. Blank patterns are
// skipped; a pattern that fails to compile returns ErrInvalidPattern.
func New(description string, patterns []string) (*Whitelist, error) {
	w := &Whitelist{
		Description: description,
		Patterns:    make([]string, 0, len(patterns)),
		compiled:    make([]glob.Glob, 0, len(patterns)),
	}

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		// Compile the lowercase form; Match lowercases the message so the
		// comparison is case-insensitive in both directions.
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		w.Patterns = append(w.Patterns, p)
		w.compiled = append(w.compiled, g)
	}

	return w, nil
}

// Load reads a whitelist from a JSON file of the form
//
//	{"description": "...", "patterns": ["*AppInsights*", "HTTP 404:*"]}
//
// Non-string or blank entries are skipped with a warning rather than
// failing the whole load, so one sloppy entry does not disable the
// whitelist for a long scan.
func Load(path string) (*Whitelist, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided whitelist path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read whitelist: %w", err)
	}

	var raw struct {
		Description string            `json:"description"`
		Patterns    []json.RawMessage `json:"patterns"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}

	patterns := make([]string, 0, len(raw.Patterns))
	for i, entry := range raw.Patterns {
		var s string
		if err := json.Unmarshal(entry, &s); err != nil || strings.TrimSpace(s) == "" {
			slog.Warn("whitelist: skipping invalid pattern entry", "index", i)
			continue
		}
		patterns = append(patterns, s)
	}

	w, err := New(raw.Description, patterns)
	if err != nil {
		return nil, err
	}

	if abs, err := filepath.Abs(path); err == nil {
		w.path = abs
	} else {
		w.path = path
	}

	return w, nil
}

// Match reports whether the message matches any whitelist pattern.
// The empty message never matches.
func (w *Whitelist) Match(message string) bool {
	if w == nil || message == "" {
		return false
	}

	lower := strings.ToLower(message)
	for _, g := range w.compiled {
		if g.Match(lower) {
			return true
		}
	}
	return false
}

// Apply marks every matching diagnostic in the result as whitelisted and
// returns the number of newly marked records. The result's status is left
// to the caller; ScanResult recomputes it on mutation anyway.
func (w *Whitelist) Apply(result *model.ScanResult) int {
	if w == nil || result == nil {
		return 0
	}

	marked := 0
	for _, e := range result.Errors {
		if !e.Whitelisted && w.Match(e.Message) {
			e.Whitelisted = true
			marked++
		}
	}
	return marked
}

// Len returns the number of usable patterns.
func (w *Whitelist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.compiled)
}

// Path returns the resolved file path the whitelist was loaded from,
// empty for whitelists built with New.
func (w *Whitelist) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}

// Save writes the whitelist to the given path in the on-disk JSON layout.
// Used by "consolescan init" to produce a starter file.
func Save(path, description string, patterns []string) error {
	data, err := json.MarshalIndent(file{
		Description: description,
		Patterns:    patterns,
	}, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0600)
}
