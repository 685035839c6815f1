package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/consolescan/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// now supplies the generation timestamp. Overridable in tests.
	now func() time.Time
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport is the top-level JSON document.
//
// Design decision: We wrap results and summary rather than emitting the
// summary alone because downstream consumers (dashboards, diff tools)
// need the per-page detail, and a single self-describing document is
// easier to archive than two files.
type JSONReport struct {
	// GeneratedAt is when the report file was written, not when the scan
	// ran; the scan's own start time lives in the summary.
	GeneratedAt time.Time `json:"generated_at"`

	// Summary is the aggregated scan outcome.
	Summary *model.ScanSummary `json:"summary"`

	// Results holds the per-page outcomes in scan start order.
	Results []*model.ScanResult `json:"results"`
}

// Write outputs the report as a single JSON document.
func (w *JSONWriter) Write(results []*model.ScanResult, summary *model.ScanSummary) (int, error) {
	doc := &JSONReport{
		GeneratedAt: w.now(),
		Summary:     summary,
		Results:     results,
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(doc, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
