package report

import (
	"io"

	"github.com/nao1215/consolescan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write scan results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the results and summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(results []*model.ScanResult, summary *model.ScanSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(results []*model.ScanResult, summary *model.ScanSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(results, summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// kindLabel returns a short display label for a diagnostic kind.
func kindLabel(kind model.ErrorKind) string {
	switch kind {
	case model.KindConsoleError:
		return "Console Error"
	case model.KindConsoleWarn:
		return "Console Warn"
	case model.KindConsoleInfo:
		return "Console Info"
	case model.KindPageError:
		return "Page Error"
	case model.KindCSPViolation:
		return "CSP Violation"
	case model.KindRequestFailed:
		return "Request Failed"
	case model.KindHTTPError:
		return "HTTP Error"
	default:
		return string(kind)
	}
}

// statusIcon returns a single-glyph indicator for a page status.
func statusIcon(status model.PageStatus) string {
	switch status {
	case model.StatusOK:
		return "✅"
	case model.StatusWarn:
		return "⚠️"
	case model.StatusIgnored:
		return "🔇"
	case model.StatusError:
		return "❌"
	case model.StatusFailed:
		return "💀"
	default:
		return "·"
	}
}
