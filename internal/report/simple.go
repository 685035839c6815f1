package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/consolescan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting and per-page error details.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showClean controls whether pages without findings are listed.
	showClean bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowClean configures the writer to list clean pages too.
func WithShowClean(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showClean = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showClean:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(results []*model.ScanResult, summary *model.ScanSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeSummary(&sb, summary)
	w.writePages(&sb, results)
	w.writeFooter(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.ScanSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       CONSOLESCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Target:        %s\n", summary.SitemapURL))
	sb.WriteString(fmt.Sprintf("Scan Date:     %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:      %s\n", summary.Duration.Round(10*time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Pages Scanned: %d / %d\n", summary.ScannedURLs, summary.TotalURLs))
	sb.WriteString("\n")
}

// writeSummary writes the status and diagnostic count summary.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.ScanSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  OK:      %d\n", summary.OKCount))
	sb.WriteString(fmt.Sprintf("  WARN:    %d\n", summary.WarnCount))
	sb.WriteString(fmt.Sprintf("  IGNORED: %d\n", summary.IgnoredCount))
	sb.WriteString(fmt.Sprintf("  ERROR:   %d\n", summary.ErrorCount))
	sb.WriteString(fmt.Sprintf("  FAILED:  %d\n", summary.FailedCount))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  Console errors:   %d\n", summary.ConsoleErrors))
	sb.WriteString(fmt.Sprintf("  Console warnings: %d\n", summary.ConsoleWarns))
	sb.WriteString(fmt.Sprintf("  Page errors:      %d\n", summary.PageErrors))
	sb.WriteString(fmt.Sprintf("  CSP violations:   %d\n", summary.CSPViolations))
	sb.WriteString(fmt.Sprintf("  Failed requests:  %d\n", summary.RequestFailed))
	sb.WriteString(fmt.Sprintf("  HTTP errors:      %d\n", summary.HTTPErrors))
	if summary.WhitelistedHit > 0 {
		sb.WriteString(fmt.Sprintf("  Whitelisted:      %d\n", summary.WhitelistedHit))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:            %d diagnostics\n", summary.TotalDiagnostics()))
	sb.WriteString("\n")
}

// writePages writes per-page findings. Clean pages are skipped unless
// showClean is set.
func (w *SimpleWriter) writePages(sb *strings.Builder, results []*model.ScanResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	shown := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Status == model.StatusOK && !w.showClean {
			continue
		}
		shown++
		w.writePage(sb, r)
	}

	if shown == 0 {
		sb.WriteString("  All pages clean.\n\n")
	}
}

// writePage writes a single page's status line and its diagnostics.
func (w *SimpleWriter) writePage(sb *strings.Builder, r *model.ScanResult) {
	sb.WriteString(fmt.Sprintf("[%s] %s\n", strings.ToUpper(string(r.Status)), r.URL))

	if w.verbose {
		sb.WriteString(fmt.Sprintf("    Attempts: %d  Duration: %s", r.AttemptCount, r.Duration.Round(10*time.Millisecond)))
		if r.FinalHTTPStatus != 0 {
			sb.WriteString(fmt.Sprintf("  HTTP: %d", r.FinalHTTPStatus))
		}
		sb.WriteString("\n")
	}

	for _, e := range r.Errors {
		marker := "*"
		if e.Whitelisted {
			marker = "~"
		}
		sb.WriteString(fmt.Sprintf("  %s [%s] %s", marker, kindLabel(e.Kind), e.Message))
		if e.OccurrenceCount > 1 {
			sb.WriteString(fmt.Sprintf(" (x%d)", e.OccurrenceCount))
		}
		sb.WriteString("\n")
		if e.Source != "" {
			if e.Line > 0 {
				sb.WriteString(fmt.Sprintf("      at %s:%d\n", e.Source, e.Line))
			} else {
				sb.WriteString(fmt.Sprintf("      at %s\n", e.Source))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, summary *model.ScanSummary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if summary.Clean() {
		sb.WriteString("Result: CLEAN - no errors, no failures\n")
	} else {
		sb.WriteString(fmt.Sprintf("Result: %d page(s) with errors, %d failed\n",
			summary.ErrorCount, summary.FailedCount))
	}
	sb.WriteString("Report generated by consolescan\n")
	sb.WriteString("https://github.com/nao1215/consolescan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
