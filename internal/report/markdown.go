package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/consolescan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation, pull request comments, and
// CI job summaries.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(results []*model.ScanResult, summary *model.ScanSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary)
	w.writePages(md, results)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.ScanSummary) {
	md.H1("Console Error Scan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + summary.SitemapURL + "`"},
			{"Scan Date", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration.Round(10 * time.Millisecond).String()},
			{"Pages Scanned", fmt.Sprintf("%d / %d", summary.ScannedURLs, summary.TotalURLs)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the status summary section with a pie chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary *model.ScanSummary) {
	md.H2("Status Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"✅ OK", strconv.Itoa(summary.OKCount)},
			{"⚠️ Warn", strconv.Itoa(summary.WarnCount)},
			{"🔇 Ignored", strconv.Itoa(summary.IgnoredCount)},
			{"❌ Error", strconv.Itoa(summary.ErrorCount)},
			{"💀 Failed", strconv.Itoa(summary.FailedCount)},
			{"**Total diagnostics**", "**" + strconv.Itoa(summary.TotalDiagnostics()) + "**"},
		},
	})
	md.PlainText("")

	if summary.ScannedURLs > 0 {
		w.writePieChart(md, summary)
	}

	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of the page status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.ScanSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Status Distribution"),
		piechart.WithShowData(true),
	)

	if summary.OKCount > 0 {
		chart.LabelAndIntValue("OK", uint64(summary.OKCount))
	}
	if summary.WarnCount > 0 {
		chart.LabelAndIntValue("Warn", uint64(summary.WarnCount))
	}
	if summary.IgnoredCount > 0 {
		chart.LabelAndIntValue("Ignored", uint64(summary.IgnoredCount))
	}
	if summary.ErrorCount > 0 {
		chart.LabelAndIntValue("Error", uint64(summary.ErrorCount))
	}
	if summary.FailedCount > 0 {
		chart.LabelAndIntValue("Failed", uint64(summary.FailedCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the scan outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.ScanSummary) {
	switch {
	case summary.FailedCount > 0:
		md.Cautionf(
			"%d page(s) could not be loaded after all retry attempts.",
			summary.FailedCount,
		)
	case summary.ErrorCount > 0:
		md.Warningf(
			"%d page(s) produced console or network errors.",
			summary.ErrorCount,
		)
	case summary.WarnCount > 0:
		md.Importantf(
			"%d page(s) produced warnings but no errors.",
			summary.WarnCount,
		)
	case summary.IgnoredCount > 0:
		md.Note("All findings matched the whitelist.")
	default:
		md.Tip("All pages loaded without any console diagnostics.")
	}
	md.PlainText("")
}

// writePages writes the per-page table and error details.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, results []*model.ScanResult) {
	md.H2("Pages")
	md.PlainText("")

	if len(results) == 0 {
		md.PlainText("No pages were scanned.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		httpStatus := "-"
		if r.FinalHTTPStatus != 0 {
			httpStatus = strconv.Itoa(r.FinalHTTPStatus)
		}
		rows = append(rows, []string{
			statusIcon(r.Status) + " " + string(r.Status),
			truncateString(r.URL, 60),
			httpStatus,
			strconv.Itoa(r.ErrorCount()),
			strconv.Itoa(r.WarningCount()),
			strconv.Itoa(r.AttemptCount),
			r.Duration.Round(10 * time.Millisecond).String(),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Status", "URL", "HTTP", "Errors", "Warnings", "Attempts", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")

	// Collapsible detail block per page with findings
	for _, r := range results {
		if r == nil || len(r.Errors) == 0 {
			continue
		}
		md.Details(r.URL, w.pageDetails(r))
	}
	md.PlainText("")
}

// pageDetails renders one page's diagnostics as a markdown fragment for
// embedding in a details block.
func (w *MarkdownWriter) pageDetails(r *model.ScanResult) string {
	items := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		item := fmt.Sprintf("**%s**: %s", kindLabel(e.Kind), truncateString(e.Message, 200))
		if e.Source != "" {
			if e.Line > 0 {
				item += fmt.Sprintf(" (`%s:%d`)", e.Source, e.Line)
			} else {
				item += fmt.Sprintf(" (`%s`)", e.Source)
			}
		}
		if e.OccurrenceCount > 1 {
			item += fmt.Sprintf(" ×%d", e.OccurrenceCount)
		}
		if e.Whitelisted {
			item += " _(whitelisted)_"
		}
		items = append(items, "- "+item)
	}

	out := "\n"
	for _, item := range items {
		out += item + "\n"
	}
	return out
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [consolescan](https://github.com/nao1215/consolescan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
