package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/nao1215/consolescan/internal/model"
)

// HTMLWriter outputs a self-contained HTML report.
// All styling is inlined so the file can be attached to a ticket or
// mailed around without any external assets.
//
// Design decision: We use html/template rather than string concatenation
// because page URLs and diagnostic messages come from scanned sites and
// must be escaped. The template engine handles context-aware escaping
// for us.
type HTMLWriter struct {
	baseWriter

	// now supplies the generation timestamp. Overridable in tests.
	now func() time.Time
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) *HTMLWriter {
	return &HTMLWriter{
		baseWriter: newBaseWriter(output),
		now:        time.Now,
	}
}

// htmlPage is the data handed to the report template.
type htmlPage struct {
	GeneratedAt string
	Target      string
	Duration    string
	Cards       []htmlCard
	Rows        []htmlRow
}

// htmlCard is one summary card at the top of the report.
type htmlCard struct {
	Label string
	Value string
	Class string
}

// htmlRow is one page row in the results table.
type htmlRow struct {
	Index      int
	Status     model.PageStatus
	StatusIcon string
	URL        string
	HTTPStatus string
	Duration   string
	Attempts   int
	Errors     int
	Warnings   int
	Details    []htmlDetail
}

// htmlDetail is one diagnostic beneath a page row.
type htmlDetail struct {
	KindClass   string
	KindLabel   string
	Message     string
	Location    string
	Occurrences int
	Whitelisted bool
}

// Write renders the report and writes it to the output.
func (w *HTMLWriter) Write(results []*model.ScanResult, summary *model.ScanSummary) (int, error) {
	page := w.buildPage(results, summary)

	var sb strings.Builder
	if err := htmlTemplate.Execute(&sb, page); err != nil {
		return 0, fmt.Errorf("render HTML report: %w", err)
	}

	return w.output.Write([]byte(sb.String()))
}

// buildPage maps scan data onto the template model.
func (w *HTMLWriter) buildPage(results []*model.ScanResult, summary *model.ScanSummary) *htmlPage {
	page := &htmlPage{
		GeneratedAt: w.now().Format("2006-01-02 15:04:05"),
		Target:      summary.SitemapURL,
		Duration:    summary.Duration.Round(100 * time.Millisecond).String(),
	}

	page.Cards = []htmlCard{
		{Label: "Total URLs", Value: fmt.Sprintf("%d", summary.TotalURLs)},
		{Label: "Scanned", Value: fmt.Sprintf("%d", summary.ScannedURLs), Class: "ok"},
		{Label: "With Errors", Value: fmt.Sprintf("%d", summary.ErrorCount), Class: zeroClass(summary.ErrorCount, "error")},
		{Label: "Failed", Value: fmt.Sprintf("%d", summary.FailedCount), Class: zeroClass(summary.FailedCount, "error")},
		{Label: "Console Errors", Value: fmt.Sprintf("%d", summary.ConsoleErrors), Class: zeroClass(summary.ConsoleErrors, "error")},
		{Label: "Warnings", Value: fmt.Sprintf("%d", summary.ConsoleWarns), Class: zeroClass(summary.ConsoleWarns, "warning")},
		{Label: "CSP Violations", Value: fmt.Sprintf("%d", summary.CSPViolations), Class: zeroClass(summary.CSPViolations, "error")},
		{Label: "HTTP Errors", Value: fmt.Sprintf("%d", summary.HTTPErrors), Class: zeroClass(summary.HTTPErrors, "warning")},
		{Label: "Duration", Value: page.Duration},
	}

	for i, r := range results {
		if r == nil {
			continue
		}
		row := htmlRow{
			Index:      i + 1,
			Status:     r.Status,
			StatusIcon: statusIcon(r.Status),
			URL:        r.URL,
			HTTPStatus: "-",
			Duration:   r.Duration.Round(time.Millisecond).String(),
			Attempts:   r.AttemptCount,
			Errors:     r.ErrorCount(),
			Warnings:   r.WarningCount(),
		}
		if r.FinalHTTPStatus != 0 {
			row.HTTPStatus = fmt.Sprintf("%d", r.FinalHTTPStatus)
		}
		for _, e := range r.Errors {
			row.Details = append(row.Details, htmlDetail{
				KindClass:   string(e.Kind),
				KindLabel:   kindLabel(e.Kind),
				Message:     e.Message,
				Location:    location(e),
				Occurrences: e.OccurrenceCount,
				Whitelisted: e.Whitelisted,
			})
		}
		page.Rows = append(page.Rows, row)
	}

	return page
}

// zeroClass returns "ok" for zero counts and the given class otherwise.
func zeroClass(count int, class string) string {
	if count > 0 {
		return class
	}
	return "ok"
}

// location formats the source position of a diagnostic, empty when unknown.
func location(e *model.PageError) string {
	if e.Source == "" {
		return ""
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d", e.Source, e.Line)
	}
	return e.Source
}

// htmlTemplate is the self-contained report page. The dark palette follows
// GitHub's dark theme so the report looks familiar next to CI output.
var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Console Error Scan Report - {{.GeneratedAt}}</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #0d1117; color: #c9d1d9; padding: 20px; }
        h1 { color: #58a6ff; margin-bottom: 10px; font-size: 1.5rem; }
        .timestamp { color: #8b949e; margin-bottom: 20px; }

        .summary { display: flex; gap: 15px; flex-wrap: wrap; margin-bottom: 25px; }
        .summary-card { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 15px 20px; min-width: 140px; }
        .summary-card .label { color: #8b949e; font-size: 0.8rem; text-transform: uppercase; }
        .summary-card .value { font-size: 1.8rem; font-weight: bold; margin-top: 5px; }
        .summary-card .value.ok { color: #3fb950; }
        .summary-card .value.warning { color: #d29922; }
        .summary-card .value.error { color: #f85149; }

        table { width: 100%; border-collapse: collapse; background: #161b22; border-radius: 6px; overflow: hidden; }
        th { background: #21262d; color: #8b949e; text-align: left; padding: 10px 12px; font-size: 0.8rem; text-transform: uppercase; }
        td { padding: 8px 12px; border-top: 1px solid #21262d; font-size: 0.9rem; }
        tr.ok td { color: #c9d1d9; }
        tr.warn td { color: #d29922; }
        tr.ignored td { color: #8b949e; }
        tr.error td, tr.failed td { color: #f85149; }
        tr.detail-row td { background: #1c2128; padding: 5px 12px 10px 40px; }

        .status-cell { font-weight: bold; }
        a { color: #58a6ff; text-decoration: none; }
        a:hover { text-decoration: underline; }

        .error-list { list-style: none; padding: 0; }
        .error-list li { padding: 3px 0; font-size: 0.85rem; color: #c9d1d9; }
        .error-type { display: inline-block; padding: 1px 6px; border-radius: 3px; font-size: 0.75rem; font-weight: bold; margin-right: 5px; }
        .error-type.console_error, .error-type.page_error, .error-type.csp_violation { background: #f8514926; color: #f85149; }
        .error-type.console_warn, .error-type.http_error { background: #d2992226; color: #d29922; }
        .error-type.console_info { background: #58a6ff26; color: #58a6ff; }
        .error-type.request_failed { background: #f8514926; color: #f85149; }
        .source { color: #8b949e; font-size: 0.8rem; }
        .whitelisted { color: #484f58; font-style: italic; }

        .footer { margin-top: 20px; color: #484f58; font-size: 0.8rem; text-align: center; }
    </style>
</head>
<body>
    <h1>Console Error Scan Report</h1>
    <p class="timestamp">Generated: {{.GeneratedAt}} | Target: {{.Target}}</p>

    <div class="summary">
{{- range .Cards}}
        <div class="summary-card">
            <div class="label">{{.Label}}</div>
            <div class="value{{with .Class}} {{.}}{{end}}">{{.Value}}</div>
        </div>
{{- end}}
    </div>

    <table>
        <thead>
            <tr>
                <th>#</th>
                <th>Status</th>
                <th>URL</th>
                <th>HTTP</th>
                <th>Load Time</th>
                <th>Attempts</th>
                <th>Errors</th>
                <th>Warnings</th>
            </tr>
        </thead>
        <tbody>
{{- range .Rows}}
            <tr class="{{.Status}}">
                <td>{{.Index}}</td>
                <td class="status-cell">{{.StatusIcon}}</td>
                <td><a href="{{.URL}}" target="_blank">{{.URL}}</a></td>
                <td>{{.HTTPStatus}}</td>
                <td>{{.Duration}}</td>
                <td>{{.Attempts}}</td>
                <td>{{.Errors}}</td>
                <td>{{.Warnings}}</td>
            </tr>
{{- if .Details}}
            <tr class="detail-row"><td colspan="8"><ul class="error-list">
{{- range .Details}}
                <li><span class="error-type {{.KindClass}}">{{.KindLabel}}</span> {{.Message}}{{with .Location}} <span class="source">({{.}})</span>{{end}}{{if gt .Occurrences 1}} <span class="source">&times;{{.Occurrences}}</span>{{end}}{{if .Whitelisted}} <span class="whitelisted">(whitelisted)</span>{{end}}</li>
{{- end}}
            </ul></td></tr>
{{- end}}
{{- end}}
        </tbody>
    </table>

    <p class="footer">consolescan | {{.GeneratedAt}}</p>
</body>
</html>
`))
