// Package report renders scan results in multiple output formats.
//
// Four writers share the Writer interface: SimpleWriter for terminal
// output, JSONWriter for tool integration, MarkdownWriter for
// documentation and CI summaries, and HTMLWriter for a self-contained
// report file that can be mailed around without assets.
package report
