// Package main provides the entry point for the consolescan CLI.
//
// consolescan loads every page of a website in a headless browser and
// reports JavaScript console errors, uncaught exceptions, CSP violations,
// and failed network requests.
//
// Usage:
//
//	consolescan scan https://example.com/sitemap.xml
//	consolescan urls example.com
//
// See --help for all available options.
package main

// main is the entry point for consolescan.
func main() {
	Execute()
}
