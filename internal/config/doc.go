// Package config provides configuration structures and utilities for consolescan.
// It defines the main configuration options for sitemap discovery, browser
// sessions, console capture, and report generation preferences.
package config
