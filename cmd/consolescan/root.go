// Package main provides the entry point for the consolescan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for consolescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolescan",
		Short: "Scan websites for JavaScript console errors",
		Long: `consolescan loads every page of a website in a headless browser and
reports JavaScript console errors, uncaught exceptions, CSP violations,
HTTP errors, and failed network requests.

Pages are discovered through the site's sitemap. Cookie consent banners
are accepted or hidden automatically so they don't block page loads.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewURLsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
