package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/consolescan/internal/whitelist"
)

//go:embed templates/consolescan.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = ".consolescan"

// starterPatterns seed a new whitelist with noise that is almost never
// actionable: third-party tag managers and browser extension chatter.
var starterPatterns = []string{
	"*googletagmanager*",
	"*google-analytics*",
	"*doubleclick*",
	"*chrome-extension://*",
	"*moz-extension://*",
}

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new consolescan configuration file",
		Long: `Initialize creates a new .consolescan configuration file in the current
directory, with commented examples for per-site cookies, consent
handling, and whitelists.

With --whitelist, a starter whitelist JSON file is created as well,
pre-filled with patterns for common third-party noise.

Examples:
  # Create .consolescan in current directory
  consolescan init

  # Create config file at a specific path
  consolescan init -o myconfig.yaml

  # Also create a starter whitelist
  consolescan init --whitelist known-errors.json

  # Force overwrite existing file
  consolescan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().StringP("whitelist", "w", "",
		"Also create a starter whitelist JSON file at this path")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	whitelistPath, err := cmd.Flags().GetString("whitelist")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/consolescan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	fmt.Printf("Created configuration file: %s\n", outputPath)

	if whitelistPath != "" {
		if !force {
			if _, err := os.Stat(whitelistPath); err == nil {
				return fmt.Errorf("whitelist file already exists: %s (use -f to overwrite)", whitelistPath)
			}
		}
		if err := whitelist.Save(whitelistPath, "Known errors to suppress", starterPatterns); err != nil {
			return fmt.Errorf("failed to write whitelist file: %w", err)
		}
		fmt.Printf("Created whitelist file: %s\n", whitelistPath)
	}

	fmt.Println("\nEdit the configuration to add site-specific settings such as:")
	fmt.Println("  - Authentication cookies for staging hosts")
	fmt.Println("  - Consent banner handling per site")
	fmt.Println("  - Whitelist files for known errors")

	return nil
}
