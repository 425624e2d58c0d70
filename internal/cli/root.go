// Package cli provides Cobra-based CLI commands for the spectrace document
// validation and traceability engine. It defines the validation entry point
// (validate), identifier commands (list-ids, scan-ids, where-defined,
// where-used), and read-only content commands (get-content, read-section,
// list-sections, search).
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/schoolboyqueue/spectrace/internal/cli/shared"
	"github.com/schoolboyqueue/spectrace/internal/config"
)

// Command group IDs for organizing help output (re-exported from shared)
const (
	GroupValidation    = shared.GroupValidation
	GroupIdentifiers   = shared.GroupIdentifiers
	GroupContent       = shared.GroupContent
	GroupConfiguration = shared.GroupConfiguration
)

var rootCmd = &cobra.Command{
	Use:   "spectrace",
	Short: "Document validation and code traceability",
	Long: `spectrace validates a layered set of structured design documents and
traces their checked-off identifiers into source code comments.

Artifacts are validated against per-kind schemas, cross-checked along a fixed
dependency chain, and scored on a 100-point budget. The same identifiers can
then be traced into any configured language's comments.`,
	Example: `  # Validate a feature's full dependency chain
  spectrace validate feature-design:auth

  # Validate everything, machine-readable
  spectrace validate --format json

  # Find where an identifier is defined
  spectrace where-defined spd-app-req-login

  # Enumerate identifiers across the repository
  spectrace scan-ids --filter req`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return shared.ExitSuccess
	}
	if !shared.Silent(err) {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed).Sprint("error:"), err)
	}
	return shared.ExitCode(err)
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: GroupValidation, Title: "Validation:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupIdentifiers, Title: "Identifiers:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupContent, Title: "Content:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupConfiguration, Title: "Configuration:"})

	rootCmd.SetHelpCommandGroupID(GroupConfiguration)
	rootCmd.SetCompletionCommandGroupID(GroupConfiguration)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to project config (default: discovered .spectrace/config.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "", "Output format: text, json, or yaml")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}

// loadConfiguration resolves the effective configuration for a command:
// the --config flag when set, otherwise upward discovery from the working
// directory, otherwise defaults only.
func loadConfiguration(cmd *cobra.Command) (*config.Configuration, error) {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		color.NoColor = true
	}

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			if found, ok := config.FindProjectConfig(cwd); ok {
				path = found
			}
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if format, _ := cmd.Flags().GetString("format"); format != "" {
		cfg.Format = format
	}
	return cfg, nil
}

// effectiveFormat picks the output format: an explicit setting wins, then
// text on interactive terminals, then JSON for pipes and CI.
func effectiveFormat(cfg *config.Configuration, caps shared.TerminalCapabilities) string {
	if cfg.Format != "" {
		return cfg.Format
	}
	if caps.IsTTY {
		return "text"
	}
	return "json"
}
