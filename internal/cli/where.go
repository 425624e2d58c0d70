package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/cascade"
	"github.com/schoolboyqueue/spectrace/internal/cli/shared"
	"github.com/schoolboyqueue/spectrace/internal/ident"
)

// locEntry is one location row for where-defined / where-used output.
type locEntry struct {
	ID      string `json:"id" yaml:"id"`
	File    string `json:"file" yaml:"file"`
	Section string `json:"section,omitempty" yaml:"section,omitempty"`
	Line    int    `json:"line" yaml:"line"`
}

var whereDefinedCmd = &cobra.Command{
	Use:   "where-defined <identifier>",
	Short: "Resolve an identifier to its normative definition",
	Long: `Resolve an identifier (optionally qualified with :ph-N and :inst-name)
to the location of its normative definition.

Exit codes: 0 exactly one match, 2 ambiguous (all candidates are listed),
1 not found or unparseable.`,
	Example: `  spectrace where-defined spd-app-req-login
  spectrace where-defined spd-app-req-login:ph-2:inst-hash-password`,
	Args: cobra.ExactArgs(1),
	RunE: runWhereDefined,
}

var checkReplacementCmd = &cobra.Command{
	Use:   "check-replacement <old-identifier> <new-identifier>",
	Short: "Verify a version bump before renaming an identifier",
	Long: `Check that the new identifier is a valid replacement for the old one:
both must name the same item, and the new version must be exactly one higher
than the old. On success, every workspace reference to the old identifier is
listed so the rename can be applied everywhere.

Exit codes: 0 valid replacement, 2 invalid replacement, 1 unparseable
identifier.`,
	Example: `  spectrace check-replacement spd-app-req-login spd-app-req-login-v2
  spectrace check-replacement spd-app-req-login-v2 spd-app-req-login-v3`,
	Args: cobra.ExactArgs(2),
	RunE: runCheckReplacement,
}

var whereUsedCmd = &cobra.Command{
	Use:   "where-used <identifier>",
	Short: "Enumerate all non-normative references to an identifier",
	Long: `List every place the identifier is referenced outside its own
normative definition, across all workspace documents. References to any
version of the identifier are included; the listed ID shows the exact form
each reference used.`,
	Example: `  spectrace where-used spd-app-req-login`,
	Args: cobra.ExactArgs(1),
	RunE: runWhereUsed,
}

func init() {
	whereDefinedCmd.GroupID = shared.GroupIdentifiers
	whereUsedCmd.GroupID = shared.GroupIdentifiers
	checkReplacementCmd.GroupID = shared.GroupIdentifiers
	rootCmd.AddCommand(whereDefinedCmd)
	rootCmd.AddCommand(whereUsedCmd)
	rootCmd.AddCommand(checkReplacementCmd)
}

func runCheckReplacement(cmd *cobra.Command, args []string) error {
	old, err := ident.Parse(args[0])
	if err != nil {
		return shared.NewExitErrorf(shared.ExitUsageError, "old identifier: %v", err)
	}
	next, err := ident.Parse(args[1])
	if err != nil {
		return shared.NewExitErrorf(shared.ExitUsageError, "new identifier: %v", err)
	}
	if err := ident.CheckReplacement(old, next); err != nil {
		return shared.NewExitErrorf(shared.ExitValidationFailed, "%v", err)
	}

	idx, err := workspaceIndex(cmd)
	if err != nil {
		return err
	}

	// Every reference to the old identifier needs updating with the rename.
	entries := []locEntry{}
	for _, ref := range idx.References(old.Base()) {
		entries = append(entries, locEntry{
			ID:      ref.ID.String(),
			File:    ref.Location.File,
			Section: ref.Location.Section,
			Line:    ref.Location.Line,
		})
	}
	return emitListing(cmd, entries, renderLoc)
}

func runWhereDefined(cmd *cobra.Command, args []string) error {
	id, err := ident.Parse(args[0])
	if err != nil {
		return shared.NewExitErrorf(shared.ExitUsageError, "%v", err)
	}

	idx, err := workspaceIndex(cmd)
	if err != nil {
		return err
	}

	res := idx.Resolve(id)
	switch res.Status {
	case ident.StatusFound:
		return emitListing(cmd, locsToEntries(args[0], res.Locations), renderLoc)
	case ident.StatusAmbiguous:
		if err := emitListing(cmd, locsToEntries(args[0], res.Locations), renderLoc); err != nil {
			return err
		}
		return shared.NewExitError(shared.ExitValidationFailed)
	default:
		return shared.NewExitErrorf(shared.ExitUsageError, "%s: not found (failed at %s stage)", args[0], res.Stage)
	}
}

func runWhereUsed(cmd *cobra.Command, args []string) error {
	id, err := ident.Parse(args[0])
	if err != nil {
		return shared.NewExitErrorf(shared.ExitUsageError, "%v", err)
	}

	idx, err := workspaceIndex(cmd)
	if err != nil {
		return err
	}

	entries := []locEntry{}
	for _, ref := range idx.References(id.Base()) {
		entries = append(entries, locEntry{
			ID:      ref.ID.String(),
			File:    ref.Location.File,
			Section: ref.Location.Section,
			Line:    ref.Location.Line,
		})
	}
	return emitListing(cmd, entries, renderLoc)
}

// workspaceIndex loads the workspace and builds its repository-wide
// identifier index.
func workspaceIndex(cmd *cobra.Command) (*ident.Index, error) {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return nil, err
	}
	ws, err := artifact.LoadWorkspace(cfg.DocsDir)
	if err != nil {
		return nil, fmt.Errorf("loading workspace %s: %w", cfg.DocsDir, err)
	}
	return cascade.BuildWorkspaceIndex(ws), nil
}

func locsToEntries(id string, locs []ident.Location) []locEntry {
	entries := make([]locEntry, 0, len(locs))
	for _, loc := range locs {
		entries = append(entries, locEntry{ID: id, File: loc.File, Section: loc.Section, Line: loc.Line})
	}
	return entries
}

func renderLoc(out func(string), e locEntry) {
	out(fmt.Sprintf("%-40s %s", e.ID, ident.Location{File: e.File, Section: e.Section, Line: e.Line}))
}
