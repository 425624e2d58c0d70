package cli

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/cascade"
	"github.com/schoolboyqueue/spectrace/internal/cli/shared"
	"github.com/schoolboyqueue/spectrace/internal/ident"
)

var (
	idsFilter string
	idsRegex  string
)

// idEntry is one row of a list-ids / scan-ids listing.
type idEntry struct {
	ID      string `json:"id" yaml:"id"`
	Checked bool   `json:"checked" yaml:"checked"`
	File    string `json:"file" yaml:"file"`
	Section string `json:"section,omitempty" yaml:"section,omitempty"`
	Line    int    `json:"line" yaml:"line"`
	Phases  []int  `json:"phases,omitempty" yaml:"phases,omitempty"`
}

var listIDsCmd = &cobra.Command{
	Use:   "list-ids <artifact-path>",
	Short: "Enumerate identifiers defined in one artifact",
	Long: `Enumerate every identifier the given artifact defines in its tagged
blocks, with checked state, declared phases, and exact location.`,
	Example: `  spectrace list-ids docs/design.md
  spectrace list-ids docs/features/auth/design.md --filter req`,
	Args: cobra.ExactArgs(1),
	RunE: runListIDs,
}

var scanIDsCmd = &cobra.Command{
	Use:   "scan-ids",
	Short: "Enumerate identifiers across the whole repository",
	Long: `Enumerate every identifier defined anywhere in the workspace's
documents. Results are sorted by identifier for stable output.`,
	Example: `  spectrace scan-ids
  spectrace scan-ids --filter auth
  spectrace scan-ids --regex 'req-[a-z]+$'`,
	Args: cobra.NoArgs,
	RunE: runScanIDs,
}

func init() {
	for _, cmd := range []*cobra.Command{listIDsCmd, scanIDsCmd} {
		cmd.GroupID = shared.GroupIdentifiers
		cmd.Flags().StringVar(&idsFilter, "filter", "", "Keep only identifiers containing this substring")
		cmd.Flags().StringVar(&idsRegex, "regex", "", "Keep only identifiers matching this regular expression")
		rootCmd.AddCommand(cmd)
	}
}

func runListIDs(cmd *cobra.Command, args []string) error {
	a, err := artifact.Load(args[0])
	if err != nil {
		return err
	}
	return emitIDs(cmd, cascade.BuildArtifactIndex(a))
}

func runScanIDs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return err
	}
	ws, err := artifact.LoadWorkspace(cfg.DocsDir)
	if err != nil {
		return fmt.Errorf("loading workspace %s: %w", cfg.DocsDir, err)
	}
	return emitIDs(cmd, cascade.BuildWorkspaceIndex(ws))
}

// emitIDs filters, sorts, and writes the index's definitions.
func emitIDs(cmd *cobra.Command, idx *ident.Index) error {
	keep, err := idFilter()
	if err != nil {
		return err
	}

	entries := []idEntry{}
	for _, base := range idx.Bases() {
		for _, def := range idx.Definitions(base) {
			id := def.ID.String()
			if !keep(id) {
				continue
			}
			entry := idEntry{
				ID:      id,
				Checked: def.Checked,
				File:    def.Location.File,
				Section: def.Location.Section,
				Line:    def.Location.Line,
			}
			for phase := range def.Phases {
				entry.Phases = append(entry.Phases, phase)
			}
			sort.Ints(entry.Phases)
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ID != entries[j].ID {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].File < entries[j].File
	})

	return emitListing(cmd, entries, func(out func(string), e idEntry) {
		mark := "[ ]"
		if e.Checked {
			mark = "[x]"
		}
		out(fmt.Sprintf("%s %-40s %s", mark, e.ID, ident.Location{File: e.File, Section: e.Section, Line: e.Line}))
	})
}

// idFilter builds the predicate from --filter and --regex. Both may be set;
// an identifier must satisfy every given condition.
func idFilter() (func(string) bool, error) {
	var re *regexp.Regexp
	if idsRegex != "" {
		var err error
		re, err = regexp.Compile(idsRegex)
		if err != nil {
			return nil, shared.NewExitErrorf(shared.ExitUsageError, "invalid --regex: %v", err)
		}
	}
	return func(id string) bool {
		if idsFilter != "" && !strings.Contains(id, idsFilter) {
			return false
		}
		if re != nil && !re.MatchString(id) {
			return false
		}
		return true
	}, nil
}

// emitListing writes entries in the effective format. The render callback
// produces one text line per entry.
func emitListing[T any](cmd *cobra.Command, entries []T, render func(out func(string), e T)) error {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return err
	}
	caps := shared.DetectTerminalCapabilities()
	out := cmd.OutOrStdout()

	switch effectiveFormat(cfg, caps) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
		return nil
	default:
		for _, e := range entries {
			render(func(line string) { fmt.Fprintln(out, line) }, e)
		}
		return nil
	}
}
