package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/cli/shared"
	"github.com/schoolboyqueue/spectrace/internal/section"
)

var (
	searchRegex   bool
	sectionsLevel int
)

var getContentCmd = &cobra.Command{
	Use:   "get-content <artifact-path>",
	Short: "Print an artifact's raw content",
	Long: `Print the raw text of one artifact to standard output. Read-only;
the engine never mutates documents.`,
	Example: `  spectrace get-content docs/design.md`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := artifact.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), a.Raw)
		return nil
	},
}

var readSectionCmd = &cobra.Command{
	Use:   "read-section <artifact-path> <heading>",
	Short: "Print one section of an artifact",
	Long: `Print the body of the section with the given heading. When the same
heading appears more than once, pass the full heading path joined with " > "
to disambiguate; a bare ambiguous title lists all matching paths and exits 2.`,
	Example: `  spectrace read-section docs/design.md "Requirements"
  spectrace read-section docs/design.md "Architecture > Storage"`,
	Args: cobra.ExactArgs(2),
	RunE: runReadSection,
}

var listSectionsCmd = &cobra.Command{
	Use:   "list-sections <artifact-path>",
	Short: "Enumerate an artifact's heading hierarchy",
	Example: `  spectrace list-sections docs/design.md
  spectrace list-sections --level 2 docs/design.md`,
	Args: cobra.ExactArgs(1),
	RunE: runListSections,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search all workspace documents",
	Long: `Search every document in the workspace for a substring (or regular
expression with --regex) and print each matching line with its location.`,
	Example: `  spectrace search "login flow"
  spectrace search --regex 'spd-app-req-[a-z]+'`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	for _, cmd := range []*cobra.Command{getContentCmd, readSectionCmd, listSectionsCmd, searchCmd} {
		cmd.GroupID = shared.GroupContent
		rootCmd.AddCommand(cmd)
	}
	searchCmd.Flags().BoolVar(&searchRegex, "regex", false, "Treat the query as a regular expression")
	listSectionsCmd.Flags().IntVar(&sectionsLevel, "level", 0, "List only headings at this level")
}

func runReadSection(cmd *cobra.Command, args []string) error {
	a, err := artifact.Load(args[0])
	if err != nil {
		return err
	}

	heading := args[1]
	var sec *section.Section
	if strings.Contains(heading, " > ") {
		sec = a.Tree.ByPath(heading)
	} else {
		matches := a.Tree.ByTitle(heading)
		switch len(matches) {
		case 0:
		case 1:
			sec = matches[0]
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "heading %q is ambiguous; use a full path:\n", heading)
			for _, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m.Path())
			}
			return shared.NewExitError(shared.ExitValidationFailed)
		}
	}
	if sec == nil {
		return shared.NewExitErrorf(shared.ExitUsageError, "section %q not found in %s", heading, args[0])
	}

	fmt.Fprintln(cmd.OutOrStdout(), sec.BodyText())
	return nil
}

// sectionEntry is one row of a list-sections listing.
type sectionEntry struct {
	Level int    `json:"level" yaml:"level"`
	Title string `json:"title" yaml:"title"`
	Path  string `json:"path" yaml:"path"`
	Line  int    `json:"line" yaml:"line"`
}

func runListSections(cmd *cobra.Command, args []string) error {
	a, err := artifact.Load(args[0])
	if err != nil {
		return err
	}

	secs := a.Tree.Sections()
	if sectionsLevel > 0 {
		secs = a.Tree.ByLevel(sectionsLevel)
	}

	entries := []sectionEntry{}
	for _, sec := range secs {
		entries = append(entries, sectionEntry{
			Level: sec.Level,
			Title: sec.Title,
			Path:  sec.Path(),
			Line:  sec.Line,
		})
	}
	return emitListing(cmd, entries, func(out func(string), e sectionEntry) {
		out(fmt.Sprintf("%s%s  (line %d)", strings.Repeat("  ", e.Level-1), e.Title, e.Line))
	})
}

// matchEntry is one row of a search listing.
type matchEntry struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
	Text string `json:"text" yaml:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return err
	}
	ws, err := artifact.LoadWorkspace(cfg.DocsDir)
	if err != nil {
		return fmt.Errorf("loading workspace %s: %w", cfg.DocsDir, err)
	}

	match, err := searchPredicate(args[0])
	if err != nil {
		return err
	}

	entries := []matchEntry{}
	for _, role := range ws.Roles() {
		a := ws.Get(role)
		for i, line := range strings.Split(a.Raw, "\n") {
			if match(line) {
				entries = append(entries, matchEntry{File: a.Path, Line: i + 1, Text: strings.TrimSpace(line)})
			}
		}
	}
	return emitListing(cmd, entries, func(out func(string), e matchEntry) {
		out(fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Text))
	})
}

func searchPredicate(query string) (func(string) bool, error) {
	if !searchRegex {
		return func(line string) bool { return strings.Contains(line, query) }, nil
	}
	re, err := regexp.Compile(query)
	if err != nil {
		return nil, shared.NewExitErrorf(shared.ExitUsageError, "invalid --regex query: %v", err)
	}
	return re.MatchString, nil
}
