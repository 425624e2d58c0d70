package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/cascade"
	"github.com/schoolboyqueue/spectrace/internal/cli/shared"
	"github.com/schoolboyqueue/spectrace/internal/config"
	"github.com/schoolboyqueue/spectrace/internal/report"
	"github.com/schoolboyqueue/spectrace/internal/scanner"
)

var (
	validateSkipTrace bool
	validateDocsDir   string
	validateSourceDir string
)

var validateCmd = &cobra.Command{
	Use:   "validate [role-or-path]",
	Short: "Validate an artifact and its dependency chain",
	Long: `Validate one artifact (by role key or file path) together with every
artifact it depends on, or the entire workspace when no target is given.

The run performs structural validation of each artifact in the chain,
cross-reference checks against upstream artifacts, and a code traceability
scan of the source tree unless skipped. Cross-reference checks against an
artifact that failed structural validation are marked SKIPPED rather than
reported as spurious failures.

Exit codes: 0 when everything passes, 2 when validation issues were found,
1 when the workspace or config could not be read.`,
	Example: `  # Validate the whole workspace
  spectrace validate

  # Validate one feature's chain by role key
  spectrace validate feature-design:auth

  # Validate by document path
  spectrace validate docs/features/auth/design.md

  # Documents only, no code scan
  spectrace validate --skip-traceability`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.GroupID = shared.GroupValidation
	validateCmd.Flags().BoolVar(&validateSkipTrace, "skip-traceability", false, "Skip the code traceability scan")
	validateCmd.Flags().StringVar(&validateDocsDir, "docs-dir", "", "Override the configured documents directory")
	validateCmd.Flags().StringVar(&validateSourceDir, "source-dir", "", "Override the configured source directory")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return err
	}
	if validateDocsDir != "" {
		cfg.DocsDir = validateDocsDir
	}
	if validateSourceDir != "" {
		cfg.SourceDir = validateSourceDir
	}

	ws, err := artifact.LoadWorkspace(cfg.DocsDir)
	if err != nil {
		return fmt.Errorf("loading workspace %s: %w", cfg.DocsDir, err)
	}

	target, err := resolveTarget(ws, args)
	if err != nil {
		return err
	}

	caps := shared.DetectTerminalCapabilities()

	sp := shared.NewSpinner(caps, "Validating artifacts")
	rep, err := cascade.NewRunner(ws).Run(target)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return err
	}

	if !validateSkipTrace && !cfg.SkipCodeScan {
		sp = shared.NewSpinner(caps, "Scanning source tree")
		trace, err := runTraceScan(cfg, ws)
		if sp != nil {
			sp.Stop()
		}
		if err != nil {
			return err
		}
		rep.Trace = trace
		if trace.Status == report.StatusFail {
			rep.Status = report.StatusFail
		}
	}

	if err := rep.Seal(); err != nil {
		return err
	}
	if err := emitReport(cmd, cfg, caps, rep); err != nil {
		return err
	}

	if rep.Status == report.StatusFail {
		return shared.NewExitError(shared.ExitValidationFailed)
	}
	return nil
}

// resolveTarget turns the optional positional argument into a workspace role:
// either a role key like "feature-design:auth" or a document path.
func resolveTarget(ws *artifact.Workspace, args []string) (artifact.Role, error) {
	if len(args) == 0 {
		return "", nil
	}
	raw := args[0]

	if ws.Get(artifact.Role(raw)) != nil {
		return artifact.Role(raw), nil
	}

	if _, err := os.Stat(raw); err == nil {
		kind, feature, err := artifact.KindFromPath(filepath.ToSlash(raw))
		if err != nil {
			return "", shared.NewExitErrorf(shared.ExitUsageError, "unrecognized artifact path %s: %v", raw, err)
		}
		role := artifact.RoleFor(kind, feature)
		if ws.Get(role) == nil {
			return "", shared.NewExitErrorf(shared.ExitUsageError, "artifact %s is not part of the workspace", raw)
		}
		return role, nil
	}

	return "", shared.NewExitErrorf(shared.ExitUsageError, "unknown validation target %q", raw)
}

// runTraceScan scans the configured source tree and matches the tags found
// against the must-implement set derived from checked document items.
func runTraceScan(cfg *config.Configuration, ws *artifact.Workspace) (*report.TraceReport, error) {
	if _, err := os.Stat(cfg.SourceDir); err != nil {
		return nil, fmt.Errorf("source dir %s: %w", cfg.SourceDir, err)
	}
	res, err := cfg.Scanner().ScanTree(cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", cfg.SourceDir, err)
	}
	return scanner.Match(scanner.RequiredFrom(ws), res), nil
}

// emitReport writes the report to stdout in the effective format.
func emitReport(cmd *cobra.Command, cfg *config.Configuration, caps shared.TerminalCapabilities, rep *report.Report) error {
	out := cmd.OutOrStdout()
	switch effectiveFormat(cfg, caps) {
	case "json":
		data, err := rep.EncodeJSON()
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	case "yaml":
		data, err := rep.EncodeYAML()
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	default:
		shared.RenderReport(out, rep, caps)
	}
	return nil
}
