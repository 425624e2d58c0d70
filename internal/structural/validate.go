package structural

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/ident"
	"github.com/schoolboyqueue/spectrace/internal/report"
	"github.com/schoolboyqueue/spectrace/internal/section"
)

// placeholderPattern matches tokens that mark unfinished content.
var placeholderPattern = regexp.MustCompile(`\bTBD\b|\bTODO\b|\{\{[^}]*\}\}|\[PLACEHOLDER\]`)

// Validate checks one artifact against the schema for its kind and returns a
// structural report with per-category scores. Identical input text always
// produces an identical report.
func Validate(a *artifact.Artifact) *report.Report {
	r := report.New()
	schema := SchemaFor(a.Kind)

	checkRequiredSections(a, schema, r)
	checkBlocks(a, schema, r)
	checkPlaceholders(a, r)
	checkHeadingJumps(a, r)
	checkReadyDeclaration(a, r)

	r.SortIssues()
	r.Score, r.CategoryScores = Score(r.Issues)
	return r
}

// checkRequiredSections verifies presence, order, and non-emptiness of the
// schema's required sections.
func checkRequiredSections(a *artifact.Artifact, schema Schema, r *report.Report) {
	lastLine := 0
	for _, title := range schema.RequiredSections {
		secs := a.Tree.ByTitle(title)
		if len(secs) == 0 {
			r.Add(report.Issue{
				Category: report.CategoryStructure,
				Code:     CodeMissingSection,
				Message:  fmt.Sprintf("required section %q is missing", title),
				Location: ident.Location{File: a.Path, Line: 1},
			})
			continue
		}
		sec := secs[0]
		if sec.Line < lastLine {
			r.Add(report.Issue{
				Category: report.CategoryStructure,
				Code:     CodeSectionOrder,
				Message:  fmt.Sprintf("section %q appears out of schema order", title),
				Location: ident.Location{File: a.Path, Section: sec.Path(), Line: sec.Line},
			})
		} else {
			lastLine = sec.Line
		}
		if sectionEmpty(sec) {
			r.Add(report.Issue{
				Category: report.CategoryCompleteness,
				Code:     CodeEmptySection,
				Message:  fmt.Sprintf("required section %q has no content", title),
				Location: ident.Location{File: a.Path, Section: sec.Path(), Line: sec.Line},
			})
		}
	}
}

func sectionEmpty(sec *section.Section) bool {
	if len(sec.Children) > 0 {
		return false
	}
	return strings.TrimSpace(sec.BodyText()) == ""
}

// checkBlocks validates every tagged block: identifier syntax, uniqueness of
// base identifiers within the artifact, allowed semantic kinds, priority
// range, and the refs requirement.
func checkBlocks(a *artifact.Artifact, schema Schema, r *report.Report) {
	if schema.RequireBlocks && len(a.Tree.Blocks) == 0 {
		r.Add(report.Issue{
			Category: report.CategoryStructure,
			Code:     CodeNoBlocks,
			Message:  fmt.Sprintf("%s artifact declares no tagged blocks", a.Kind),
			Location: ident.Location{File: a.Path, Line: 1},
		})
		return
	}

	seen := make(map[string]int) // base -> first declaring line
	for _, b := range a.Tree.Blocks {
		loc := ident.Location{File: a.Path, Section: b.Section.Path(), Line: b.Line}

		if b.Malformed {
			r.Add(report.Issue{
				Category: report.CategoryStructure,
				Code:     CodeMalformedIdentifier,
				Message:  b.Reason,
				Location: loc,
			})
			continue
		}

		base := b.ID.Base()
		if firstLine, dup := seen[base]; dup {
			r.Add(report.Issue{
				Category: report.CategoryStructure,
				Code:     CodeDuplicateIdentifier,
				Message:  fmt.Sprintf("identifier %s already declared at line %d", base, firstLine),
				Location: loc,
			})
		} else {
			seen[base] = b.Line
		}

		if len(schema.SemKinds) > 0 && !schema.AllowsSemKind(b.ID.SemKind) {
			r.Add(report.Issue{
				Category: report.CategoryStructure,
				Code:     CodeForeignIdentifier,
				Message:  fmt.Sprintf("semantic kind %q is not declared in %s artifacts", b.ID.SemKind, a.Kind),
				Location: loc,
			})
		}

		if b.Priority < 1 || b.Priority > 3 {
			r.Add(report.Issue{
				Category: report.CategoryClarity,
				Code:     CodeBadPriority,
				Message:  fmt.Sprintf("priority p%d is outside the p1-p3 range", b.Priority),
				Location: loc,
			})
		}

		if schema.RequireRefs && len(b.Refs) == 0 {
			r.Add(report.Issue{
				Category: report.CategoryIntegration,
				Code:     CodeMissingRefs,
				Message:  fmt.Sprintf("tagged block %s carries no refs trailer", base),
				Location: loc,
			})
		}
	}
}

// checkPlaceholders flags placeholder tokens line by line, outside fenced
// code regions.
func checkPlaceholders(a *artifact.Artifact, r *report.Report) {
	var fence section.FenceTracker
	for i, line := range strings.Split(a.Raw, "\n") {
		if fence.Step(line) {
			continue
		}
		if tok := placeholderPattern.FindString(line); tok != "" {
			r.Add(report.Issue{
				Category: report.CategoryCompleteness,
				Code:     CodePlaceholder,
				Message:  fmt.Sprintf("placeholder token %q", tok),
				Location: ident.Location{File: a.Path, Line: i + 1},
			})
		}
	}
}

// checkHeadingJumps flags heading levels that skip more than one level below
// their parent.
func checkHeadingJumps(a *artifact.Artifact, r *report.Report) {
	var walk func(parent *section.Section)
	walk = func(parent *section.Section) {
		for _, child := range parent.Children {
			if child.Level > parent.Level+1 {
				r.Add(report.Issue{
					Category: report.CategoryClarity,
					Code:     CodeHeadingJump,
					Message:  fmt.Sprintf("heading %q jumps from level %d to %d", child.Title, parent.Level, child.Level),
					Location: ident.Location{File: a.Path, Section: child.Path(), Line: child.Line},
				})
			}
			walk(child)
		}
	}
	walk(a.Tree.Root)
}

// checkReadyDeclaration flags an artifact that declares Status: READY while
// structural issues are open. The transition is advisory; the engine only
// reports the inconsistency.
func checkReadyDeclaration(a *artifact.Artifact, r *report.Report) {
	if a.Status() != artifact.StatusReady || len(r.Issues) == 0 {
		return
	}
	r.Add(report.Issue{
		Category: report.CategoryIntegration,
		Code:     CodePrematureReady,
		Message:  fmt.Sprintf("artifact declares READY with %d open issues", len(r.Issues)),
		Location: ident.Location{File: a.Path, Line: a.StatusLine()},
	})
}
