// Package cascade owns the fixed artifact dependency graph and runs cascaded
// validation: every artifact in a target's dependency chain is validated
// least-dependent first, cross-reference checks resolve identifiers against
// upstream artifacts, and an upstream structural failure demotes the checks
// that depend on it to SKIPPED instead of cascading spurious failures.
package cascade

import (
	"regexp"
	"strings"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/ident"
	"github.com/schoolboyqueue/spectrace/internal/section"
)

// backtickToken matches backtick-quoted tokens in document text.
var backtickToken = regexp.MustCompile("`([^`]+)`")

// BuildArtifactIndex indexes one artifact's normative definitions.
func BuildArtifactIndex(a *artifact.Artifact) *ident.Index {
	idx := ident.NewIndex()
	for _, b := range a.Tree.Blocks {
		if b.Malformed {
			continue
		}
		idx.AddDefinition(&ident.Definition{
			ID:       b.ID,
			Location: ident.Location{File: a.Path, Section: b.Section.Path(), Line: b.Line},
			Checked:  b.Checked,
			Phases:   b.PhaseMap(),
		})
	}
	return idx
}

// BuildWorkspaceIndex indexes every artifact in the workspace: definitions
// from tagged blocks, references from every other backtick-quoted identifier
// occurrence (refs trailers and prose mentions alike).
func BuildWorkspaceIndex(ws *artifact.Workspace) *ident.Index {
	idx := ident.NewIndex()
	for _, role := range ws.Roles() {
		indexArtifact(idx, ws.Get(role))
	}
	return idx
}

// indexArtifact walks an artifact line by line. On a tagged-block line, the
// declared identifier is a definition and everything else backticked is a
// reference; on any other line every identifier-shaped backticked token is a
// reference.
func indexArtifact(idx *ident.Index, a *artifact.Artifact) {
	blocksByLine := make(map[int]string, len(a.Tree.Blocks))
	for _, b := range a.Tree.Blocks {
		if b.Malformed {
			continue
		}
		blocksByLine[b.Line] = b.RawID
		idx.AddDefinition(&ident.Definition{
			ID:       b.ID,
			Location: ident.Location{File: a.Path, Section: b.Section.Path(), Line: b.Line},
			Checked:  b.Checked,
			Phases:   b.PhaseMap(),
		})
	}

	var fence section.FenceTracker
	for i, line := range strings.Split(a.Raw, "\n") {
		lineNo := i + 1
		if fence.Step(line) {
			continue
		}

		defRaw, isBlockLine := blocksByLine[lineNo]
		seenDef := false
		for _, m := range backtickToken.FindAllStringSubmatch(line, -1) {
			token := m[1]
			if isBlockLine && !seenDef && token == defRaw {
				seenDef = true
				continue
			}
			id, err := ident.Parse(token)
			if err != nil {
				continue // prose code spans are not identifiers
			}
			idx.AddReference(&ident.Reference{
				ID:       id,
				Location: ident.Location{File: a.Path, Line: lineNo},
			})
		}
	}
}
