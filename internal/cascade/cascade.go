package cascade

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/ident"
	"github.com/schoolboyqueue/spectrace/internal/report"
	"github.com/schoolboyqueue/spectrace/internal/structural"
)

// Cross-reference issue codes.
const (
	CodeMissingUpstream    = "cross-reference.missing-upstream"
	CodeMalformedReference = "cross-reference.malformed-reference"
	CodeDanglingReference  = "cross-reference.dangling-reference"
	CodeAmbiguousReference = "cross-reference.ambiguous-reference"
	CodeStaleVersion       = "cross-reference.stale-version"
	CodeUnknownOwner       = "cross-reference.unknown-owner"
)

// kindOrder fixes the cascade processing order: least-dependent kinds first.
var kindOrder = map[artifact.Kind]int{
	artifact.KindBusinessContext: 0,
	artifact.KindDecisionRecord:  1,
	artifact.KindDesign:          2,
	artifact.KindFeatureManifest: 3,
	artifact.KindFeatureDesign:   4,
	artifact.KindFeatureChanges:  5,
}

// Runner validates artifacts through the dependency cascade. It owns the
// per-run state: structural outcomes and per-artifact indexes, built once and
// discarded with the run.
type Runner struct {
	ws *artifact.Workspace
	// structFailed records, per validated role, whether structural validation
	// failed. Captured before cross-reference checks mutate the report's
	// status: downstream demotion keys on structural failure only, an
	// upstream's own dangling references must not silence downstream checks.
	structFailed map[artifact.Role]bool
	indexes      map[artifact.Role]*ident.Index
}

// NewRunner creates a runner over one loaded workspace.
func NewRunner(ws *artifact.Workspace) *Runner {
	return &Runner{
		ws:           ws,
		structFailed: make(map[artifact.Role]bool),
		indexes:      make(map[artifact.Role]*ident.Index),
	}
}

// Run validates the target role and its full dependency chain, or every
// artifact in the workspace when target is empty. The aggregated report is
// keyed by artifact role; its top-level score is the minimum child score
// (gate semantics).
func (r *Runner) Run(target artifact.Role) (*report.Report, error) {
	roles, err := r.chain(target)
	if err != nil {
		return nil, err
	}

	top := report.New()
	minScore := -1
	for _, role := range roles {
		child := r.validateOne(role)
		top.AddChild(string(role), child)
		if child.Status == report.StatusFail {
			top.Status = report.StatusFail
		}
		if minScore < 0 || child.Score < minScore {
			minScore = child.Score
		}
	}
	if minScore >= 0 {
		top.Score = minScore
	}

	r.checkStaleVersions(top, roles)
	top.SortIssues()
	return top, nil
}

// chain returns the target role plus its transitive upstream roles in fixed
// cascade order, or every workspace role when target is empty.
func (r *Runner) chain(target artifact.Role) ([]artifact.Role, error) {
	var roles []artifact.Role
	if target == "" {
		roles = r.ws.Roles()
	} else {
		a := r.ws.Get(target)
		if a == nil {
			return nil, fmt.Errorf("artifact %q not found in workspace", target)
		}
		seen := map[artifact.Role]bool{}
		var visit func(a *artifact.Artifact)
		visit = func(a *artifact.Artifact) {
			if seen[a.Role()] {
				return
			}
			seen[a.Role()] = true
			roles = append(roles, a.Role())
			for role, up := range r.ws.Upstream(a) {
				if up != nil {
					visit(up)
				} else if !seen[role] {
					seen[role] = true
					roles = append(roles, role)
				}
			}
		}
		visit(a)
	}

	sort.Slice(roles, func(i, j int) bool {
		ki, _ := roleKind(roles[i])
		kj, _ := roleKind(roles[j])
		if kindOrder[ki] != kindOrder[kj] {
			return kindOrder[ki] < kindOrder[kj]
		}
		return roles[i] < roles[j]
	})
	return roles, nil
}

// roleKind splits a role key back into its kind and feature.
func roleKind(role artifact.Role) (artifact.Kind, string) {
	name, feature := string(role), ""
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name, feature = name[:i], name[i+1:]
	}
	kind, _ := artifact.ParseKind(name)
	return kind, feature
}

// validateOne runs structural validation for a role, then its cross-reference
// checks. Results are memoized per run.
func (r *Runner) validateOne(role artifact.Role) *report.Report {
	a := r.ws.Get(role)
	if a == nil {
		missing := report.New()
		missing.Add(report.Issue{
			Category: report.CategoryCrossRef,
			Code:     CodeMissingUpstream,
			Message:  fmt.Sprintf("artifact %s is required by the cascade but missing from the workspace", role),
		})
		r.structFailed[role] = true
		return missing
	}

	res := structural.Validate(a)
	r.structFailed[role] = res.Status == report.StatusFail
	r.indexes[role] = BuildArtifactIndex(a)
	r.checkCrossRefs(a, res)

	res.SortIssues()
	res.Score, res.CategoryScores = structural.Score(structuralOnly(res.Issues))
	return res
}

// structuralOnly filters out cross-reference issues: the 100-point budget
// covers the four structural categories, cross-reference findings gate status
// without moving the score.
func structuralOnly(issues []report.Issue) []report.Issue {
	out := make([]report.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.Category != report.CategoryCrossRef {
			out = append(out, issue)
		}
	}
	return out
}

// checkCrossRefs resolves every reference in a's tagged blocks against the
// artifact's own definitions and its upstream chain. Upstreams that failed
// structural validation are marked SKIPPED and excluded from resolution.
func (r *Runner) checkCrossRefs(a *artifact.Artifact, res *report.Report) {
	if len(a.Kind.DependsOn()) == 0 {
		return
	}

	chain := r.upstreamChain(a)
	res.CrossRefs = make(map[string]report.Status, len(chain)+1)

	// Direct upstreams missing from the workspace: nothing to check against.
	for role, up := range r.ws.Upstream(a) {
		if up == nil {
			res.CrossRefs[string(role)] = report.StatusSkipped
		}
	}

	usable := make([]*artifact.Artifact, 0, len(chain))
	for _, up := range chain {
		if r.structFailed[up.Role()] {
			res.CrossRefs[string(up.Role())] = report.StatusSkipped
			continue
		}
		res.CrossRefs[string(up.Role())] = report.StatusPass
		usable = append(usable, up)
	}

	own := r.indexes[a.Role()]
	for _, b := range a.Tree.Blocks {
		if b.Malformed {
			continue
		}
		loc := ident.Location{File: a.Path, Section: b.Section.Path(), Line: b.Line}
		for _, raw := range b.Refs {
			r.checkReference(raw, loc, a, own, usable, res)
		}
	}
}

// checkReference resolves one raw reference string. Resolution candidates are
// the artifact itself plus every usable upstream whose schema declares the
// reference's semantic kind; zero matches is dangling, more than one is
// ambiguous.
func (r *Runner) checkReference(raw string, loc ident.Location, a *artifact.Artifact, own *ident.Index, usable []*artifact.Artifact, res *report.Report) {
	id, err := ident.Parse(raw)
	if err != nil {
		res.Add(report.Issue{
			Category: report.CategoryCrossRef,
			Code:     CodeMalformedReference,
			Message:  err.Error(),
			Location: loc,
		})
		return
	}

	// Internal references resolve within the artifact itself.
	if own != nil {
		if sol := own.Resolve(id); sol.Status == ident.StatusFound {
			return
		}
	}

	// An owning upstream that was skipped (structural failure or missing
	// artifact) demotes this check to SKIPPED: reporting dangling against an
	// artifact that was never cross-checkable would cascade spurious failures.
	for role, status := range res.CrossRefs {
		if status != report.StatusSkipped {
			continue
		}
		kind, _ := roleKind(artifact.Role(role))
		if structural.SchemaFor(kind).AllowsSemKind(id.SemKind) {
			return
		}
	}

	ownerFound := false
	var matches []ident.Location
	var owners []string
	for _, up := range usable {
		if !structural.SchemaFor(up.Kind).AllowsSemKind(id.SemKind) {
			continue
		}
		ownerFound = true
		owners = append(owners, string(up.Role()))
		sol := r.indexes[up.Role()].Resolve(id)
		switch sol.Status {
		case ident.StatusFound, ident.StatusAmbiguous:
			matches = append(matches, sol.Locations...)
		}
	}

	// The semantic kind may be owned by this artifact's own kind (e.g. a
	// feature design referencing its own flows); then a failed own-resolve
	// is dangling even with no upstream owner.
	if !ownerFound && !structural.SchemaFor(a.Kind).AllowsSemKind(id.SemKind) {
		res.Add(report.Issue{
			Category: report.CategoryCrossRef,
			Code:     CodeUnknownOwner,
			Message:  fmt.Sprintf("no artifact in the dependency chain declares %q identifiers (ref %s)", id.SemKind, raw),
			Location: loc,
		})
		return
	}

	switch len(matches) {
	case 0:
		res.Add(report.Issue{
			Category: report.CategoryCrossRef,
			Code:     CodeDanglingReference,
			Message:  fmt.Sprintf("reference %s does not resolve in %s", raw, ownerList(owners)),
			Location: loc,
		})
		r.failOwners(res, owners)
	case 1:
		// resolved
	default:
		res.Add(report.Issue{
			Category: report.CategoryCrossRef,
			Code:     CodeAmbiguousReference,
			Message:  fmt.Sprintf("reference %s matches %d normative locations: %s", raw, len(matches), locationList(matches)),
			Location: loc,
		})
		r.failOwners(res, owners)
	}
}

// failOwners flips the cross-reference status of the owning upstream roles
// from PASS to FAIL. SKIPPED stays SKIPPED.
func (r *Runner) failOwners(res *report.Report, owners []string) {
	for _, role := range owners {
		if res.CrossRefs[role] == report.StatusPass {
			res.CrossRefs[role] = report.StatusFail
		}
	}
}

// upstreamChain returns a's transitive upstream artifacts present in the
// workspace, nearest first, deterministic order.
func (r *Runner) upstreamChain(a *artifact.Artifact) []*artifact.Artifact {
	var out []*artifact.Artifact
	seen := map[artifact.Role]bool{a.Role(): true}
	frontier := []*artifact.Artifact{a}
	for len(frontier) > 0 {
		var next []*artifact.Artifact
		for _, cur := range frontier {
			ups := r.ws.Upstream(cur)
			roles := make([]string, 0, len(ups))
			for role := range ups {
				roles = append(roles, string(role))
			}
			sort.Strings(roles)
			for _, role := range roles {
				up := ups[artifact.Role(role)]
				if up == nil || seen[up.Role()] {
					continue
				}
				seen[up.Role()] = true
				out = append(out, up)
				next = append(next, up)
			}
		}
		frontier = next
	}
	return out
}

// checkStaleVersions reports references that lag behind the highest defined
// version of an identifier, workspace-wide.
func (r *Runner) checkStaleVersions(top *report.Report, roles []artifact.Role) {
	idx := ident.NewIndex()
	for _, role := range roles {
		if a := r.ws.Get(role); a != nil {
			indexArtifact(idx, a)
		}
	}
	for _, stale := range idx.StaleReferences() {
		top.Add(report.Issue{
			Category: report.CategoryCrossRef,
			Code:     CodeStaleVersion,
			Message: fmt.Sprintf("reference %s is superseded by %s",
				stale.Ref.ID.Base(), stale.Current.Base()),
			Location: stale.Ref.Location,
		})
	}
}

func ownerList(owners []string) string {
	if len(owners) == 0 {
		return "the artifact's own definitions"
	}
	out := owners[0]
	for _, o := range owners[1:] {
		out += ", " + o
	}
	return out
}

func locationList(locs []ident.Location) string {
	out := ""
	for i, l := range locs {
		if i > 0 {
			out += "; "
		}
		out += l.String()
	}
	return out
}
