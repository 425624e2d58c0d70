package scanner

import (
	"fmt"
	"sort"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/ident"
	"github.com/schoolboyqueue/spectrace/internal/report"
)

// Requirement is one qualified identifier that checked document items demand
// to see traced in code.
type Requirement struct {
	ID       ident.Identifier
	Location ident.Location // the declaring tagged block
}

// RequiredFrom derives the must-implement set from every checked tagged block
// in the workspace:
//
//   - a checked block with no phase sub-items requires its base identifier
//     qualified by the block's priority as the phase (p1 -> :ph-1);
//   - a checked block with phase sub-items requires every checked phase, and
//     every checked instruction under a checked phase.
//
// Unchecked items require nothing; they simply have not been implemented yet.
func RequiredFrom(ws *artifact.Workspace) []Requirement {
	var reqs []Requirement
	for _, role := range ws.Roles() {
		a := ws.Get(role)
		for _, b := range a.Tree.Blocks {
			if b.Malformed || !b.Checked {
				continue
			}
			loc := ident.Location{File: a.Path, Section: b.Section.Path(), Line: b.Line}

			if len(b.Phases) == 0 {
				id := b.ID
				id.Phase = b.Priority
				reqs = append(reqs, Requirement{ID: id, Location: loc})
				continue
			}

			for _, ph := range b.Phases {
				if !ph.Checked {
					continue
				}
				id := b.ID
				id.Phase = ph.Number
				reqs = append(reqs, Requirement{ID: id, Location: loc})
				for _, in := range ph.Instructions {
					if !in.Checked {
						continue
					}
					qual := id
					qual.Instruction = in.Name
					reqs = append(reqs, Requirement{ID: qual, Location: loc})
				}
			}
		}
	}

	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].ID.String() < reqs[j].ID.String()
	})
	return reqs
}

// Match compares the scanned tags against the must-implement set and builds
// the traceability report:
//
//   - a requirement with no exactly matching tag is missing;
//   - a tag whose base identifier corresponds to no requirement is extra;
//   - a tag whose base matches a requirement but whose qualifiers match none
//     is malformed (conservative: a partial qualifier match never silently
//     counts and never silently disappears).
func Match(reqs []Requirement, res *Result) *report.TraceReport {
	tr := &report.TraceReport{
		Status:       report.StatusPass,
		Missing:      []report.TraceEntry{},
		Extra:        []report.TraceEntry{},
		Malformed:    append([]report.TraceEntry{}, res.Malformed...),
		FilesScanned: res.FilesScanned,
		FilesSkipped: res.FilesSkipped,
	}

	tagged := make(map[string]bool, len(res.Tags))
	for _, tag := range res.Tags {
		tagged[tag.ID.String()] = true
	}

	requiredExact := make(map[string]bool, len(reqs))
	requiredBases := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		requiredExact[r.ID.String()] = true
		requiredBases[r.ID.Base()] = true
	}

	for _, r := range reqs {
		if !tagged[r.ID.String()] {
			tr.Missing = append(tr.Missing, report.TraceEntry{
				ID:   r.ID.String(),
				File: r.Location.File,
				Line: r.Location.Line,
				Note: fmt.Sprintf("checked item in %s has no trace tag", r.Location.Section),
			})
		}
	}

	for _, tag := range res.Tags {
		full := tag.ID.String()
		if requiredExact[full] {
			continue
		}
		entry := report.TraceEntry{ID: full, File: tag.File, Line: tag.Line}
		if requiredBases[tag.ID.Base()] {
			entry.Note = "tag qualifiers match no checked item"
			tr.Malformed = append(tr.Malformed, entry)
		} else {
			entry.Note = "tag has no corresponding checked document item"
			tr.Extra = append(tr.Extra, entry)
		}
	}

	sortEntries(tr.Missing)
	sortEntries(tr.Extra)
	sortEntries(tr.Malformed)

	// Missing and malformed gate the trace check; extra tags are reported
	// but left to caller policy.
	if len(tr.Missing) > 0 || len(tr.Malformed) > 0 {
		tr.Status = report.StatusFail
	}
	return tr
}
