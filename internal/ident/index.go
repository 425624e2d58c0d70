package ident

import (
	"fmt"
	"sort"
)

// Location points at a position inside an artifact precise enough to jump to.
type Location struct {
	File    string `json:"file" yaml:"file"`
	Section string `json:"section,omitempty" yaml:"section,omitempty"` // full heading path, "A > B > C"
	Line    int    `json:"line" yaml:"line"`
}

// String renders the location as file:line (section).
func (l Location) String() string {
	if l.Section != "" {
		return fmt.Sprintf("%s:%d (%s)", l.File, l.Line, l.Section)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Definition is the normative declaration of an identifier inside its owning
// artifact. Phases maps a declared phase number to the instruction names
// declared under it.
type Definition struct {
	ID       Identifier
	Location Location
	Checked  bool             // [x] in the source document
	Phases   map[int][]string // phase -> instruction names, nil when none declared
}

// HasPhase reports whether the definition declares the given phase.
func (d *Definition) HasPhase(phase int) bool {
	_, ok := d.Phases[phase]
	return ok
}

// HasInstruction reports whether the definition declares the given
// instruction under the given phase.
func (d *Definition) HasInstruction(phase int, inst string) bool {
	for _, name := range d.Phases[phase] {
		if name == inst {
			return true
		}
	}
	return false
}

// Reference is a non-normative occurrence of an identifier in a document or
// source file.
type Reference struct {
	ID       Identifier
	Location Location
}

// ResolutionStatus is the outcome of resolving an identifier.
type ResolutionStatus int

const (
	// StatusFound means exactly one normative location matched.
	StatusFound ResolutionStatus = iota
	// StatusAmbiguous means more than one normative location matched at some
	// narrowing stage; all candidates are reported.
	StatusAmbiguous
	// StatusNotFound means no normative location matched.
	StatusNotFound
)

// String returns the report spelling of the status.
func (s ResolutionStatus) String() string {
	switch s {
	case StatusFound:
		return "FOUND"
	case StatusAmbiguous:
		return "AMBIGUOUS"
	case StatusNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Resolution is the result of Index.Resolve: the status, the candidate
// locations (one for FOUND, all candidates for AMBIGUOUS), and the narrowing
// stage that decided the outcome ("base", "phase", or "instruction").
type Resolution struct {
	Status    ResolutionStatus
	Locations []Location
	Stage     string
}

// Index is a repository-wide identifier index: normative definitions keyed by
// versioned base form, plus every non-normative reference. It is built fresh
// per run and never mutated afterwards.
type Index struct {
	defs map[string][]*Definition
	refs map[string][]*Reference
}

// NewIndex creates an empty identifier index.
func NewIndex() *Index {
	return &Index{
		defs: make(map[string][]*Definition),
		refs: make(map[string][]*Reference),
	}
}

// AddDefinition records a normative definition. Duplicate bases are retained
// so that uniqueness violations surface as AMBIGUOUS resolutions and
// structural issues rather than silently shadowing each other.
func (x *Index) AddDefinition(d *Definition) {
	key := d.ID.Base()
	x.defs[key] = append(x.defs[key], d)
}

// AddReference records a non-normative occurrence.
func (x *Index) AddReference(r *Reference) {
	key := r.ID.Base()
	x.refs[key] = append(x.refs[key], r)
}

// Definitions returns the definitions recorded under a versioned base form.
func (x *Index) Definitions(base string) []*Definition {
	return x.defs[base]
}

// References returns every recorded reference to a versioned base form,
// ordered by file then line.
func (x *Index) References(base string) []*Reference {
	refs := append([]*Reference(nil), x.refs[base]...)
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Location.File != refs[j].Location.File {
			return refs[i].Location.File < refs[j].Location.File
		}
		return refs[i].Location.Line < refs[j].Location.Line
	})
	return refs
}

// Bases returns every versioned base form with at least one definition,
// sorted lexically for deterministic enumeration.
func (x *Index) Bases() []string {
	bases := make([]string, 0, len(x.defs))
	for base := range x.defs {
		bases = append(bases, base)
	}
	sort.Strings(bases)
	return bases
}

// Resolve resolves an identifier against the index using exact multi-stage
// narrowing: base, then phase, then instruction. Ambiguity at any stage is
// reported with every candidate location instead of picking the first match;
// a missing phase or instruction under an otherwise unique base is NOT_FOUND.
func (x *Index) Resolve(id Identifier) Resolution {
	candidates := x.defs[id.Base()]
	if len(candidates) == 0 {
		return Resolution{Status: StatusNotFound, Stage: "base"}
	}
	if len(candidates) > 1 {
		return Resolution{Status: StatusAmbiguous, Locations: locations(candidates), Stage: "base"}
	}

	def := candidates[0]
	if id.Phase == 0 {
		return Resolution{Status: StatusFound, Locations: []Location{def.Location}, Stage: "base"}
	}
	if !def.HasPhase(id.Phase) {
		return Resolution{Status: StatusNotFound, Stage: "phase"}
	}
	if id.Instruction == "" {
		return Resolution{Status: StatusFound, Locations: []Location{def.Location}, Stage: "phase"}
	}
	if !def.HasInstruction(id.Phase, id.Instruction) {
		return Resolution{Status: StatusNotFound, Stage: "instruction"}
	}
	return Resolution{Status: StatusFound, Locations: []Location{def.Location}, Stage: "instruction"}
}

// StaleReference describes a reference that still uses a superseded version
// of an identifier.
type StaleReference struct {
	Ref     *Reference
	Current Identifier // the highest-versioned definition in the index
}

// StaleReferences returns every reference whose version lags behind the
// highest-versioned definition of the same item. References are ordered by
// file then line for deterministic reporting.
func (x *Index) StaleReferences() []StaleReference {
	// Highest defined version per unversioned base.
	latest := make(map[string]Identifier)
	for _, defs := range x.defs {
		for _, d := range defs {
			key := d.ID.Unversioned()
			if cur, ok := latest[key]; !ok || d.ID.Version > cur.Version {
				latest[key] = d.ID
			}
		}
	}

	var stale []StaleReference
	for _, refs := range x.refs {
		for _, r := range refs {
			cur, ok := latest[r.ID.Unversioned()]
			if ok && r.ID.Version < cur.Version {
				stale = append(stale, StaleReference{Ref: r, Current: cur})
			}
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		a, b := stale[i].Ref.Location, stale[j].Ref.Location
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	return stale
}

func locations(defs []*Definition) []Location {
	locs := make([]Location, len(defs))
	for i, d := range defs {
		locs[i] = d.Location
	}
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].File != locs[j].File {
			return locs[i].File < locs[j].File
		}
		return locs[i].Line < locs[j].Line
	})
	return locs
}
