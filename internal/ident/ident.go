// Package ident defines the canonical identifier grammar shared by all
// spectrace artifacts and provides parsing, serialization, and repository-wide
// resolution. An identifier has the shape {kind}-{project}-{semkind}-{name},
// optionally followed by a -v{N} version suffix and :ph-{N} / :inst-{name}
// qualifiers scoping a reference to a phase or instruction of the declared item.
package ident

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// identPattern matches the full qualified identifier grammar.
// Group layout: kind, project, semkind, name, version, phase, instruction.
var identPattern = regexp.MustCompile(
	`^([a-z][a-z0-9]*)-([a-z][a-z0-9]*)-([a-z][a-z0-9]*)-([a-z0-9][a-z0-9-]*?)` +
		`(?:-v([1-9][0-9]*))?(?::ph-([1-9][0-9]*))?(?::inst-([a-z0-9][a-z0-9-]*))?$`)

// versionishName catches version-shaped suffixes that failed the version
// group (e.g. "-v0", "-v01") so they are rejected instead of silently
// becoming part of the name.
var versionishName = regexp.MustCompile(`-v[0-9]+$`)

// Identifier is a parsed identifier. Version, Phase, and Instruction are
// zero-valued when absent.
type Identifier struct {
	Kind        string // methodology prefix (e.g. "spd")
	Project     string // project slug (e.g. "app")
	SemKind     string // semantic kind (e.g. "req", "fr", "flow", "adr")
	Name        string // item name, may contain hyphens
	Version     int    // 0 = unversioned
	Phase       int    // 0 = no phase qualifier
	Instruction string // "" = no instruction qualifier
}

// Parse parses a raw identifier string. The error describes the first grammar
// violation encountered.
func Parse(raw string) (Identifier, error) {
	m := identPattern.FindStringSubmatch(raw)
	if m == nil {
		return Identifier{}, fmt.Errorf("malformed identifier %q: expected {kind}-{project}-{semkind}-{name}[-vN][:ph-N][:inst-name]", raw)
	}

	id := Identifier{
		Kind:        m[1],
		Project:     m[2],
		SemKind:     m[3],
		Name:        m[4],
		Instruction: m[7],
	}
	if m[5] != "" {
		id.Version, _ = strconv.Atoi(m[5])
	}
	if m[6] != "" {
		id.Phase, _ = strconv.Atoi(m[6])
	}

	if versionishName.MatchString(id.Name) {
		return Identifier{}, fmt.Errorf("malformed identifier %q: invalid version suffix", raw)
	}

	// An instruction qualifier only makes sense inside a phase.
	if id.Instruction != "" && id.Phase == 0 {
		return Identifier{}, fmt.Errorf("malformed identifier %q: :inst qualifier requires a :ph qualifier", raw)
	}

	return id, nil
}

// MustParse parses raw and panics on error. Intended for tests and
// compile-time constant identifiers.
func MustParse(raw string) Identifier {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String serializes the identifier back to its canonical form.
// Parse(id.String()) always round-trips.
func (id Identifier) String() string {
	var sb strings.Builder
	sb.WriteString(id.Base())
	if id.Phase > 0 {
		fmt.Fprintf(&sb, ":ph-%d", id.Phase)
	}
	if id.Instruction != "" {
		fmt.Fprintf(&sb, ":inst-%s", id.Instruction)
	}
	return sb.String()
}

// Base returns the identifier without qualifiers, keeping the version suffix.
// This is the key under which definitions are indexed.
func (id Identifier) Base() string {
	s := fmt.Sprintf("%s-%s-%s-%s", id.Kind, id.Project, id.SemKind, id.Name)
	if id.Version > 0 {
		s += fmt.Sprintf("-v%d", id.Version)
	}
	return s
}

// Unversioned returns the base form with any version suffix stripped.
func (id Identifier) Unversioned() string {
	return fmt.Sprintf("%s-%s-%s-%s", id.Kind, id.Project, id.SemKind, id.Name)
}

// IsQualified reports whether the identifier carries a phase or instruction
// qualifier.
func (id Identifier) IsQualified() bool {
	return id.Phase > 0 || id.Instruction != ""
}

// WithoutQualifiers returns a copy with phase and instruction cleared.
func (id Identifier) WithoutQualifiers() Identifier {
	id.Phase = 0
	id.Instruction = ""
	return id
}

// CheckReplacement verifies the versioning invariant for an identifier
// replacement: the new version must be exactly one greater than the old
// (v1 when the old identifier was unversioned), and the two identifiers must
// otherwise name the same item.
func CheckReplacement(old, next Identifier) error {
	if old.Unversioned() != next.Unversioned() {
		return fmt.Errorf("replacement %s does not name the same item as %s", next.Base(), old.Base())
	}
	want := old.Version + 1
	if next.Version != want {
		return fmt.Errorf("replacement of %s must be version %d, got %d", old.Base(), want, next.Version)
	}
	return nil
}
