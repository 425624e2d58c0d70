// Package report defines the aggregated validation report emitted by every
// spectrace command. Reports are a pure function of the validated input:
// issue ordering, map key ordering, and the fingerprint are all stable so
// that identical input yields byte-identical output.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/schoolboyqueue/spectrace/internal/ident"
)

// Status is the outcome of one validation unit.
type Status string

const (
	// StatusPass means no blocking issues were found.
	StatusPass Status = "PASS"
	// StatusFail means blocking issues were found.
	StatusFail Status = "FAIL"
	// StatusSkipped means the check was not run because an upstream artifact
	// failed structural validation.
	StatusSkipped Status = "SKIPPED"
)

// Category buckets issues for scoring and reporting.
type Category string

const (
	// CategoryStructure covers required sections, heading order, duplicate
	// and malformed identifiers.
	CategoryStructure Category = "structure"
	// CategoryCompleteness covers unchecked required content and placeholder
	// tokens.
	CategoryCompleteness Category = "completeness"
	// CategoryClarity covers formatting violations.
	CategoryClarity Category = "clarity"
	// CategoryIntegration covers reference hygiene within the artifact and
	// status declarations.
	CategoryIntegration Category = "integration"
	// CategoryCrossRef covers dangling or ambiguous references to upstream
	// artifacts.
	CategoryCrossRef Category = "cross-reference"
	// CategoryTrace covers code traceability findings.
	CategoryTrace Category = "traceability"
)

// Issue is one detected problem, located precisely enough to jump to the
// offending line.
type Issue struct {
	Category Category       `json:"category" yaml:"category"`
	Code     string         `json:"code" yaml:"code"`
	Message  string         `json:"message" yaml:"message"`
	Location ident.Location `json:"location" yaml:"location"`
}

// TraceEntry is one code traceability finding.
type TraceEntry struct {
	ID   string `json:"id" yaml:"id"`
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	Line int    `json:"line,omitempty" yaml:"line,omitempty"`
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// TraceReport aggregates the Code Traceability Scanner's findings for one run.
type TraceReport struct {
	Status       Status       `json:"status" yaml:"status"`
	Missing      []TraceEntry `json:"missing" yaml:"missing"`
	Extra        []TraceEntry `json:"extra" yaml:"extra"`
	Malformed    []TraceEntry `json:"malformed" yaml:"malformed"`
	FilesScanned int          `json:"files_scanned" yaml:"files_scanned"`
	FilesSkipped int          `json:"files_skipped" yaml:"files_skipped"`
}

// Report is the structured result for one artifact or one cascaded run.
// Children is keyed by artifact role for cascaded runs.
type Report struct {
	Status         Status             `json:"status" yaml:"status"`
	Score          int                `json:"score" yaml:"score"`
	CategoryScores map[string]int     `json:"category_scores,omitempty" yaml:"category_scores,omitempty"`
	Issues         []Issue            `json:"issues" yaml:"issues"`
	// CrossRefs records the outcome of this artifact's cross-reference check
	// against each upstream artifact role: SKIPPED when the upstream failed
	// structural validation, FAIL when references against it are dangling or
	// ambiguous, PASS otherwise.
	CrossRefs   map[string]Status  `json:"cross_refs,omitempty" yaml:"cross_refs,omitempty"`
	Children    map[string]*Report `json:"children,omitempty" yaml:"children,omitempty"`
	Trace       *TraceReport       `json:"trace,omitempty" yaml:"trace,omitempty"`
	Fingerprint string             `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
}

// New creates an empty passing report.
func New() *Report {
	return &Report{Status: StatusPass, Issues: []Issue{}}
}

// Add appends an issue and flips the report to FAIL.
func (r *Report) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
	r.Status = StatusFail
}

// AddChild attaches a child report under an artifact role key.
func (r *Report) AddChild(role string, child *Report) {
	if r.Children == nil {
		r.Children = make(map[string]*Report)
	}
	r.Children[role] = child
}

// SortIssues orders issues by location then category then code. This is the
// single ordering rule for every report; it is a function of
// position-in-document, never of map iteration order.
func (r *Report) SortIssues() {
	sort.SliceStable(r.Issues, func(i, j int) bool {
		a, b := r.Issues[i], r.Issues[j]
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		if a.Location.Line != b.Location.Line {
			return a.Location.Line < b.Location.Line
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Code < b.Code
	})
	for _, c := range r.Children {
		c.SortIssues()
	}
}

// Seal sorts issues and computes the fingerprint: the sha256 of the report's
// canonical JSON encoding (fingerprint field excluded). CI consumers compare
// fingerprints to detect report drift cheaply.
func (r *Report) Seal() error {
	r.SortIssues()
	r.Fingerprint = ""
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("fingerprinting report: %w", err)
	}
	sum := sha256.Sum256(data)
	r.Fingerprint = hex.EncodeToString(sum[:])
	return nil
}

// EncodeJSON renders the report as indented JSON. encoding/json sorts map
// keys, so children and category scores encode deterministically.
func (r *Report) EncodeJSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeYAML renders the report as YAML.
func (r *Report) EncodeYAML() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return data, nil
}
