package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/schoolboyqueue/spectrace/internal/section"
)

// Status is the advisory lifecycle state an artifact declares in its own
// text. The engine reports on the IN_PROGRESS -> READY transition; it never
// enforces it.
type Status string

const (
	// StatusInProgress is the default working state.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusReady means the artifact declares itself complete. Declaring
	// READY without a full PASS is reported as an integration issue.
	StatusReady Status = "READY"
	// StatusUnknown means the artifact declares no status line.
	StatusUnknown Status = ""
)

// statusPattern matches the advisory status declaration line.
var statusPattern = regexp.MustCompile(`(?m)^Status:\s*(IN_PROGRESS|READY)\s*$`)

// Artifact is a single loaded document: its kind, source path, raw text, and
// parsed section tree. Artifacts are read fresh on every invocation and never
// mutated by the engine.
type Artifact struct {
	Kind    Kind
	Feature string // feature name for feature-scoped kinds, "" otherwise
	Path    string
	Raw     string
	Tree    *section.Tree
}

// Role returns the artifact's report key.
func (a *Artifact) Role() Role {
	return RoleFor(a.Kind, a.Feature)
}

// Status extracts the advisory status declaration, StatusUnknown when absent.
func (a *Artifact) Status() Status {
	if m := statusPattern.FindStringSubmatch(a.Raw); m != nil {
		return Status(m[1])
	}
	return StatusUnknown
}

// StatusLine returns the 1-based line of the status declaration, 0 when
// absent.
func (a *Artifact) StatusLine() int {
	loc := statusPattern.FindStringIndex(a.Raw)
	if loc == nil {
		return 0
	}
	return 1 + strings.Count(a.Raw[:loc[0]], "\n")
}

// Load reads and parses one artifact, resolving its kind from the path.
func Load(path string) (*Artifact, error) {
	kind, feature, err := KindFromPath(path)
	if err != nil {
		return nil, err
	}
	return LoadAs(path, kind, feature)
}

// LoadAs reads and parses one artifact with an explicitly chosen kind.
func LoadAs(path string, kind Kind, feature string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	return &Artifact{
		Kind:    kind,
		Feature: feature,
		Path:    path,
		Raw:     string(data),
		Tree:    section.Parse(string(data)),
	}, nil
}

// Workspace is the full set of artifacts discovered under one docs root.
type Workspace struct {
	Root      string
	Artifacts map[Role]*Artifact
}

// wellKnownFiles maps workspace-level artifact file names to their kinds.
var wellKnownFiles = []struct {
	name string
	kind Kind
}{
	{"business-context.md", KindBusinessContext},
	{"decisions.md", KindDecisionRecord},
	{"design.md", KindDesign},
	{"features.md", KindFeatureManifest},
}

// LoadWorkspace discovers and loads every artifact under root: the four
// workspace-level documents plus features/<name>/{design.md,changes.md}.
// Missing files are simply absent from the result; an unreadable present file
// is a fatal error.
func LoadWorkspace(root string) (*Workspace, error) {
	ws := &Workspace{Root: root, Artifacts: make(map[Role]*Artifact)}

	for _, wk := range wellKnownFiles {
		path := filepath.Join(root, wk.name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
		art, err := LoadAs(path, wk.kind, "")
		if err != nil {
			return nil, err
		}
		ws.Artifacts[art.Role()] = art
	}

	featureDirs, err := filepath.Glob(filepath.Join(root, "features", "*"))
	if err != nil {
		return nil, fmt.Errorf("globbing feature directories: %w", err)
	}
	sort.Strings(featureDirs)

	for _, dir := range featureDirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		feature := filepath.Base(dir)
		for name, kind := range map[string]Kind{
			"design.md":  KindFeatureDesign,
			"changes.md": KindFeatureChanges,
		} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			art, err := LoadAs(path, kind, feature)
			if err != nil {
				return nil, err
			}
			ws.Artifacts[art.Role()] = art
		}
	}

	return ws, nil
}

// Get returns the workspace artifact for a role, or nil.
func (w *Workspace) Get(role Role) *Artifact {
	return w.Artifacts[role]
}

// Roles returns every loaded role sorted lexically for deterministic
// iteration.
func (w *Workspace) Roles() []Role {
	roles := make([]Role, 0, len(w.Artifacts))
	for r := range w.Artifacts {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Features returns the sorted feature names that have at least one
// feature-scoped artifact.
func (w *Workspace) Features() []string {
	seen := make(map[string]bool)
	for _, a := range w.Artifacts {
		if a.Feature != "" {
			seen[a.Feature] = true
		}
	}
	features := make([]string, 0, len(seen))
	for f := range seen {
		features = append(features, f)
	}
	sort.Strings(features)
	return features
}

// Upstream returns the artifacts a given artifact depends on, resolved
// against this workspace. Feature-scoped dependencies resolve within the same
// feature. Missing upstream artifacts are returned as nil entries keyed by
// role so callers can report them.
func (w *Workspace) Upstream(a *Artifact) map[Role]*Artifact {
	deps := make(map[Role]*Artifact)
	for _, kind := range a.Kind.DependsOn() {
		feature := ""
		if kind.IsFeatureScoped() {
			feature = a.Feature
		}
		role := RoleFor(kind, feature)
		deps[role] = w.Artifacts[role]
	}
	return deps
}

// FeatureIdentifier derives the manifest identifier name expected for a
// feature directory name (they match one-to-one in the methodology).
func FeatureIdentifier(feature string) string {
	return strings.ToLower(feature)
}
