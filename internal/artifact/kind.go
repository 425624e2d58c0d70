// Package artifact defines the closed set of document kinds in the layered
// artifact hierarchy, loads documents into parsed form, and discovers a
// workspace's artifacts on disk. Each kind carries its own cascade position;
// kind resolution happens exactly once when an artifact is loaded.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is one of the closed enum of artifact kinds.
type Kind int

const (
	// KindBusinessContext is the business context document (business-context.md).
	KindBusinessContext Kind = iota
	// KindDecisionRecord is the decision record log (decisions.md).
	KindDecisionRecord
	// KindDesign is the overall architecture design (design.md).
	KindDesign
	// KindFeatureManifest is the feature manifest (features.md).
	KindFeatureManifest
	// KindFeatureDesign is a per-feature design (features/<name>/design.md).
	KindFeatureDesign
	// KindFeatureChanges is a per-feature implementation plan
	// (features/<name>/changes.md).
	KindFeatureChanges
)

// kindNames is the canonical report spelling of each kind.
var kindNames = map[Kind]string{
	KindBusinessContext: "business-context",
	KindDecisionRecord:  "decision-record",
	KindDesign:          "design",
	KindFeatureManifest: "feature-manifest",
	KindFeatureDesign:   "feature-design",
	KindFeatureChanges:  "feature-changes",
}

// String returns the canonical kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind parses a canonical kind name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown artifact kind %q", s)
}

// IsFeatureScoped reports whether the kind exists once per feature rather
// than once per workspace.
func (k Kind) IsFeatureScoped() bool {
	return k == KindFeatureDesign || k == KindFeatureChanges
}

// DependsOn returns the kinds this kind is validated against, in fixed
// cascade order. The graph is hard-coded:
//
//	feature-changes -> feature-design -> feature-manifest -> design
//	design -> {business-context, decision-record}
//	decision-record -> business-context
func (k Kind) DependsOn() []Kind {
	switch k {
	case KindDecisionRecord:
		return []Kind{KindBusinessContext}
	case KindDesign:
		return []Kind{KindBusinessContext, KindDecisionRecord}
	case KindFeatureManifest:
		return []Kind{KindDesign}
	case KindFeatureDesign:
		return []Kind{KindFeatureManifest}
	case KindFeatureChanges:
		return []Kind{KindFeatureDesign}
	default:
		return nil
	}
}

// KindFromPath resolves an artifact kind from its file path. A design.md
// under a features/ directory is a feature design; at the workspace root it
// is the overall design.
func KindFromPath(path string) (Kind, string, error) {
	base := filepath.Base(path)
	feature := featureFromPath(path)

	switch base {
	case "business-context.md":
		return KindBusinessContext, "", nil
	case "decisions.md":
		return KindDecisionRecord, "", nil
	case "features.md":
		return KindFeatureManifest, "", nil
	case "design.md":
		if feature != "" {
			return KindFeatureDesign, feature, nil
		}
		return KindDesign, "", nil
	case "changes.md":
		if feature != "" {
			return KindFeatureChanges, feature, nil
		}
		return 0, "", fmt.Errorf("changes.md outside a features/<name>/ directory: %s", path)
	}
	return 0, "", fmt.Errorf("unrecognized artifact file name %q", base)
}

// featureFromPath extracts the feature name when path sits under a
// features/<name>/ directory.
func featureFromPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for i := 0; i < len(parts)-2; i++ {
		if parts[i] == "features" {
			return parts[i+1]
		}
	}
	return ""
}

// Role is the report key for one artifact: the kind name for workspace-level
// artifacts, "kind:feature" for feature-scoped ones.
type Role string

// RoleFor builds the role key for a kind and optional feature name.
func RoleFor(kind Kind, feature string) Role {
	if kind.IsFeatureScoped() && feature != "" {
		return Role(fmt.Sprintf("%s:%s", kind, feature))
	}
	return Role(kind.String())
}
