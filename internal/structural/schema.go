// Package structural validates a single artifact against the schema contract
// for its kind and computes the weighted 0-100 score. The validator reports
// score and issues only; pass thresholds are caller policy.
package structural

import (
	"github.com/schoolboyqueue/spectrace/internal/artifact"
)

// Schema is the structural contract for one artifact kind.
type Schema struct {
	// RequiredSections lists heading titles that must be present, in the
	// order they must appear.
	RequiredSections []string
	// SemKinds is the closed set of semantic kinds a tagged block may
	// declare in this artifact. Empty means blocks are not expected here.
	SemKinds []string
	// RequireRefs demands a refs trailer on every tagged block, tying the
	// artifact into its upstream layer.
	RequireRefs bool
	// RequireBlocks demands at least one tagged block in the document.
	RequireBlocks bool
}

// AllowsSemKind reports whether the schema accepts blocks of the given
// semantic kind.
func (s Schema) AllowsSemKind(semKind string) bool {
	for _, k := range s.SemKinds {
		if k == semKind {
			return true
		}
	}
	return false
}

// schemas is the per-kind schema table. Kind dispatch happens here and
// nowhere else.
var schemas = map[artifact.Kind]Schema{
	artifact.KindBusinessContext: {
		RequiredSections: []string{"Overview", "Goals", "Stakeholders", "Constraints"},
		SemKinds:         []string{"goal", "actor"},
		RequireBlocks:    true,
	},
	artifact.KindDecisionRecord: {
		RequiredSections: []string{"Overview", "Decisions"},
		SemKinds:         []string{"adr"},
		RequireRefs:      true,
		RequireBlocks:    true,
	},
	artifact.KindDesign: {
		RequiredSections: []string{"Overview", "Architecture", "Requirements", "Integration"},
		SemKinds:         []string{"req", "fr", "nfr", "flow"},
		RequireRefs:      true,
		RequireBlocks:    true,
	},
	artifact.KindFeatureManifest: {
		RequiredSections: []string{"Overview", "Features"},
		SemKinds:         []string{"feat"},
		RequireRefs:      true,
		RequireBlocks:    true,
	},
	artifact.KindFeatureDesign: {
		RequiredSections: []string{"Overview", "Requirements", "Flows", "Integration"},
		SemKinds:         []string{"req", "fr", "flow"},
		RequireRefs:      true,
		RequireBlocks:    true,
	},
	artifact.KindFeatureChanges: {
		RequiredSections: []string{"Overview", "Changes"},
		SemKinds:         []string{"chg"},
		RequireRefs:      true,
		RequireBlocks:    true,
	},
}

// SchemaFor returns the schema contract for a kind.
func SchemaFor(kind artifact.Kind) Schema {
	return schemas[kind]
}
