package structural

import (
	"github.com/schoolboyqueue/spectrace/internal/report"
)

// Category budgets. The four buckets always sum to 100.
const (
	maxStructure    = 40
	maxCompleteness = 30
	maxClarity      = 20
	maxIntegration  = 10
)

// Issue codes and their per-violation weights. Every issue the structural
// validator can emit appears here; an unknown code would score zero and is a
// programming error caught by tests.
const (
	CodeMissingSection      = "structure.missing-section"
	CodeSectionOrder        = "structure.section-order"
	CodeDuplicateIdentifier = "structure.duplicate-identifier"
	CodeMalformedIdentifier = "structure.malformed-identifier"
	CodeForeignIdentifier   = "structure.foreign-identifier"
	CodeNoBlocks            = "structure.no-tagged-blocks"

	CodePlaceholder  = "completeness.placeholder"
	CodeEmptySection = "completeness.empty-section"

	CodeHeadingJump = "clarity.heading-jump"
	CodeBadPriority = "clarity.bad-priority"

	CodeMissingRefs    = "integration.missing-refs"
	CodePrematureReady = "integration.premature-ready"
)

var weights = map[string]int{
	CodeMissingSection:      10,
	CodeSectionOrder:        5,
	CodeDuplicateIdentifier: 10,
	CodeMalformedIdentifier: 10,
	CodeForeignIdentifier:   5,
	CodeNoBlocks:            10,

	CodePlaceholder:  5,
	CodeEmptySection: 5,

	CodeHeadingJump: 2,
	CodeBadPriority: 2,

	CodeMissingRefs:    3,
	CodePrematureReady: 10,
}

var categoryMax = map[report.Category]int{
	report.CategoryStructure:    maxStructure,
	report.CategoryCompleteness: maxCompleteness,
	report.CategoryClarity:      maxClarity,
	report.CategoryIntegration:  maxIntegration,
}

// Budget returns the point budget for a scoring category, or zero for
// categories that do not participate in scoring (cross-reference,
// traceability).
func Budget(c report.Category) int {
	return categoryMax[c]
}

// Score computes the per-category scores and total for a set of issues. Each
// category starts at its budget, loses the weight of every violation, and
// floors at zero; the categories then sum to the final 0-100 score.
func Score(issues []report.Issue) (total int, byCategory map[string]int) {
	deducted := make(map[report.Category]int)
	for _, issue := range issues {
		deducted[issue.Category] += weights[issue.Code]
	}

	byCategory = make(map[string]int, len(categoryMax))
	for cat, max := range categoryMax {
		score := max - deducted[cat]
		if score < 0 {
			score = 0
		}
		byCategory[string(cat)] = score
		total += score
	}
	return total, byCategory
}
