// Package structural tests schema contract checks, the weighted scoring
// function, and report determinism.
package structural

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/report"
	"github.com/schoolboyqueue/spectrace/internal/section"
)

const validDesign = `# Design Doc

Status: IN_PROGRESS

## Overview

The overall design.

## Architecture

Layered modules.

## Requirements

- [x] p1 - ` + "`spd-app-req-login`" + ` (refs: ` + "`spd-app-goal-signups`" + `)
- [ ] p2 - ` + "`spd-app-req-logout`" + ` (refs: ` + "`spd-app-goal-signups`" + `)

## Integration

Consumed by the feature manifest.
`

func designArtifact(raw string) *artifact.Artifact {
	return &artifact.Artifact{
		Kind: artifact.KindDesign,
		Path: "design.md",
		Raw:  raw,
		Tree: section.Parse(raw),
	}
}

func TestValidate_CleanArtifactScoresFull(t *testing.T) {
	r := Validate(designArtifact(validDesign))

	assert.Equal(t, report.StatusPass, r.Status)
	assert.Empty(t, r.Issues)
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, map[string]int{
		"structure":    40,
		"completeness": 30,
		"clarity":      20,
		"integration":  10,
	}, r.CategoryScores)
}

func TestValidate_DuplicateIdentifier(t *testing.T) {
	raw := `# D

## Overview

x

## Architecture

x

## Requirements

- [x] p1 - ` + "`spd-app-fr-auth`" + ` (refs: ` + "`spd-app-goal-x`" + `)
- [x] p1 - ` + "`spd-app-fr-auth`" + ` (refs: ` + "`spd-app-goal-x`" + `)

## Integration

x
`
	r := Validate(designArtifact(raw))

	require.Equal(t, report.StatusFail, r.Status)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, CodeDuplicateIdentifier, r.Issues[0].Code)
	assert.Equal(t, 14, r.Issues[0].Location.Line)
	assert.Contains(t, r.Issues[0].Message, "spd-app-fr-auth")

	// The structure score is penalized even though all sections are complete.
	assert.Equal(t, 30, r.CategoryScores["structure"])
	assert.Equal(t, 90, r.Score)
}

func TestValidate_MissingSections(t *testing.T) {
	raw := "# D\n\n## Overview\n\ntext\n"
	r := Validate(designArtifact(raw))

	assert.Equal(t, report.StatusFail, r.Status)

	var missing, noBlocks int
	for _, issue := range r.Issues {
		switch issue.Code {
		case CodeMissingSection:
			missing++
		case CodeNoBlocks:
			noBlocks++
		}
	}
	assert.Equal(t, 3, missing, "Architecture, Requirements, Integration")
	assert.Equal(t, 1, noBlocks)
	assert.Equal(t, 0, r.CategoryScores["structure"], "3x10 + 10 deductions floor at zero")
}

func TestValidate_SectionOrder(t *testing.T) {
	raw := `# D

## Architecture

x

## Overview

x

## Requirements

- [x] p1 - ` + "`spd-app-req-a`" + ` (refs: ` + "`spd-app-goal-x`" + `)

## Integration

x
`
	r := Validate(designArtifact(raw))
	codes := issueCodes(r)
	assert.Contains(t, codes, CodeSectionOrder)
}

func TestValidate_PlaceholderAndEmptySection(t *testing.T) {
	raw := `# D

## Overview

TBD

## Architecture

## Requirements

- [x] p1 - ` + "`spd-app-req-a`" + ` (refs: ` + "`spd-app-goal-x`" + `)

## Integration

{{integration notes}}
`
	r := Validate(designArtifact(raw))
	codes := issueCodes(r)
	assert.Contains(t, codes, CodePlaceholder)
	assert.Contains(t, codes, CodeEmptySection)
	assert.Equal(t, 30-5-5-5, r.CategoryScores["completeness"])
}

func TestValidate_MalformedAndForeign(t *testing.T) {
	raw := `# D

## Overview

x

## Architecture

x

## Requirements

- [x] p1 - ` + "`Broken Identifier`" + `
- [x] p9 - ` + "`spd-app-chg-wrong-home`" + ` (refs: ` + "`spd-app-goal-x`" + `)

## Integration

x
`
	r := Validate(designArtifact(raw))
	codes := issueCodes(r)
	assert.Contains(t, codes, CodeMalformedIdentifier)
	assert.Contains(t, codes, CodeForeignIdentifier, "chg blocks do not belong in a design artifact")
	assert.Contains(t, codes, CodeBadPriority)
	assert.NotContains(t, codes, CodeMissingRefs, "malformed blocks are skipped before the refs check")
}

func TestValidate_PrematureReady(t *testing.T) {
	raw := "Status: READY\n\n# D\n\n## Overview\n\ntext\n"
	r := Validate(designArtifact(raw))
	codes := issueCodes(r)
	assert.Contains(t, codes, CodePrematureReady)
	assert.Equal(t, 0, r.CategoryScores["integration"])
}

func TestValidate_ReadyOnCleanArtifactIsFine(t *testing.T) {
	raw := strings.Replace(validDesign, "Status: IN_PROGRESS", "Status: READY", 1)
	r := Validate(designArtifact(raw))
	assert.Equal(t, report.StatusPass, r.Status)
	assert.Equal(t, 100, r.Score)
}

func TestValidate_Deterministic(t *testing.T) {
	raw := `# D

## Requirements

- [x] p1 - ` + "`spd-app-req-b`" + `
- [x] p1 - ` + "`spd-app-req-b`" + `

TODO finish
`
	a := designArtifact(raw)
	first := Validate(a)
	second := Validate(a)
	assert.Equal(t, first, second)

	j1, err := first.EncodeJSON()
	require.NoError(t, err)
	j2, err := second.EncodeJSON()
	require.NoError(t, err)
	assert.Equal(t, j1, j2)
}

func TestScore_FloorsAtZeroPerCategory(t *testing.T) {
	issues := make([]report.Issue, 0, 8)
	for i := 0; i < 8; i++ {
		issues = append(issues, report.Issue{Category: report.CategoryStructure, Code: CodeMissingSection})
	}
	total, byCat := Score(issues)
	assert.Equal(t, 0, byCat["structure"])
	assert.Equal(t, 60, total, "other categories stay intact")
}

func TestWeights_CoverEveryCode(t *testing.T) {
	codes := []string{
		CodeMissingSection, CodeSectionOrder, CodeDuplicateIdentifier,
		CodeMalformedIdentifier, CodeForeignIdentifier, CodeNoBlocks,
		CodePlaceholder, CodeEmptySection, CodeHeadingJump, CodeBadPriority,
		CodeMissingRefs, CodePrematureReady,
	}
	for _, code := range codes {
		assert.Positive(t, weights[code], "code %s must carry a weight", code)
	}
}

func issueCodes(r *report.Report) []string {
	codes := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		codes[i] = issue.Code
	}
	return codes
}

func TestValidate_PlaceholderInsideTildeFenceIgnored(t *testing.T) {
	raw := strings.Replace(validDesign, "The overall design.",
		"The overall design.\n\n~~~\nTODO inside a fence\n```\nTBD after a non-matching delimiter\n~~~", 1)
	r := Validate(designArtifact(raw))

	assert.NotContains(t, issueCodes(r), CodePlaceholder)
	assert.Equal(t, report.StatusPass, r.Status)
	assert.Equal(t, 100, r.Score)
}
