// Package scanner tests comment-aware tag extraction, the language table,
// exclusion regions, size limits, and requirement matching.
package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolboyqueue/spectrace/internal/artifact"
	"github.com/schoolboyqueue/spectrace/internal/ident"
	"github.com/schoolboyqueue/spectrace/internal/report"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestScanTree_InlineTags(t *testing.T) {
	root := writeTree(t, map[string]string{
		"auth/login.go": `package auth

// @spd-req:spd-app-req-login:ph-1
func Login() {}

var route = "@spd-req:spd-app-req-fake:ph-1" // identifier-shaped string outside a comment
`,
		"notes.txt": "@spd-req:spd-app-req-login:ph-1 unconfigured extension, skipped",
	})

	res, err := New().ScanTree(root)
	require.NoError(t, err)

	require.Len(t, res.Tags, 1)
	assert.Equal(t, "spd-app-req-login:ph-1", res.Tags[0].ID.String())
	assert.Equal(t, 3, res.Tags[0].Line)
	assert.Equal(t, "auth/login.go", res.Tags[0].File)
	assert.Equal(t, 1, res.FilesScanned)
}

func TestScanTree_StringLiteralWithoutCommentIsIgnored(t *testing.T) {
	root := writeTree(t, map[string]string{
		"x.go": "package x\n\nvar s = \"@spd-req:spd-app-req-login:ph-1\"\n",
	})
	res, err := New().ScanTree(root)
	require.NoError(t, err)
	assert.Empty(t, res.Tags)
}

func TestScanTree_BlockCommentsAndContinuation(t *testing.T) {
	root := writeTree(t, map[string]string{
		"svc.java": `/*
 * @spd-flow:spd-app-flow-login:ph-2
 */
class Svc {}
`,
		"job.py": `"""
@spd-req:spd-app-req-reports:ph-1
"""
def job(): pass
`,
	})

	res, err := New().ScanTree(root)
	require.NoError(t, err)
	require.Len(t, res.Tags, 2)
	assert.Equal(t, "spd-app-req-reports:ph-1", res.Tags[0].ID.String())
	assert.Equal(t, "spd-app-flow-login:ph-2", res.Tags[1].ID.String())
}

func TestScanTree_PairedTags(t *testing.T) {
	root := writeTree(t, map[string]string{
		"flow.go": `package flow

// @spd-flow-begin:spd-app-flow-login:ph-1
func step1() {}
func step2() {}
// @spd-flow-end:spd-app-flow-login:ph-1

// @spd-flow-begin:spd-app-flow-never-closed:ph-1
func step3() {}
`,
		"bad.go": `package flow

// @spd-flow-end:spd-app-flow-orphan:ph-1
`,
	})

	res, err := New().ScanTree(root)
	require.NoError(t, err)

	require.Len(t, res.Tags, 2)
	assert.Equal(t, "begin", res.Tags[0].Style)

	require.Len(t, res.Malformed, 2)
	assert.Contains(t, res.Malformed[0].Note, "without matching begin")
	assert.Contains(t, res.Malformed[1].Note, "never closed")
}

func TestScanTree_ExclusionRegion(t *testing.T) {
	root := writeTree(t, map[string]string{
		"gen.go": `package gen

// @trace-exclude-begin
// @spd-req:spd-app-req-generated:ph-1
// @trace-exclude-end

// @spd-req:spd-app-req-real:ph-1
`,
	})

	res, err := New().ScanTree(root)
	require.NoError(t, err)
	require.Len(t, res.Tags, 1)
	assert.Equal(t, "spd-app-req-real:ph-1", res.Tags[0].ID.String())
}

func TestScanTree_MalformedTags(t *testing.T) {
	root := writeTree(t, map[string]string{
		"m.go": `package m

// @spd-req:not-a-valid
// @spd-flow:spd-app-req-login:ph-1
`,
	})

	res, err := New().ScanTree(root)
	require.NoError(t, err)
	assert.Empty(t, res.Tags)
	require.Len(t, res.Malformed, 2)
	assert.Contains(t, res.Malformed[0].Note, "unparseable")
	assert.Contains(t, res.Malformed[1].Note, "does not match identifier kind")
}

func TestScanTree_OversizedFileSkipped(t *testing.T) {
	root := writeTree(t, map[string]string{
		"big.go":   "// @spd-req:spd-app-req-login:ph-1\n" + strings.Repeat("x", 2048),
		"small.go": "// @spd-req:spd-app-req-login:ph-1\n",
	})

	s := New()
	s.MaxFileBytes = 1024
	res, err := s.ScanTree(root)
	require.NoError(t, err)

	assert.Equal(t, 1, res.FilesScanned)
	assert.Equal(t, 1, res.FilesSkipped)
	require.Len(t, res.Tags, 1)
	assert.Equal(t, "small.go", res.Tags[0].File)
}

func TestScanTree_UnreadableFileCountedOnce(t *testing.T) {
	root := writeTree(t, map[string]string{
		"locked.go": "// @spd-req:spd-app-req-login:ph-1\n",
		"open.go":   "// @spd-req:spd-app-req-login:ph-1\n",
	})
	locked := filepath.Join(root, "locked.go")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })
	if _, err := os.ReadFile(locked); err == nil {
		t.Skip("mode 000 file is still readable (running as root)")
	}

	res, err := New().ScanTree(root)
	require.NoError(t, err)

	// A file that fails to read is skipped, not skipped and scanned.
	assert.Equal(t, 1, res.FilesScanned)
	assert.Equal(t, 1, res.FilesSkipped)
	require.Len(t, res.Tags, 1)
	assert.Equal(t, "open.go", res.Tags[0].File)
}

func TestScanTree_ExcludedDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"vendor/dep.go": "// @spd-req:spd-app-req-login:ph-1\n",
		"app.go":        "// @spd-req:spd-app-req-login:ph-1\n",
	})
	res, err := New().ScanTree(root)
	require.NoError(t, err)
	require.Len(t, res.Tags, 1)
	assert.Equal(t, "app.go", res.Tags[0].File)
}

func featureWorkspace(t *testing.T, designBody string) *artifact.Workspace {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "features", "auth", "design.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(designBody), 0o644))
	ws, err := artifact.LoadWorkspace(root)
	require.NoError(t, err)
	return ws
}

func TestRequiredFrom_PriorityBecomesPhase(t *testing.T) {
	ws := featureWorkspace(t, "# F\n\n## Requirements\n\n- [x] p1 - `spd-app-req-login`\n- [ ] p1 - `spd-app-req-logout`\n")
	reqs := RequiredFrom(ws)
	require.Len(t, reqs, 1, "unchecked items require nothing")
	assert.Equal(t, "spd-app-req-login:ph-1", reqs[0].ID.String())
}

func TestRequiredFrom_PhasesAndInstructions(t *testing.T) {
	ws := featureWorkspace(t, `# F

## Flows

- [x] p1 - `+"`spd-app-flow-login`"+`
  - [x] ph-1
    - [x] inst-setup
    - [ ] inst-wire-db
  - [ ] ph-2
`)
	reqs := RequiredFrom(ws)
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID.String()
	}
	assert.Equal(t, []string{
		"spd-app-flow-login:ph-1",
		"spd-app-flow-login:ph-1:inst-setup",
	}, ids)
}

func TestMatch_MissingScenario(t *testing.T) {
	// One checked item, no corresponding tag anywhere in the scanned tree:
	// exactly one missing entry naming that requirement.
	ws := featureWorkspace(t, "# F\n\n## Requirements\n\n- [x] p1 - `spd-app-req-login`\n")
	reqs := RequiredFrom(ws)

	tr := Match(reqs, &Result{})
	assert.Equal(t, report.StatusFail, tr.Status)
	require.Len(t, tr.Missing, 1)
	assert.Equal(t, "spd-app-req-login:ph-1", tr.Missing[0].ID)
	assert.Empty(t, tr.Extra)
	assert.Empty(t, tr.Malformed)
}

func TestMatch_ExtraAndPartialMatch(t *testing.T) {
	ws := featureWorkspace(t, "# F\n\n## Requirements\n\n- [x] p1 - `spd-app-req-login`\n")
	reqs := RequiredFrom(ws)

	res := &Result{Tags: []Tag{
		{ID: ident.MustParse("spd-app-req-login:ph-1"), File: "a.go", Line: 1},
		// Base matches a checked item but the phase does not: malformed, the
		// conservative treatment of partial qualifier matches.
		{ID: ident.MustParse("spd-app-req-login:ph-2"), File: "a.go", Line: 9},
		// No checked item at all: extra.
		{ID: ident.MustParse("spd-app-req-billing:ph-1"), File: "b.go", Line: 3},
	}}

	tr := Match(reqs, res)
	assert.Empty(t, tr.Missing)
	require.Len(t, tr.Extra, 1)
	assert.Equal(t, "spd-app-req-billing:ph-1", tr.Extra[0].ID)
	require.Len(t, tr.Malformed, 1)
	assert.Equal(t, "spd-app-req-login:ph-2", tr.Malformed[0].ID)
	assert.Equal(t, report.StatusFail, tr.Status, "malformed gates the check")
}

func TestMatch_CleanPass(t *testing.T) {
	ws := featureWorkspace(t, "# F\n\n## Requirements\n\n- [x] p1 - `spd-app-req-login`\n")
	reqs := RequiredFrom(ws)

	res := &Result{Tags: []Tag{
		{ID: ident.MustParse("spd-app-req-login:ph-1"), File: "a.go", Line: 1},
	}, FilesScanned: 1}

	tr := Match(reqs, res)
	assert.Equal(t, report.StatusPass, tr.Status)
	assert.Equal(t, 1, tr.FilesScanned)
}

func TestCommentPortion(t *testing.T) {
	goLang := DefaultLanguages()["go"]
	tests := map[string]struct {
		line        string
		inBlock     bool
		wantText    string
		wantInBlock bool
	}{
		"plain code":       {line: "x := 1", wantText: ""},
		"line comment":     {line: "x := 1 // tail", wantText: " tail"},
		"block open":       {line: "/* begin", wantText: " begin", wantInBlock: true},
		"block continue":   {line: " * body", inBlock: true, wantText: " body", wantInBlock: true},
		"block close":      {line: " end */ x := 1", inBlock: true, wantText: "end", wantInBlock: false},
		"single line blk":  {line: "/* all */", wantText: " all "},
		"line before blk":  {line: "// see /* not a block", wantText: " see /* not a block"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, inBlock := commentPortion(tt.line, goLang, tt.inBlock)
			assert.Equal(t, tt.wantText, got)
			assert.Equal(t, tt.wantInBlock, inBlock)
		})
	}
}
