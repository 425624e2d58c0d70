package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolboyqueue/spectrace/internal/cli/shared"
)

func decodeIDs(t *testing.T, out string) []idEntry {
	t.Helper()
	var entries []idEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries), "output should be a JSON listing: %s", out)
	return entries
}

func TestListIDs_OneArtifact(t *testing.T) {
	cfgPath := writeProject(t, fullDocs())

	out, err := execRoot(t, "list-ids", docsPath(cfgPath, "business-context.md"), "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	entries := decodeIDs(t, out)
	require.Len(t, entries, 3)
	// Sorted by identifier, with checked state preserved.
	assert.Equal(t, "spd-app-actor-member", entries[0].ID)
	assert.True(t, entries[0].Checked)
	assert.Equal(t, "spd-app-goal-retention", entries[1].ID)
	assert.False(t, entries[1].Checked)
}

func TestScanIDs_WholeWorkspace(t *testing.T) {
	docs := fullDocs()
	docs["features/auth/design.md"] = fixtureAuthDesign
	cfgPath := writeProject(t, docs)

	out, err := execRoot(t, "scan-ids", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	entries := decodeIDs(t, out)
	// 3 business context + 1 decision + 2 design + 1 manifest + 2 feature.
	assert.Len(t, entries, 9)
}

func TestScanIDs_FilterAndRegex(t *testing.T) {
	cfgPath := writeProject(t, fullDocs())

	out, err := execRoot(t, "scan-ids", "--filter", "goal", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	for _, e := range decodeIDs(t, out) {
		assert.Contains(t, e.ID, "goal")
	}

	out, err = execRoot(t, "scan-ids", "--regex", `req-[a-z]+$`, "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	entries := decodeIDs(t, out)
	require.Len(t, entries, 2)
	assert.Equal(t, "spd-app-req-login", entries[0].ID)
	assert.Equal(t, "spd-app-req-reports", entries[1].ID)
}

func TestScanIDs_InvalidRegex(t *testing.T) {
	cfgPath := writeProject(t, fullDocs())

	_, err := execRoot(t, "scan-ids", "--regex", "[bad", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsageError, shared.ExitCode(err))
}

func TestListIDs_RecordsPhases(t *testing.T) {
	docs := fullDocs()
	docs["features/auth/design.md"] = fixtureAuthDesign
	cfgPath := writeProject(t, docs)

	out, err := execRoot(t, "list-ids", docsPath(cfgPath, "features/auth/design.md"), "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	entries := decodeIDs(t, out)
	require.Len(t, entries, 2)
	assert.Equal(t, "spd-app-flow-login", entries[0].ID)
	assert.Equal(t, []int{1}, entries[0].Phases)
}
