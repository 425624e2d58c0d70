package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolboyqueue/spectrace/internal/cli/shared"
)

const fixtureAuthDesign = `# Auth Feature

## Overview

Authentication.

## Requirements

- [x] p1 - ` + "`spd-app-req-login-form`" + ` (refs: ` + "`spd-app-feat-auth`" + `)

## Flows

- [x] p1 - ` + "`spd-app-flow-login`" + ` (refs: ` + "`spd-app-req-login`" + `)
  - [x] ph-1
    - [x] inst-setup

## Integration

Links into the manifest.
`

func decodeEntries(t *testing.T, out string) []locEntry {
	t.Helper()
	var entries []locEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries), "output should be a JSON listing: %s", out)
	return entries
}

func TestWhereDefined_SingleMatch(t *testing.T) {
	docs := fullDocs()
	docs["features/auth/design.md"] = fixtureAuthDesign
	cfgPath := writeProject(t, docs)

	out, err := execRoot(t, "where-defined", "spd-app-flow-login", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	entries := decodeEntries(t, out)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].File, "features/auth/design.md")
	assert.Equal(t, "Auth Feature > Flows", entries[0].Section)
}

func TestWhereDefined_QualifiedIdentifier(t *testing.T) {
	docs := fullDocs()
	docs["features/auth/design.md"] = fixtureAuthDesign
	cfgPath := writeProject(t, docs)

	_, err := execRoot(t, "where-defined", "spd-app-flow-login:ph-1:inst-setup", "--config", cfgPath, "--format", "json")
	assert.NoError(t, err)

	// A phase the definition never declares is not found.
	_, err = execRoot(t, "where-defined", "spd-app-flow-login:ph-9", "--config", cfgPath, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsageError, shared.ExitCode(err))
}

func TestWhereDefined_AmbiguousExitsTwo(t *testing.T) {
	docs := fullDocs()
	docs["features/auth/design.md"] = fixtureAuthDesign
	docs["features/sso/design.md"] = fixtureAuthDesign
	cfgPath := writeProject(t, docs)

	out, err := execRoot(t, "where-defined", "spd-app-flow-login", "--config", cfgPath, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, shared.ExitValidationFailed, shared.ExitCode(err))

	// Every candidate location is listed.
	entries := decodeEntries(t, out)
	assert.Len(t, entries, 2)
}

func TestWhereDefined_NotFound(t *testing.T) {
	cfgPath := writeProject(t, fullDocs())

	_, err := execRoot(t, "where-defined", "spd-app-req-missing", "--config", cfgPath, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsageError, shared.ExitCode(err))
}

func TestWhereDefined_UnparseableIdentifier(t *testing.T) {
	cfgPath := writeProject(t, fullDocs())

	_, err := execRoot(t, "where-defined", "Not-An-ID", "--config", cfgPath, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsageError, shared.ExitCode(err))
}

func TestWhereUsed_ListsReferences(t *testing.T) {
	docs := fullDocs()
	docs["features/auth/design.md"] = fixtureAuthDesign
	cfgPath := writeProject(t, docs)

	out, err := execRoot(t, "where-used", "spd-app-req-login", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	// Referenced from the manifest's feature entry and the auth flow.
	entries := decodeEntries(t, out)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "spd-app-req-login", e.ID)
	}
}

func TestWhereUsed_NoReferences(t *testing.T) {
	cfgPath := writeProject(t, fullDocs())

	out, err := execRoot(t, "where-used", "spd-app-req-reports", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	assert.Empty(t, decodeEntries(t, out))
}

func TestCheckReplacement_ValidBumpListsReferences(t *testing.T) {
	docs := fullDocs()
	docs["features/auth/design.md"] = fixtureAuthDesign
	cfgPath := writeProject(t, docs)

	out, err := execRoot(t, "check-replacement", "spd-app-req-login", "spd-app-req-login-v1", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	// Every reference to the old identifier is listed for the rename.
	entries := decodeEntries(t, out)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "spd-app-req-login", e.ID)
	}
}

func TestCheckReplacement_WrongVersionExitsTwo(t *testing.T) {
	cfgPath := writeProject(t, fullDocs())

	_, err := execRoot(t, "check-replacement", "spd-app-req-login", "spd-app-req-login-v3", "--config", cfgPath, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, shared.ExitValidationFailed, shared.ExitCode(err))
	assert.Contains(t, err.Error(), "must be version 1")
}

func TestCheckReplacement_DifferentItemExitsTwo(t *testing.T) {
	cfgPath := writeProject(t, fullDocs())

	_, err := execRoot(t, "check-replacement", "spd-app-req-login", "spd-app-req-logout-v1", "--config", cfgPath, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, shared.ExitValidationFailed, shared.ExitCode(err))
}

func TestCheckReplacement_UnparseableIdentifier(t *testing.T) {
	cfgPath := writeProject(t, fullDocs())

	_, err := execRoot(t, "check-replacement", "Not-An-ID", "spd-app-req-login-v1", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsageError, shared.ExitCode(err))
}
