// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diffengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAndApplyRoundTripsOnSingleLineChange(t *testing.T) {
	original := "package main\n\nfunc main() {\n\tfoo()\n}\n"
	updated := "package main\n\nfunc main() {\n\tbar()\n}\n"

	patch := Compute("main.go", original, updated, 1)
	require.NotEmpty(t, patch.Hunks)

	applied, err := ApplyPatch(original, patch)
	require.NoError(t, err)
	assert.Equal(t, updated, applied)
}

func TestComputeNewFileShortCircuitsToSingleAddHunk(t *testing.T) {
	patch := Compute("new.go", "", "package main\n", 3)
	assert.True(t, patch.IsNew)
	require.Len(t, patch.Hunks, 1)
	assert.Equal(t, 0, patch.Hunks[0].OldLines)
}

func TestComputeDeletedFileShortCircuitsToSingleRemoveHunk(t *testing.T) {
	patch := Compute("gone.go", "package main\n", "", 3)
	assert.True(t, patch.IsDeleted)
	require.Len(t, patch.Hunks, 1)
	assert.Equal(t, 0, patch.Hunks[0].NewLines)
}

func TestReversePatchSwapsAddsAndRemoves(t *testing.T) {
	original := "a\nb\nc\n"
	updated := "a\nx\nc\n"
	patch := Compute("f.txt", original, updated, 1)

	reversed := ReversePatch(patch)
	restored, err := ApplyPatch(updated, reversed)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestSerializeAndParseRoundTripEnvelope(t *testing.T) {
	patch := Compute("f.txt", "a\nb\nc\n", "a\nx\nc\n", 1)

	text, err := Serialize(patch)
	require.NoError(t, err)
	assert.Contains(t, text, "--- a/f.txt")
	assert.Contains(t, text, "+++ b/f.txt")

	parsed, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, parsed.Hunks, 1)
	assert.Equal(t, patch.Hunks[0].OldStart, parsed.Hunks[0].OldStart)
}

func TestSerializeUsesDevNullForNewFile(t *testing.T) {
	patch := Compute("new.txt", "", "hello\n", 3)
	text, err := Serialize(patch)
	require.NoError(t, err)
	assert.Contains(t, text, "--- /dev/null")
}
