// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dryrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecd/forge-agent/internal/diffengine"
)

func writeTempFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestSimulateModifySucceedsWhenPatchApplies(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "main.go", "package main\nfunc main() {}\n")

	patch := diffengine.Compute("main.go", "package main\nfunc main() {}\n", "package main\nfunc main() { println(1) }\n", 1)
	plan := Simulate(context.Background(), dir, []diffengine.UnifiedPatch{patch}, DefaultOptions())

	assert.True(t, plan.Success)
	assert.Equal(t, ImpactLow, plan.Impact)
}

func TestSimulateCreateFailsWhenTargetAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "exists.txt", "hi\n")

	patch := diffengine.Compute("exists.txt", "", "hello\n", 1)
	plan := Simulate(context.Background(), dir, []diffengine.UnifiedPatch{patch}, Options{})

	assert.False(t, plan.Success)
	assert.Equal(t, StatusError, plan.Steps[0].Status)
}

func TestSimulateDeleteFailsWhenTargetAbsent(t *testing.T) {
	dir := t.TempDir()
	patch := diffengine.Compute("missing.txt", "content\n", "", 1)
	plan := Simulate(context.Background(), dir, []diffengine.UnifiedPatch{patch}, Options{})

	assert.False(t, plan.Success)
	assert.Equal(t, ActionDelete, plan.Steps[0].Action)
}

func TestSimulateDetectsConflictingPatchesOnSameTarget(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "shared.txt", "a\nb\nc\n")

	p1 := diffengine.Compute("shared.txt", "a\nb\nc\n", "a\nx\nc\n", 1)
	p2 := diffengine.Compute("shared.txt", "a\nb\nc\n", "", 1)

	plan := Simulate(context.Background(), dir, []diffengine.UnifiedPatch{p1, p2}, Options{DetectConflicts: true})

	foundConflict := false
	for _, s := range plan.Steps {
		if s.Action == ActionCheckConflicts && s.Status == StatusError {
			foundConflict = true
		}
	}
	assert.True(t, foundConflict)
}

func TestSimulateReturnsCancelledPlanOnContextCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	patch := diffengine.Compute("x.txt", "", "hi\n", 1)
	plan := Simulate(ctx, dir, []diffengine.UnifiedPatch{patch}, DefaultOptions())

	assert.True(t, plan.Cancelled)
	assert.False(t, plan.Success)
}
