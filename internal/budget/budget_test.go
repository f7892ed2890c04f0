// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package budget

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBudgetPassesForSmallPrompt(t *testing.T) {
	res := CheckBudget("llama3", "be terse", "fix this bug", "")
	assert.True(t, res.Pass)
	assert.Greater(t, res.BudgetCeiling, 0)
}

func TestCheckBudgetFailsWhenContextExceedsCap(t *testing.T) {
	hugeContext := strings.Repeat("word ", 50000)
	res := CheckBudget("llama3", "sys", "user", hugeContext)
	assert.False(t, res.Pass)
}

func TestTruncateToFitShrinksBelowCap(t *testing.T) {
	lines := make([]string, 2000)
	for i := range lines {
		lines[i] = "log line number " + strconv.Itoa(i)
	}
	text := strings.Join(lines, "\n")

	out := TruncateToFit(text, 200, StrategyEnd)
	require.LessOrEqual(t, EstimateTokens(out), 200+50) // heuristic, allow slack
}

func TestTruncateToFitReturnsUnchangedWhenAlreadyWithinCap(t *testing.T) {
	text := "short text"
	out := TruncateToFit(text, 1000, StrategyEnd)
	assert.Equal(t, text, out)
}

func TestOptimizeLogSnippetKeepsHeadAndTail(t *testing.T) {
	lines := make([]string, 500)
	for i := range lines {
		lines[i] = "line " + strconv.Itoa(i)
	}
	text := strings.Join(lines, "\n")
	out := OptimizeLogSnippet(text, 300)
	assert.Contains(t, out, "line 0")
	assert.Contains(t, out, "line 499")
}

func TestCapForFallsBackToDefaultForUnknownModel(t *testing.T) {
	assert.Equal(t, defaultCap, CapFor("some-unlisted-model"))
}
