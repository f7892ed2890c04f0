// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prune

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linesOf(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "line " + strconv.Itoa(i)
	}
	return strings.Join(lines, "\n")
}

func TestPruneLeavesShortLogsUnchanged(t *testing.T) {
	input := linesOf(50)
	out := Prune(input, Options{Head: 100, Tail: 500})

	assert.Equal(t, input, out.Text)
	assert.Equal(t, 0, out.Omitted)
	require.Equal(t, out.TotalLines, out.KeptHead+out.KeptTail+out.Omitted)
}

func TestPruneTrimsOversizedLogs(t *testing.T) {
	input := linesOf(1000)
	out := Prune(input, Options{Head: 100, Tail: 500})

	assert.Equal(t, 1000, out.TotalLines)
	assert.Equal(t, 100, out.KeptHead)
	assert.Equal(t, 500, out.KeptTail)
	assert.Equal(t, 400, out.Omitted)
	require.Equal(t, out.TotalLines, out.KeptHead+out.KeptTail+out.Omitted)

	assert.True(t, strings.HasPrefix(out.Text, "line 0"))
	assert.True(t, strings.HasSuffix(out.Text, "line 999"))
	assert.Equal(t, 1, strings.Count(out.Text, "lines omitted"))
}

func TestPruneUsesDefaultsWhenUnset(t *testing.T) {
	out := Prune(linesOf(10), Options{})
	assert.Equal(t, 10, out.KeptHead)
	assert.Equal(t, 0, out.Omitted)
}
