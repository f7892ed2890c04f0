// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diffengine computes, applies, and serializes unified diffs
// between two text blobs.
package diffengine

import "fmt"

// LineKind tags one line within a Hunk.
type LineKind string

const (
	LineContext LineKind = "context"
	LineAdd     LineKind = "add"
	LineRemove  LineKind = "remove"
)

// Line is one line of a Hunk's body.
type Line struct {
	Kind LineKind
	Text string
}

// Hunk is a contiguous change region, numbered against both file versions.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Header renders the `@@ -o,ol +n,nl @@` envelope line.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// countKind returns how many lines in the hunk carry kind.
func (h Hunk) countKind(kind LineKind) int {
	n := 0
	for _, l := range h.Lines {
		if l.Kind == kind {
			n++
		}
	}
	return n
}

// UnifiedPatch is a single-file diff: a filename and its ordered hunks.
type UnifiedPatch struct {
	Filename  string
	IsNew     bool
	IsDeleted bool
	Hunks     []Hunk
}
