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
	"fmt"
	"strings"
)

// ApplyPatch applies patch to original, producing the new text. Hunks are
// applied in descending newStart order so earlier offsets in the
// not-yet-processed hunks stay valid; at each hunk position it removes
// oldLines-worth of text and inserts the hunk's add lines.
func ApplyPatch(original string, patch UnifiedPatch) (string, error) {
	if patch.IsDeleted {
		return "", nil
	}
	if patch.IsNew {
		return wholeFileAddText(patch), nil
	}

	lines := splitLines(original)
	hunks := make([]Hunk, len(patch.Hunks))
	copy(hunks, patch.Hunks)
	sortHunksDescending(hunks)

	for _, h := range hunks {
		startIdx := h.OldStart - 1
		if startIdx < 0 || startIdx > len(lines) {
			return "", fmt.Errorf("diffengine: hunk old start %d out of range for %d lines", h.OldStart, len(lines))
		}
		endIdx := startIdx + h.OldLines
		if endIdx > len(lines) {
			return "", fmt.Errorf("diffengine: hunk %s exceeds file length", h.Header())
		}

		var replacement []string
		for _, l := range h.Lines {
			if l.Kind == LineContext || l.Kind == LineAdd {
				replacement = append(replacement, l.Text)
			}
		}

		out := make([]string, 0, len(lines)-h.OldLines+len(replacement))
		out = append(out, lines[:startIdx]...)
		out = append(out, replacement...)
		out = append(out, lines[endIdx:]...)
		lines = out
	}

	return strings.Join(lines, "\n"), nil
}

func wholeFileAddText(patch UnifiedPatch) string {
	var lines []string
	for _, h := range patch.Hunks {
		for _, l := range h.Lines {
			if l.Kind == LineAdd {
				lines = append(lines, l.Text)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func sortHunksDescending(hunks []Hunk) {
	for i := 1; i < len(hunks); i++ {
		for k := i; k > 0 && hunks[k-1].NewStart < hunks[k].NewStart; k-- {
			hunks[k-1], hunks[k] = hunks[k], hunks[k-1]
		}
	}
}
