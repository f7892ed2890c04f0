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

// ReversePatch swaps adds/removes and oldStart/newStart throughout patch,
// and swaps isNew/isDeleted, producing the inverse operation.
func ReversePatch(patch UnifiedPatch) UnifiedPatch {
	out := UnifiedPatch{
		Filename:  patch.Filename,
		IsNew:     patch.IsDeleted,
		IsDeleted: patch.IsNew,
		Hunks:     make([]Hunk, len(patch.Hunks)),
	}
	for i, h := range patch.Hunks {
		out.Hunks[i] = reverseHunk(h)
	}
	return out
}

func reverseHunk(h Hunk) Hunk {
	lines := make([]Line, len(h.Lines))
	for i, l := range h.Lines {
		switch l.Kind {
		case LineAdd:
			lines[i] = Line{Kind: LineRemove, Text: l.Text}
		case LineRemove:
			lines[i] = Line{Kind: LineAdd, Text: l.Text}
		default:
			lines[i] = l
		}
	}
	return Hunk{
		OldStart: h.NewStart,
		OldLines: h.NewLines,
		NewStart: h.OldStart,
		NewLines: h.OldLines,
		Lines:    lines,
	}
}
