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

	godiff "github.com/sourcegraph/go-diff/diff"
)

// Serialize renders patch as unified-diff text, with the standard
// `--- a/…` / `+++ b/…` envelope and `/dev/null` on the absent side for
// create/delete. Hunk bodies round-trip through go-diff's own printer
// rather than hand-formatted strings.
func Serialize(patch UnifiedPatch) (string, error) {
	fd := &godiff.FileDiff{
		OrigName: envelopeName("a/", patch.Filename, patch.IsNew),
		NewName:  envelopeName("b/", patch.Filename, patch.IsDeleted),
	}

	for _, h := range patch.Hunks {
		fd.Hunks = append(fd.Hunks, &godiff.Hunk{
			OrigStartLine: int32(h.OldStart),
			OrigLines:     int32(h.OldLines),
			NewStartLine:  int32(h.NewStart),
			NewLines:      int32(h.NewLines),
			Body:          []byte(hunkBody(h)),
		})
	}

	out, err := godiff.PrintFileDiff(fd)
	if err != nil {
		return "", fmt.Errorf("diffengine: print file diff: %w", err)
	}
	return string(out), nil
}

func envelopeName(prefix, filename string, absent bool) string {
	if absent {
		return "/dev/null"
	}
	return prefix + filename
}

func hunkBody(h Hunk) string {
	var b strings.Builder
	for _, l := range h.Lines {
		switch l.Kind {
		case LineAdd:
			b.WriteString("+")
		case LineRemove:
			b.WriteString("-")
		default:
			b.WriteString(" ")
		}
		b.WriteString(l.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Parse reads the first file diff in text and converts it into a
// UnifiedPatch, routing the envelope/hunk split through go-diff's reader.
func Parse(text string) (UnifiedPatch, error) {
	fds, err := godiff.NewMultiFileDiffReader(strings.NewReader(text)).ReadAllFiles()
	if err != nil {
		return UnifiedPatch{}, fmt.Errorf("diffengine: parse diff: %w", err)
	}
	if len(fds) == 0 {
		return UnifiedPatch{}, fmt.Errorf("diffengine: no file diffs found")
	}
	return fromFileDiff(fds[0]), nil
}

func fromFileDiff(fd *godiff.FileDiff) UnifiedPatch {
	patch := UnifiedPatch{
		Filename:  resolveFilename(fd),
		IsNew:     fd.OrigName == "/dev/null",
		IsDeleted: fd.NewName == "/dev/null",
	}
	for _, h := range fd.Hunks {
		patch.Hunks = append(patch.Hunks, Hunk{
			OldStart: int(h.OrigStartLine),
			OldLines: int(h.OrigLines),
			NewStart: int(h.NewStartLine),
			NewLines: int(h.NewLines),
			Lines:    parseHunkBody(string(h.Body)),
		})
	}
	return patch
}

func resolveFilename(fd *godiff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}

func parseHunkBody(body string) []Line {
	var lines []Line
	for _, raw := range strings.Split(strings.TrimSuffix(body, "\n"), "\n") {
		if raw == "" {
			continue
		}
		switch raw[0] {
		case '+':
			lines = append(lines, Line{Kind: LineAdd, Text: raw[1:]})
		case '-':
			lines = append(lines, Line{Kind: LineRemove, Text: raw[1:]})
		default:
			lines = append(lines, Line{Kind: LineContext, Text: strings.TrimPrefix(raw, " ")})
		}
	}
	return lines
}
