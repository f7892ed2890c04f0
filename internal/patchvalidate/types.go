// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patchvalidate runs per-extension syntax/structural checks over
// a patch's proposed post-image content.
package patchvalidate

import "sort"

// Issue is one error or warning found in a file.
type Issue struct {
	File    string
	Line    int
	Message string
}

// FileReport is the validation outcome for a single file.
type FileReport struct {
	File     string
	Errors   []Issue
	Warnings []Issue
	Fixes    []string
}

// IssueCount is the total errors plus warnings for this file.
func (r FileReport) IssueCount() int {
	return len(r.Errors) + len(r.Warnings)
}

// Valid reports whether the file has no errors (warnings do not block).
func (r FileReport) Valid() bool {
	return len(r.Errors) == 0
}

// Report aggregates per-file results, ordered by descending issue count.
type Report struct {
	Files []FileReport
}

// Valid reports whether every file is free of errors.
func (r Report) Valid() bool {
	for _, f := range r.Files {
		if !f.Valid() {
			return false
		}
	}
	return true
}

func sortByIssueCount(files []FileReport) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].IssueCount() > files[j].IssueCount()
	})
}
