// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patchvalidate

import (
	"path/filepath"
	"strings"
)

// ValidateFile dispatches content to the checker for path's extension and
// returns its FileReport.
func ValidateFile(path, content string) FileReport {
	report := FileReport{File: path}

	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".yml" || ext == ".yaml":
		checkYAML(path, content, &report)
	case ext == ".json":
		checkJSON(path, content, &report)
	case ext == ".ts" || ext == ".tsx" || ext == ".js" || ext == ".jsx" || ext == ".mjs" || ext == ".cjs":
		checkJSOrTS(path, content, isTypeScript(ext), &report)
	case ext == ".py":
		checkPython(path, content, &report)
	case ext == ".sh" || ext == ".bash" || path == "" && strings.HasPrefix(content, "#!"):
		checkShell(path, content, &report)
	}

	return report
}

func isTypeScript(ext string) bool {
	return ext == ".ts" || ext == ".tsx"
}

// ValidateAll runs ValidateFile over every entry in files (path to
// proposed post-image content) and returns the files ordered by
// descending issue count.
func ValidateAll(files map[string]string) Report {
	report := Report{}
	for path, content := range files {
		report.Files = append(report.Files, ValidateFile(path, content))
	}
	sortByIssueCount(report.Files)
	return report
}

func addError(r *FileReport, line int, msg string) {
	r.Errors = append(r.Errors, Issue{File: r.File, Line: line, Message: msg})
}

func addWarning(r *FileReport, line int, msg string) {
	r.Warnings = append(r.Warnings, Issue{File: r.File, Line: line, Message: msg})
}

func addFix(r *FileReport, hint string) {
	r.Fixes = append(r.Fixes, hint)
}
