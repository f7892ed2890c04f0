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
	"encoding/json"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var trailingComma = regexp.MustCompile(`,\s*[}\]]`)

func checkYAML(path, content string, report *FileReport) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		addError(report, 0, "invalid YAML: "+err.Error())
		return
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.Contains(line, "\t") {
			addError(report, i+1, "tab indentation is not allowed")
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))
		if indent%2 != 0 {
			addWarning(report, i+1, "indentation is not a multiple of 2 spaces")
		}
		if unmatchedQuotes(line) {
			addError(report, i+1, "unmatched quote")
		}
	}

	if isWorkflowPath(path) {
		checkWorkflowSchema(doc, report)
	}
}

func unmatchedQuotes(line string) bool {
	if idx := strings.Index(line, "#"); idx >= 0 {
		line = line[:idx]
	}
	return strings.Count(line, "\"")%2 != 0 || strings.Count(line, "'")%2 != 0
}

func isWorkflowPath(path string) bool {
	return strings.Contains(path, ".github/workflows/")
}

func checkWorkflowSchema(doc map[string]any, report *FileReport) {
	if _, ok := doc["name"]; !ok {
		addError(report, 0, "workflow is missing top-level name")
	}
	if _, ok := doc["on"]; !ok {
		addError(report, 0, "workflow is missing a trigger clause (on:)")
	}

	jobs, ok := doc["jobs"].(map[string]any)
	if !ok {
		addError(report, 0, "workflow is missing a jobs mapping")
		return
	}
	for name, raw := range jobs {
		job, ok := raw.(map[string]any)
		if !ok {
			addError(report, 0, "job "+name+" is not a mapping")
			continue
		}
		if _, ok := job["runs-on"]; !ok {
			addError(report, 0, "job "+name+" is missing a runner declaration (runs-on)")
		}
		steps, ok := job["steps"].([]any)
		if !ok || len(steps) == 0 {
			addError(report, 0, "job "+name+" has no steps")
			continue
		}
		for _, raw := range steps {
			step, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			_, hasUses := step["uses"]
			_, hasRun := step["run"]
			if !hasUses && !hasRun {
				addError(report, 0, "a step in job "+name+" has neither an action reference nor a run command")
			}
		}
	}
}

func checkJSON(path, content string, report *FileReport) {
	if trailingComma.MatchString(content) {
		addError(report, 0, "trailing comma in JSON")
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		addError(report, 0, "invalid JSON: "+err.Error())
		return
	}

	if isManifestPath(path) {
		if _, ok := doc["name"]; !ok {
			addError(report, 0, "package manifest is missing name")
		}
		if _, ok := doc["version"]; !ok {
			addError(report, 0, "package manifest is missing version")
		}
	}
}

func isManifestPath(path string) bool {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	return base == "package.json" || base == "composer.json"
}
