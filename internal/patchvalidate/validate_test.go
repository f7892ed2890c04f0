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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckYAMLFlagsTabIndentation(t *testing.T) {
	report := ValidateFile("config.yaml", "name: ci\njobs:\n\tbuild: {}\n")
	assert.False(t, report.Valid())
}

func TestCheckYAMLWorkflowRequiresNameOnTriggerAndJobs(t *testing.T) {
	report := ValidateFile(".github/workflows/ci.yml", "jobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo hi\n")
	assert.False(t, report.Valid())
	found := false
	for _, e := range report.Errors {
		if e.Message == "workflow is missing top-level name" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckYAMLWorkflowPassesWithCompleteShape(t *testing.T) {
	yaml := "name: ci\non: push\njobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - uses: actions/checkout@v4\n"
	report := ValidateFile(".github/workflows/ci.yml", yaml)
	assert.True(t, report.Valid())
}

func TestCheckJSONFlagsTrailingComma(t *testing.T) {
	report := ValidateFile("data.json", `{"a": 1,}`)
	assert.False(t, report.Valid())
}

func TestCheckJSONManifestRequiresNameAndVersion(t *testing.T) {
	report := ValidateFile("package.json", `{"description": "x"}`)
	assert.False(t, report.Valid())
}

func TestCheckJSOrTSFlagsUnbalancedBraces(t *testing.T) {
	report := ValidateFile("main.ts", "function f() {\n  return 1;\n")
	assert.False(t, report.Valid())
}

func TestCheckJSOrTSWarnsOnVarAndTypeEscape(t *testing.T) {
	report := ValidateFile("main.js", "var x = 1;\n// @ts-ignore\nconst y = z as any;\n")
	assert.NotEmpty(t, report.Warnings)
}

func TestCheckShellWarnsOnMissingShebang(t *testing.T) {
	report := ValidateFile("deploy.sh", "echo hello\n")
	assert.NotEmpty(t, report.Warnings)
}

func TestValidateAllOrdersByIssueCountDescending(t *testing.T) {
	report := ValidateAll(map[string]string{
		"clean.json": `{"name": "x", "version": "1.0.0"}`,
		"bad.json":   `{"a": 1,}`,
	})
	assert.Equal(t, "bad.json", report.Files[0].File)
}
