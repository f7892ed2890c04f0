// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecd/forge-agent/internal/apply"
	"github.com/forgecd/forge-agent/internal/audit"
	"github.com/forgecd/forge-agent/internal/config"
	"github.com/forgecd/forge-agent/internal/forgeerr"
	"github.com/forgecd/forge-agent/internal/llmclient"
)

const (
	npmAuthLog = "npm ERR! code E403\nnpm ERR! 403 Forbidden - GET https://registry.npmjs.org/private-pkg\n"

	logAnalystJSON = `{"failureType":"auth","severity":"high","summary":"npm registry rejected the install",
"rootCauseLines":["npm ERR! code E403"],"contextLines":[],"suggestedSearchTerms":["npm 403"]}`

	workflowExpertJSON = `{"issueType":"env-vars","recommendation":"add NPM_TOKEN to the workflow env",
"yamlChanges":[{"path":".github/workflows/ci.yml","oldValue":"","newValue":"NPM_TOKEN: ${{ secrets.NPM_TOKEN }}","reason":"missing registry auth"}],
"riskLevel":"low"}`

	codeReviewerJSON = `{"issuesFound":[],"overallScore":90,"blockers":[]}`

	fixGeneratorJSON = `{"confidence":0.88,"fixFile":"main.go","fixStartLine":1,
"fixContent":"package main // patched","explanation":"adds the missing registry token","testSuggestion":"npm ci",
"rollbackSteps":"revert the commit"}`

	fixGeneratorEmptyFileJSON = `{"confidence":0.4,"fixFile":"","fixStartLine":1,
"fixContent":"x","explanation":"no target identified"}`
)

func newTestJournal(t *testing.T) *audit.Journal {
	t.Helper()
	j, err := audit.OpenInMemory(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func newTestDriver(t *testing.T, responses ...string) (*Driver, *llmclient.FakeClient) {
	t.Helper()
	fake := llmclient.NewFakeClient(responses...)
	d := New(config.Default(), fake, newTestJournal(t), nil)
	return d, fake
}

func TestRunSucceedsThroughGateDecision(t *testing.T) {
	d, _ := newTestDriver(t, logAnalystJSON, workflowExpertJSON, codeReviewerJSON, fixGeneratorJSON)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0644))

	result, err := d.Run(context.Background(), Input{
		RawLog: npmAuthLog,
		Root:   root,
	}, Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Partial)
	require.NotNil(t, result.Analysis)
	assert.Equal(t, "auth", string(result.Analysis.Primary.Type))
	require.NotNil(t, result.Summary)
	require.Len(t, result.Patches, 1)
	assert.Equal(t, "main.go", result.Patches[0].Filename)
	require.NotNil(t, result.Decision)
	assert.Nil(t, result.Plan)
	assert.Nil(t, result.Application)
}

func TestRunAbortsWithNoFailureDetectedOnUnmatchedLog(t *testing.T) {
	d, fake := newTestDriver(t)

	result, err := d.Run(context.Background(), Input{RawLog: "everything is fine, build succeeded\n"}, Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Partial)
	assert.ErrorIs(t, result.FailureKind, forgeerr.ErrNoFailureDetected)
	assert.Nil(t, result.Analysis)
	assert.Empty(t, fake.Calls())
}

func TestRunAbortsOnEmptyLog(t *testing.T) {
	d, _ := newTestDriver(t)

	result, err := d.Run(context.Background(), Input{RawLog: "   "}, Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Partial)
	assert.ErrorIs(t, result.FailureKind, forgeerr.ErrInputInvalid)
}

func TestRunSurfacesPartialResultWhenAgentRoleFails(t *testing.T) {
	// The log analyst never returns parseable JSON, so every retry attempt
	// is exhausted and the orchestrator itself returns an error with no
	// roles completed.
	d, _ := newTestDriver(t, "not json at all")

	result, err := d.Run(context.Background(), Input{RawLog: npmAuthLog}, Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Partial)
	assert.NotNil(t, result.FailureKind)
	require.NotNil(t, result.Analysis)
}

func TestRunSurfacesPartialResultWhenFixGeneratorYieldsNoTarget(t *testing.T) {
	d, _ := newTestDriver(t, logAnalystJSON, workflowExpertJSON, codeReviewerJSON, fixGeneratorEmptyFileJSON)

	result, err := d.Run(context.Background(), Input{RawLog: npmAuthLog}, Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	require.NotNil(t, result.Summary)
	assert.True(t, result.Partial)
	assert.Empty(t, result.Patches)
	assert.Nil(t, result.Decision)
}

func TestRunDryRunOnlyPopulatesPlanWithoutApplying(t *testing.T) {
	d, _ := newTestDriver(t, logAnalystJSON, workflowExpertJSON, codeReviewerJSON, fixGeneratorJSON)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0644))

	result, err := d.Run(context.Background(), Input{RawLog: npmAuthLog, Root: root}, Options{DryRun: true})
	require.NoError(t, err)

	require.NotNil(t, result.Plan)
	assert.Nil(t, result.Application)
}

func TestRunDryRunRequiresRoot(t *testing.T) {
	d, _ := newTestDriver(t, logAnalystJSON, workflowExpertJSON, codeReviewerJSON, fixGeneratorJSON)

	result, err := d.Run(context.Background(), Input{RawLog: npmAuthLog}, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.Partial)
	assert.ErrorIs(t, result.FailureKind, forgeerr.ErrInputInvalid)
}

func TestRunApplyWritesPatchAndRecordsApplication(t *testing.T) {
	d, _ := newTestDriver(t, logAnalystJSON, workflowExpertJSON, codeReviewerJSON, fixGeneratorJSON)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0644))

	result, err := d.Run(context.Background(), Input{RawLog: npmAuthLog, Root: root}, Options{
		DryRun:       true,
		Apply:        true,
		ApplyOptions: apply.Options{AutoApply: true, PreflightDryRun: true},
	})
	require.NoError(t, err)
	require.False(t, result.Partial)
	require.NotNil(t, result.Application)

	content, err := os.ReadFile(filepath.Join(root, "main.go"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "patched")
}

func TestRollbackReversesAnAppliedChange(t *testing.T) {
	d, _ := newTestDriver(t, logAnalystJSON, workflowExpertJSON, codeReviewerJSON, fixGeneratorJSON)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0644))

	result, err := d.Run(context.Background(), Input{RawLog: npmAuthLog, Root: root}, Options{
		Apply:        true,
		ApplyOptions: apply.Options{AutoApply: true, PreflightDryRun: true},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Application)

	rollback, err := d.Rollback(context.Background(), root, result.Application.ID)
	require.NoError(t, err)
	require.NotNil(t, rollback)
	assert.Empty(t, rollback.Errors)

	content, err := os.ReadFile(filepath.Join(root, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(content))
}
