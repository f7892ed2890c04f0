// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecd/forge-agent/internal/llmclient"
	"github.com/forgecd/forge-agent/internal/retry"
)

const logAnalystJSON = `{"failureType":"build","severity":"high","summary":"compile error in main.go",
"rootCauseLines":["main.go:12: undefined: foo"],"contextLines":[],"suggestedSearchTerms":["undefined foo"]}`

const workflowExpertJSON = `{"issueType":"env-vars","recommendation":"add missing FOO env var to the build step",
"yamlChanges":[{"path":".github/workflows/ci.yml","oldValue":"","newValue":"FOO: bar","reason":"missing env var"}],
"riskLevel":"low"}`

const codeReviewerJSON = `{"issuesFound":[{"type":"logic","severity":"minor","file":"main.go","line":12,
"message":"undefined identifier","suggestion":"declare foo"}],"overallScore":70,"blockers":[]}`

const fixGeneratorJSON = `{"confidence":0.82,"fixFile":"main.go","fixStartLine":12,
"fixContent":"var foo = 1","explanation":"declares the missing identifier","testSuggestion":"go build ./...",
"rollbackSteps":"revert the commit"}`

func fastPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.InitialInterval = 0
	p.MaxInterval = 0
	return p
}

func TestOrchestratorRunSucceedsAcrossAllFourRoles(t *testing.T) {
	fake := llmclient.NewFakeClient(logAnalystJSON, workflowExpertJSON, codeReviewerJSON, fixGeneratorJSON)
	orch := New(fake, "gpt-4o-mini", fastPolicy(), nil)

	summary, err := orch.Run(context.Background(), Input{
		LogSnippet:       "main.go:12: undefined: foo",
		WorkflowArtifact: "name: ci\non: push",
		ChangedFiles:     []ChangedFile{{Path: "main.go", Status: "modified", Additions: 3, Deletions: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, "build", summary.Outputs.LogAnalyst.FailureType)
	assert.Equal(t, "env-vars", summary.Outputs.WorkflowExpert.IssueType)
	assert.Equal(t, 70, summary.Outputs.CodeReviewer.OverallScore)
	assert.Equal(t, "main.go", summary.Outputs.FixGenerator.FixFile)
	assert.Equal(t, 0.82, summary.OverallConfidence)
	assert.Contains(t, summary.ActionItems, "add missing FOO env var to the build step")
	assert.Len(t, fake.Calls(), 4)
	for _, role := range roleOrder {
		assert.Equal(t, 0, summary.RetriesUsed[role])
	}
}

func TestOrchestratorRunReturnsPartialResultOnFixGeneratorFailure(t *testing.T) {
	// Fix Generator's response is missing required fields on every attempt,
	// so retries exhaust and Run must still surface the three roles that
	// did succeed.
	fake := llmclient.NewFakeClient(logAnalystJSON, workflowExpertJSON, codeReviewerJSON, `{"fixFile":""}`)
	policy := fastPolicy()
	policy.MaxAttempts = 2
	orch := New(fake, "gpt-4o-mini", policy, nil)

	summary, err := orch.Run(context.Background(), Input{LogSnippet: "boom"})
	require.Error(t, err)

	assert.Equal(t, "build", summary.Outputs.LogAnalyst.FailureType)
	assert.Equal(t, "env-vars", summary.Outputs.WorkflowExpert.IssueType)
	assert.Equal(t, 70, summary.Outputs.CodeReviewer.OverallScore)
	assert.Empty(t, summary.Outputs.FixGenerator.FixFile)
}

func TestOrchestratorRunFailsFastWhenLogAnalystNeverValidates(t *testing.T) {
	fake := llmclient.NewFakeClient(`not json at all`)
	policy := fastPolicy()
	policy.MaxAttempts = 1
	orch := New(fake, "gpt-4o-mini", policy, nil)

	_, err := orch.Run(context.Background(), Input{LogSnippet: "boom"})
	require.Error(t, err)
	assert.Len(t, fake.Calls(), 1)
}

func TestOrchestratorRunStreamingEmitsStatusAgentAndDoneChunks(t *testing.T) {
	fake := llmclient.NewFakeClient(logAnalystJSON, workflowExpertJSON, codeReviewerJSON, fixGeneratorJSON)
	orch := New(fake, "gpt-4o-mini", fastPolicy(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks, errCh := orch.RunStreaming(ctx, Input{LogSnippet: "main.go:12: undefined: foo"})

	var kinds []ChunkKind
	var fix *FixChunk
	for c := range chunks {
		kinds = append(kinds, c.Kind)
		if c.Kind == ChunkFix {
			fix = c.Fix
		}
	}
	require.NoError(t, <-errCh)

	assert.Contains(t, kinds, ChunkStatus)
	assert.Contains(t, kinds, ChunkAgent)
	assert.Contains(t, kinds, ChunkFix)
	assert.Equal(t, ChunkDone, kinds[len(kinds)-1])
	require.NotNil(t, fix)
	assert.Equal(t, "main.go", fix.File)
	assert.Equal(t, 12, fix.Line)
}
