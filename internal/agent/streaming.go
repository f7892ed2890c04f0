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
	"fmt"

	"github.com/forgecd/forge-agent/internal/schema"
)

// ChunkKind tags a streamed chunk.
type ChunkKind string

const (
	ChunkStatus ChunkKind = "status"
	ChunkAgent  ChunkKind = "agent"
	ChunkFix    ChunkKind = "fix"
	ChunkDone   ChunkKind = "done"
)

// Chunk is one unit the streaming variant yields. Chunks from one agent
// arrive in call order; across agents they arrive in roleOrder.
type Chunk struct {
	Kind    ChunkKind
	Role    Role
	Status  string // role-transition note, set when Kind == ChunkStatus
	Payload any    // the role's decoded response, set when Kind == ChunkAgent
	Fix     *FixChunk
}

// FixChunk carries the file/line/content triple emitted once the Fix
// Generator completes.
type FixChunk struct {
	File    string
	Line    int
	Content string
}

// RunStreaming runs Run's sequence but emits a Chunk at every role
// transition and at completion instead of returning only the final
// Summary. The channel is closed after the terminal done chunk or after
// an error; callers must drain it to avoid blocking the orchestrator,
// which buffers at most one chunk per agent when unconsumed.
func (o *Orchestrator) RunStreaming(ctx context.Context, in Input) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errCh)

		summary, err := o.runStreamingSequence(ctx, in, chunks)
		if err != nil {
			select {
			case errCh <- err:
			case <-ctx.Done():
			}
			return
		}

		select {
		case chunks <- Chunk{Kind: ChunkDone, Payload: summary}:
		case <-ctx.Done():
		}
	}()

	return chunks, errCh
}

// runStreamingSequence mirrors Run's role order but emits a status chunk
// before each role starts and an agent chunk as soon as that role's
// output validates, rather than running the whole sequence synchronously
// and dumping every chunk afterward.
func (o *Orchestrator) runStreamingSequence(ctx context.Context, in Input, chunks chan<- Chunk) (Summary, error) {
	emit := func(c Chunk) bool {
		select {
		case chunks <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var outputs schema.AgentOutputs
	retries := map[Role]int{}

	runAndEmit := func(role Role, system, user string, target any, extra func(v any) []schema.Violation, payload func() any) error {
		if !emit(Chunk{Kind: ChunkStatus, Role: role, Status: "starting " + string(role)}) {
			return ctx.Err()
		}
		if err := o.runRole(ctx, role, system, user, target, extra, retries); err != nil {
			return err
		}
		emit(Chunk{Kind: ChunkAgent, Role: role, Payload: payload()})
		return nil
	}

	if err := runAndEmit(RoleLogAnalyst, systemLogAnalyst, userPromptLogAnalyst(in),
		&outputs.LogAnalyst, nil, func() any { return outputs.LogAnalyst }); err != nil {
		return Summary{Outputs: outputs, RetriesUsed: retries}, fmt.Errorf("log analyst: %w", err)
	}

	if err := runAndEmit(RoleWorkflowExpert, systemWorkflowExpert,
		userPromptWorkflowExpert(in, marshalPrior(outputs.LogAnalyst)),
		&outputs.WorkflowExpert, nil, func() any { return outputs.WorkflowExpert }); err != nil {
		return Summary{Outputs: outputs, RetriesUsed: retries}, fmt.Errorf("workflow expert: %w", err)
	}

	if err := runAndEmit(RoleCodeReviewer, systemCodeReviewer,
		userPromptCodeReviewer(in, marshalPrior(outputs.WorkflowExpert)),
		&outputs.CodeReviewer, nil, func() any { return outputs.CodeReviewer }); err != nil {
		return Summary{Outputs: outputs, RetriesUsed: retries}, fmt.Errorf("code reviewer: %w", err)
	}

	prior := marshalPrior(struct {
		LogAnalyst     any `json:"logAnalyst"`
		WorkflowExpert any `json:"workflowExpert"`
		CodeReviewer   any `json:"codeReviewer"`
	}{outputs.LogAnalyst, outputs.WorkflowExpert, outputs.CodeReviewer})

	if err := runAndEmit(RoleFixGenerator, systemFixGenerator, userPromptFixGenerator(in, prior),
		&outputs.FixGenerator, schema.ExtraChecksForFixGenerator, func() any { return outputs.FixGenerator }); err != nil {
		return Summary{Outputs: outputs, RetriesUsed: retries}, fmt.Errorf("fix generator: %w", err)
	}

	summary := Summary{
		Title:             fmt.Sprintf("%s failure in %s", outputs.LogAnalyst.FailureType, outputs.FixGenerator.FixFile),
		SummaryText:       outputs.FixGenerator.Explanation,
		Outputs:           outputs,
		OverallConfidence: outputs.FixGenerator.Confidence,
		ActionItems:       deriveActionItems(outputs),
		RetriesUsed:       retries,
	}

	emit(Chunk{
		Kind: ChunkFix,
		Role: RoleFixGenerator,
		Fix: &FixChunk{
			File:    summary.Outputs.FixGenerator.FixFile,
			Line:    summary.Outputs.FixGenerator.FixStartLine,
			Content: summary.Outputs.FixGenerator.FixContent,
		},
	})

	return summary, nil
}
