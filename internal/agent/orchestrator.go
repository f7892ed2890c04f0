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
	"log/slog"

	"github.com/forgecd/forge-agent/internal/budget"
	"github.com/forgecd/forge-agent/internal/llmclient"
	"github.com/forgecd/forge-agent/internal/retry"
	"github.com/forgecd/forge-agent/internal/schema"
)

// Orchestrator runs the four expert roles in sequence.
type Orchestrator struct {
	client      llmclient.Client
	retryPolicy retry.Policy
	model       string
	logger      *slog.Logger
}

// New builds an Orchestrator against client.
func New(client llmclient.Client, model string, retryPolicy retry.Policy, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{client: client, retryPolicy: retryPolicy, model: model, logger: logger}
}

// Run executes Log Analyst -> Workflow Expert -> Code Reviewer -> Fix
// Generator, stopping at the first role whose retries are exhausted. On
// failure the already-completed outputs are returned alongside the error
// so the caller can report a partial result.
func (o *Orchestrator) Run(ctx context.Context, in Input) (Summary, error) {
	var outputs schema.AgentOutputs
	retries := map[Role]int{}

	if err := o.runRole(ctx, RoleLogAnalyst, systemLogAnalyst, userPromptLogAnalyst(in),
		&outputs.LogAnalyst, nil, retries); err != nil {
		return Summary{Outputs: outputs, RetriesUsed: retries}, fmt.Errorf("log analyst: %w", err)
	}

	if err := o.runRole(ctx, RoleWorkflowExpert, systemWorkflowExpert,
		userPromptWorkflowExpert(in, marshalPrior(outputs.LogAnalyst)),
		&outputs.WorkflowExpert, nil, retries); err != nil {
		return Summary{Outputs: outputs, RetriesUsed: retries}, fmt.Errorf("workflow expert: %w", err)
	}

	if err := o.runRole(ctx, RoleCodeReviewer, systemCodeReviewer,
		userPromptCodeReviewer(in, marshalPrior(outputs.WorkflowExpert)),
		&outputs.CodeReviewer, nil, retries); err != nil {
		return Summary{Outputs: outputs, RetriesUsed: retries}, fmt.Errorf("code reviewer: %w", err)
	}

	prior := marshalPrior(struct {
		LogAnalyst     any `json:"logAnalyst"`
		WorkflowExpert any `json:"workflowExpert"`
		CodeReviewer   any `json:"codeReviewer"`
	}{outputs.LogAnalyst, outputs.WorkflowExpert, outputs.CodeReviewer})

	if err := o.runRole(ctx, RoleFixGenerator, systemFixGenerator,
		userPromptFixGenerator(in, prior),
		&outputs.FixGenerator, schema.ExtraChecksForFixGenerator, retries); err != nil {
		return Summary{Outputs: outputs, RetriesUsed: retries}, fmt.Errorf("fix generator: %w", err)
	}

	return Summary{
		Title:             fmt.Sprintf("%s failure in %s", outputs.LogAnalyst.FailureType, outputs.FixGenerator.FixFile),
		SummaryText:       outputs.FixGenerator.Explanation,
		Outputs:           outputs,
		OverallConfidence: outputs.FixGenerator.Confidence,
		ActionItems:       deriveActionItems(outputs),
		RetriesUsed:       retries,
	}, nil
}

func (o *Orchestrator) runRole(
	ctx context.Context,
	role Role,
	system, user string,
	target any,
	extra func(v any) []schema.Violation,
	retries map[Role]int,
) error {
	check := budget.CheckBudget(o.model, system, user, "")
	if !check.Pass {
		user = budget.TruncateToFit(user, check.BudgetCeiling-check.OutputReserved, budget.StrategyMiddle)
	}

	callLLM := func(ctx context.Context, correction string) (string, error) {
		fullUser := user
		if correction != "" {
			fullUser = correction + "\n\n" + user
		}
		return o.client.Generate(ctx, system, fullUser, llmclient.DefaultParams())
	}
	validateFn := func(raw string) schema.Result {
		return schema.Validate(raw, target, extra)
	}

	outcome, err := retry.Call(ctx, o.retryPolicy, callLLM, validateFn)
	retries[role] = outcome.RetriesUsed
	if err != nil {
		o.logger.Error("agent role failed", "role", role, "error", err)
		return err
	}
	o.logger.Info("agent role completed", "role", role, "retries", outcome.RetriesUsed)
	return nil
}

func deriveActionItems(outputs schema.AgentOutputs) []string {
	var items []string
	if outputs.WorkflowExpert.Recommendation != "" {
		items = append(items, outputs.WorkflowExpert.Recommendation)
	}
	for _, blocker := range outputs.CodeReviewer.Blockers {
		items = append(items, "blocker: "+blocker)
	}
	if outputs.FixGenerator.TestSuggestion != "" {
		items = append(items, "test: "+outputs.FixGenerator.TestSuggestion)
	}
	return items
}
