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
	"encoding/json"
	"fmt"
	"strings"
)

const (
	systemLogAnalyst = "You are a Log Analyst. Read the provided CI log snippet and identify the " +
		"root cause of the failure. Respond with pure JSON matching the required schema."
	systemWorkflowExpert = "You are a Workflow Expert. Given the Log Analyst's findings and the " +
		"workflow configuration, identify the configuration issue and propose concrete YAML changes. " +
		"Respond with pure JSON matching the required schema."
	systemCodeReviewer = "You are a Code Reviewer. Given the prior findings and the change set, " +
		"identify code-level issues that might be contributing to or masking the failure. " +
		"Respond with pure JSON matching the required schema."
	systemFixGenerator = "You are a Fix Generator. Given all prior findings, produce a concrete, " +
		"minimal fix. Respond with pure JSON matching the required schema."
	systemSummary = "Summarize the full analysis for a human reviewer. Respond with pure JSON " +
		"matching the required schema."
)

func userPromptLogAnalyst(in Input) string {
	return fmt.Sprintf("CI log snippet:\n%s", in.LogSnippet)
}

func userPromptWorkflowExpert(in Input, priorJSON string) string {
	return fmt.Sprintf("Log Analyst findings:\n%s\n\nWorkflow configuration:\n%s", priorJSON, in.WorkflowArtifact)
}

func userPromptCodeReviewer(in Input, priorJSON string) string {
	var b strings.Builder
	b.WriteString("Prior findings:\n")
	b.WriteString(priorJSON)
	b.WriteString("\n\nChange set:\n")
	for _, f := range in.ChangedFiles {
		fmt.Fprintf(&b, "- %s (%s, +%d/-%d)\n", f.Path, f.Status, f.Additions, f.Deletions)
	}
	return b.String()
}

func userPromptFixGenerator(in Input, priorJSON string) string {
	return fmt.Sprintf("Prior findings:\n%s\n\nCI log snippet:\n%s", priorJSON, in.LogSnippet)
}

func marshalPrior(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
