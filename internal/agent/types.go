// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent runs the four expert roles in strict sequence — Log
// Analyst, Workflow Expert, Code Reviewer, Fix Generator — each through
// the token budgeter, the backend, schema validation, and retry.
package agent

import "github.com/forgecd/forge-agent/internal/schema"

// Role identifies one expert in the fixed pipeline order.
type Role string

const (
	RoleLogAnalyst     Role = "log_analyst"
	RoleWorkflowExpert Role = "workflow_expert"
	RoleCodeReviewer   Role = "code_reviewer"
	RoleFixGenerator   Role = "fix_generator"
)

// roleOrder is the strict sequence the orchestrator runs in.
var roleOrder = []Role{RoleLogAnalyst, RoleWorkflowExpert, RoleCodeReviewer, RoleFixGenerator}

// ChangedFile is one entry in the caller-supplied change set.
type ChangedFile struct {
	Path      string
	Status    string // added|modified|deleted
	Additions int
	Deletions int
}

// Input is everything the orchestrator needs to run all four roles.
type Input struct {
	LogSnippet       string
	WorkflowArtifact string
	ChangedFiles     []ChangedFile
}

// Summary is the orchestrator's terminal output: the human-facing
// synthesis of all four roles plus the raw model outputs it was built
// from.
type Summary struct {
	Title             string
	SummaryText       string
	Outputs           schema.AgentOutputs
	OverallConfidence float64
	ActionItems       []string
	RetriesUsed       map[Role]int
}
