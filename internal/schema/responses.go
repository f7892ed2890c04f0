// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

// LogAnalystResponse is the Log Analyst's wire contract: the structured
// JSON it must return for its output to pass schema validation.
type LogAnalystResponse struct {
	FailureType          string   `json:"failureType" validate:"required,oneof=auth build test deploy network timeout env unknown"`
	Severity             string   `json:"severity" validate:"required,oneof=critical high medium low"`
	Summary              string   `json:"summary" validate:"required,max=200"`
	RootCauseLines       []string `json:"rootCauseLines"`
	ContextLines         []string `json:"contextLines" validate:"max=5"`
	SuggestedSearchTerms []string `json:"suggestedSearchTerms" validate:"max=3"`
}

// YamlChange is one proposed edit to a workflow file.
type YamlChange struct {
	Path     string `json:"path" validate:"required"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
	Reason   string `json:"reason"`
}

// WorkflowExpertResponse is the Workflow Expert's wire contract.
type WorkflowExpertResponse struct {
	IssueType      string       `json:"issueType" validate:"required,oneof=permissions secrets env-vars matrix cache concurrency none"`
	Recommendation string       `json:"recommendation" validate:"required,max=300"`
	YamlChanges    []YamlChange `json:"yamlChanges"`
	RiskLevel      string       `json:"riskLevel" validate:"required,oneof=low medium high"`
}

// CodeIssue is one finding from the Code Reviewer.
type CodeIssue struct {
	Type       string `json:"type" validate:"required,oneof=security performance style logic testing"`
	Severity   string `json:"severity" validate:"required,oneof=critical major minor"`
	File       string `json:"file" validate:"required"`
	Line       int    `json:"line" validate:"min=0"`
	Message    string `json:"message" validate:"required"`
	Suggestion string `json:"suggestion"`
}

// CodeReviewerResponse is the Code Reviewer's wire contract.
type CodeReviewerResponse struct {
	IssuesFound  []CodeIssue `json:"issuesFound"`
	OverallScore int         `json:"overallScore" validate:"min=0,max=100"`
	Blockers     []string    `json:"blockers"`
}

// FixGeneratorResponse is the Fix Generator's wire contract.
type FixGeneratorResponse struct {
	Confidence     float64 `json:"confidence" validate:"min=0,max=1"`
	FixFile        string  `json:"fixFile" validate:"required"`
	FixStartLine   int     `json:"fixStartLine" validate:"min=1"`
	FixContent     string  `json:"fixContent" validate:"required"`
	Explanation    string  `json:"explanation" validate:"required,max=500"`
	TestSuggestion string  `json:"testSuggestion"`
	RollbackSteps  string  `json:"rollbackSteps"`
}

// AgentOutputs bundles the four expert outputs the Summary references.
type AgentOutputs struct {
	LogAnalyst     LogAnalystResponse     `json:"logAnalyst"`
	WorkflowExpert WorkflowExpertResponse `json:"workflowExpert"`
	CodeReviewer   CodeReviewerResponse   `json:"codeReviewer"`
	FixGenerator   FixGeneratorResponse   `json:"fixGenerator"`
}

// SummaryResponse is the orchestrator's terminal wire contract.
type SummaryResponse struct {
	Title             string       `json:"title" validate:"required,max=100"`
	Summary           string       `json:"summary" validate:"required,max=500"`
	Agents            AgentOutputs `json:"agents"`
	OverallConfidence float64      `json:"overallConfidence" validate:"min=0,max=1"`
	ActionItems       []string     `json:"actionItems"`
}

// ExtraChecksForFixGenerator returns the hand-written, path-qualified
// checks for a *FixGeneratorResponse (nil for any other value). Its one
// check, fixStartLine >= 1, repeats the struct tag's bound with a
// plainer message. The other response types have no extra checks.
func ExtraChecksForFixGenerator(v any) []Violation {
	resp, ok := v.(*FixGeneratorResponse)
	if !ok {
		return nil
	}
	var violations []Violation
	if resp.FixStartLine < 1 {
		violations = append(violations, Violation{Path: "fixStartLine", Message: "fixStartLine must be >= 1"})
	}
	return violations
}
