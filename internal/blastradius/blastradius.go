// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package blastradius maps a classified failure to an estimated scope of
// downstream impact. The level/escalation shape mirrors this codebase's
// PR risk-level analysis and gate-condition lexicon (low/medium/high
// ordinal comparisons).
package blastradius

import (
	"fmt"
	"strings"

	"github.com/forgecd/forge-agent/internal/classify"
)

// Level is the blast-radius severity tier.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

var levelOrder = map[Level]int{LevelLow: 0, LevelMedium: 1, LevelHigh: 2}

func escalate(l Level) Level {
	switch l {
	case LevelLow:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// BlastRadius is Estimate's terminal output.
type BlastRadius struct {
	Level         Level
	AffectedAreas map[string]struct{}
	Dependents    []string
	RiskFactors   []string
	Reasoning     string
}

var baseLevel = map[classify.FailureType]Level{
	classify.TypeBuild:   LevelHigh,
	classify.TypeDeploy:  LevelHigh,
	classify.TypeAuth:    LevelHigh,
	classify.TypeTest:    LevelMedium,
	classify.TypeEnv:     LevelMedium,
	classify.TypeNetwork: LevelMedium,
	classify.TypeTimeout: LevelMedium,
	classify.TypeUnknown: LevelMedium,
	classify.TypeLint:    LevelLow,
}

var criticalStepTokens = []string{
	"setup", "build", "compile", "deploy", "publish", "release", "authenticate", "login",
}

// WorkflowMetadata is the optional caller-supplied widening context.
type WorkflowMetadata struct {
	MatrixParallel bool
	DependentJobs  []string
	IsCriticalPath bool
}

// Estimate derives a BlastRadius for one FailureEvent.
func Estimate(event classify.FailureEvent, meta WorkflowMetadata) BlastRadius {
	level := baseLevel[event.Type]
	if level == "" {
		level = LevelMedium
	}

	areas := map[string]struct{}{}
	var riskFactors []string

	stepLower := strings.ToLower(event.Step)
	for _, token := range criticalStepTokens {
		if strings.Contains(stepLower, token) {
			level = escalate(level)
			riskFactors = append(riskFactors, fmt.Sprintf("step %q matches critical-path token %q", event.Step, token))
			break
		}
	}

	switch event.Type {
	case classify.TypeAuth:
		areas["authentication-layer"] = struct{}{}
	case classify.TypeBuild:
		areas["build-pipeline"] = struct{}{}
	case classify.TypeDeploy:
		level = LevelHigh
		areas["deployment-pipeline"] = struct{}{}
	}

	var dependents []string
	if meta.MatrixParallel {
		areas["matrix-jobs"] = struct{}{}
		riskFactors = append(riskFactors, "matrix parallelism widens affected area")
	}
	if len(meta.DependentJobs) > 0 {
		dependents = append(dependents, meta.DependentJobs...)
	}
	if meta.IsCriticalPath {
		level = escalate(level)
		riskFactors = append(riskFactors, "failure is on a declared critical path")
	}

	areaList := make([]string, 0, len(areas))
	for a := range areas {
		areaList = append(areaList, a)
	}

	return BlastRadius{
		Level:         level,
		AffectedAreas: areas,
		Dependents:    dependents,
		RiskFactors:   riskFactors,
		Reasoning:     reasoning(event, level, areaList),
	}
}

func reasoning(event classify.FailureEvent, level Level, areas []string) string {
	return fmt.Sprintf(
		"Failure type %q at step %q was assessed at %s impact; affected areas: %s.",
		event.Type, event.Step, level, strings.Join(areas, ", "),
	)
}

// AtLeast reports whether level a is ordinally >= b.
func AtLeast(a, b Level) bool {
	return levelOrder[a] >= levelOrder[b]
}
