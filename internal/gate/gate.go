// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gate decides what happens to a generated fix — auto-apply,
// manual-review, escalate, or reject — from its confidence score and a
// handful of risk flags. The decision function is pure and holds no
// state across calls.
package gate

import (
	"strings"

	"github.com/forgecd/forge-agent/internal/config"
)

// Action is one of the four terminal gate outcomes.
type Action string

const (
	ActionAutoApply    Action = "auto-apply"
	ActionManualReview Action = "manual-review"
	ActionEscalate     Action = "escalate"
	ActionReject       Action = "reject"
)

// Input is everything Decide needs about one candidate fix.
type Input struct {
	Score             float64
	ValidationErrors  int
	IsCriticalFailure bool
	TouchedPaths      []string
	Warnings          int
	ChangeSetSize     int
	HasDeletions      bool
	NewFilesCount     int
}

// Decision is the gate's verdict plus the context a human reviewer needs.
type Decision struct {
	Action          Action
	Confidence      float64
	Reasoning       string
	Risks           []string
	Recommendations []string
}

var securityLexicon = []string{"auth", "secret", "password", "token", "credential", "permission", "access", "security"}
var performanceLexicon = []string{"cache", "database", "query", "optimization", "performance", "index"}
var criticalPathLexicon = []string{"package.json", "package-lock.json", "go.sum", "go.mod", "Gemfile.lock", "yarn.lock"}

// Decide applies a first-match-wins decision order, then enriches the
// result with risk/recommendation notes.
func Decide(in Input, cfg config.GateThresholds) Decision {
	d := Decision{Confidence: in.Score}
	enrichRisks(in, &d)

	switch {
	case in.ValidationErrors > 0:
		d.Action = ActionReject
		d.Reasoning = "validation reported errors"

	case cfg.RequiresSecurityReview && touchesLexicon(in.TouchedPaths, securityLexicon):
		d.Action = ActionManualReview
		d.Reasoning = "change touches a security-sensitive path"

	case cfg.RequiresPerformanceReview && touchesLexicon(in.TouchedPaths, performanceLexicon):
		d.Action = ActionManualReview
		d.Reasoning = "change touches a performance-sensitive path"

	case in.Score >= cfg.AutoApply:
		if in.IsCriticalFailure && !cfg.AllowAutoApplyOnCritical {
			d.Action = ActionManualReview
			d.Reasoning = "score clears auto-apply but the failure is critical and auto-apply-on-critical is disabled"
		} else {
			d.Action = ActionAutoApply
			d.Reasoning = "score clears the auto-apply threshold"
		}

	case in.Score >= cfg.ManualReview:
		d.Action = ActionManualReview
		d.Reasoning = "score clears manual-review but not auto-apply"

	case in.Score >= cfg.Escalate:
		d.Action = ActionEscalate
		d.Reasoning = "score clears escalate but not manual-review"

	default:
		d.Action = ActionReject
		d.Reasoning = "score is below the escalate threshold"
	}

	d.Recommendations = recommendationsFor(d.Action, in)
	return d
}

func touchesLexicon(paths []string, lexicon []string) bool {
	for _, p := range paths {
		lower := strings.ToLower(p)
		for _, term := range lexicon {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}

func enrichRisks(in Input, d *Decision) {
	if in.Warnings > 0 {
		d.Risks = append(d.Risks, "validator reported warnings")
	}
	for _, p := range in.TouchedPaths {
		if isCriticalPath(p) {
			d.Risks = append(d.Risks, "touches critical path: "+p)
		}
	}
	if in.ChangeSetSize > 5 {
		d.Risks = append(d.Risks, "change set spans more than 5 files")
	}
	if in.HasDeletions {
		d.Risks = append(d.Risks, "change set includes deletions")
	}
	if in.NewFilesCount > 3 {
		d.Risks = append(d.Risks, "change set adds more than 3 new files")
	}
}

func isCriticalPath(path string) bool {
	lower := strings.ToLower(path)
	if strings.Contains(lower, ".github/workflows/") {
		return true
	}
	if strings.Contains(lower, "cmd/") && strings.HasSuffix(lower, "main.go") {
		return true
	}
	for _, name := range criticalPathLexicon {
		if strings.HasSuffix(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

func recommendationsFor(action Action, in Input) []string {
	switch action {
	case ActionAutoApply:
		return []string{"apply automatically and monitor the next run"}
	case ActionManualReview:
		return []string{"request a human review before applying"}
	case ActionEscalate:
		return []string{"escalate to a senior reviewer; confidence is too low to proceed unattended"}
	default:
		return []string{"reject the fix and re-run analysis with more context"}
	}
}
