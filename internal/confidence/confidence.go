// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package confidence combines per-event signals into a [0,1] confidence
// score, accumulating named factors the way this codebase's blast-radius
// confidence calculator accumulates named penalty reasons — additive
// toward a bounded mean here, rather than subtractive from a 100-point
// score.
package confidence

import (
	"math"

	"github.com/forgecd/forge-agent/internal/classify"
)

// Factor is one named contribution to the composed score.
type Factor struct {
	Name    string
	Weight  float64
	Matched bool
	Reason  string
}

// Action is the scorer's suggested next step, independent of the gate's
// final decision (which also weighs risk flags).
type Action string

const (
	ActionAutoFix      Action = "auto-fix"
	ActionManualReview Action = "manual-review"
	ActionEscalate     Action = "escalate"
)

// Metrics is Score's terminal output: the final score plus the factors
// that contributed to it.
type Metrics struct {
	Score           float64
	Factors         []Factor
	SuggestedAction Action
}

var severityWeight = map[classify.Severity]float64{
	classify.SeverityInfo:     0.40,
	classify.SeverityWarning:  0.65,
	classify.SeverityError:    0.85,
	classify.SeverityCritical: 0.95,
}

var typeWeight = map[classify.FailureType]float64{
	classify.TypeAuth:    0.95,
	classify.TypeEnv:     0.92,
	classify.TypeBuild:   0.90,
	classify.TypeDeploy:  0.88,
	classify.TypeTest:    0.85,
	classify.TypeTimeout: 0.80,
	classify.TypeLint:    0.75,
	classify.TypeNetwork: 0.70,
	classify.TypeUnknown: 0.30,
}

// Boosts is an optional external-signal map: each true entry contributes
// an equal share of a 0.20 total boost budget, on top of the five-factor
// mean.
type Boosts map[string]bool

// Score composes the five named factors for a FailureEvent into Metrics.
func Score(event classify.FailureEvent, boosts Boosts) Metrics {
	factors := []Factor{
		ruleMatchFactor(event),
		severityFactor(event),
		contextFactor(event),
		typeCertaintyFactor(event),
		stackTraceFactor(event),
	}

	sum := 0.0
	for _, f := range factors {
		sum += f.Weight
	}
	score := sum / float64(len(factors))

	score += boostContribution(boosts)
	if score > 1.0 {
		score = 1.0
	}

	score = math.Round(score*100) / 100

	return Metrics{
		Score:           score,
		Factors:         factors,
		SuggestedAction: suggestAction(score),
	}
}

func ruleMatchFactor(event classify.FailureEvent) Factor {
	weight := event.Confidence
	matched := event.RuleID != "" && weight > 0
	if !matched {
		weight = 0.5
	}
	return Factor{Name: "rule_match", Weight: weight, Matched: matched, Reason: "matched rule " + event.RuleID}
}

func severityFactor(event classify.FailureEvent) Factor {
	weight, ok := severityWeight[event.Severity]
	if !ok {
		weight = severityWeight[classify.SeverityWarning]
	}
	return Factor{Name: "severity_alignment", Weight: weight, Matched: ok, Reason: "severity=" + string(event.Severity)}
}

func contextFactor(event classify.FailureEvent) Factor {
	weight := 0.1 * float64(len(event.Context))
	if weight > 0.3 {
		weight = 0.3
	}
	return Factor{Name: "context_richness", Weight: weight, Matched: len(event.Context) > 0, Reason: "context keys present"}
}

func typeCertaintyFactor(event classify.FailureEvent) Factor {
	weight, ok := typeWeight[event.Type]
	if !ok {
		weight = typeWeight[classify.TypeUnknown]
	}
	return Factor{Name: "type_certainty", Weight: weight, Matched: ok, Reason: "type=" + string(event.Type)}
}

func stackTraceFactor(event classify.FailureEvent) Factor {
	weight := 0.0
	matched := len(event.StackTrace) > 50
	if matched {
		weight = 0.20
	}
	return Factor{Name: "stack_trace_presence", Weight: weight, Matched: matched, Reason: "stack trace attached"}
}

func boostContribution(boosts Boosts) float64 {
	if len(boosts) == 0 {
		return 0
	}
	active := 0
	for _, v := range boosts {
		if v {
			active++
		}
	}
	if active == 0 {
		return 0
	}
	share := 0.20 / float64(len(boosts))
	return share * float64(active)
}

func suggestAction(score float64) Action {
	switch {
	case score >= 0.9:
		return ActionAutoFix
	case score < 0.6:
		return ActionEscalate
	default:
		return ActionManualReview
	}
}
