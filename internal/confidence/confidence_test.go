// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package confidence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecd/forge-agent/internal/classify"
)

func TestScoreIsBoundedAndRounded(t *testing.T) {
	event := classify.FailureEvent{
		Type: classify.TypeAuth, Severity: classify.SeverityError,
		RuleID: "auth_npm_403", Confidence: 0.92,
		Context: map[string]string{"a": "1", "b": "2"},
	}
	m := Score(event, nil)

	require.GreaterOrEqual(t, m.Score, 0.0)
	require.LessOrEqual(t, m.Score, 1.0)
	assert.Equal(t, m.Score, math.Round(m.Score*100)/100)
}

func TestScoreHighConfidenceSuggestsAutoFix(t *testing.T) {
	event := classify.FailureEvent{
		Type: classify.TypeAuth, Severity: classify.SeverityCritical,
		RuleID: "auth_npm_403", Confidence: 0.95,
		Context:    map[string]string{"registry": "npmjs", "step": "publish", "job": "release"},
		StackTrace: "this is a long enough stack trace to exceed fifty characters for sure",
	}
	m := Score(event, nil)
	assert.GreaterOrEqual(t, m.Score, 0.9)
	assert.Equal(t, ActionAutoFix, m.SuggestedAction)
}

func TestScoreUnknownTypeWithNoContextEscalates(t *testing.T) {
	event := classify.FailureEvent{
		Type: classify.TypeUnknown, Severity: classify.SeverityWarning,
		RuleID: "generic_process_exit", Confidence: 0.5,
	}
	m := Score(event, nil)
	assert.Less(t, m.Score, 0.6)
	assert.Equal(t, ActionEscalate, m.SuggestedAction)
}

func TestBoostsCannotPushScoreAboveOne(t *testing.T) {
	event := classify.FailureEvent{
		Type: classify.TypeAuth, Severity: classify.SeverityCritical,
		RuleID: "auth_npm_403", Confidence: 1.0,
		Context:    map[string]string{"a": "1", "b": "2", "c": "3"},
		StackTrace: "this is a long enough stack trace to exceed fifty characters for sure",
	}
	m := Score(event, Boosts{"ci_provider_known_issue": true})
	assert.LessOrEqual(t, m.Score, 1.0)
}
