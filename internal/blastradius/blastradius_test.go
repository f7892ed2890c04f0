// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package blastradius

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgecd/forge-agent/internal/classify"
)

func TestEstimateAuthFailureTagsAuthenticationLayer(t *testing.T) {
	event := classify.FailureEvent{Type: classify.TypeAuth, Step: "publish"}
	br := Estimate(event, WorkflowMetadata{})

	assert.Equal(t, LevelHigh, br.Level)
	_, tagged := br.AffectedAreas["authentication-layer"]
	assert.True(t, tagged)
}

func TestEstimateDeployAlwaysPinsHigh(t *testing.T) {
	event := classify.FailureEvent{Type: classify.TypeDeploy, Step: "notify"}
	br := Estimate(event, WorkflowMetadata{})
	assert.Equal(t, LevelHigh, br.Level)
}

func TestEstimateLintStaysLowWithoutEscalation(t *testing.T) {
	event := classify.FailureEvent{Type: classify.TypeLint, Step: "check-style"}
	br := Estimate(event, WorkflowMetadata{})
	assert.Equal(t, LevelLow, br.Level)
}

func TestEstimateCriticalPathEscalatesOneLevel(t *testing.T) {
	event := classify.FailureEvent{Type: classify.TypeLint, Step: "check-style"}
	br := Estimate(event, WorkflowMetadata{IsCriticalPath: true})
	assert.Equal(t, LevelMedium, br.Level)
}

func TestAtLeastOrdersLevels(t *testing.T) {
	assert.True(t, AtLeast(LevelHigh, LevelMedium))
	assert.False(t, AtLeast(LevelLow, LevelMedium))
}
