// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgecd/forge-agent/internal/config"
)

func thresholds() config.GateThresholds {
	return config.GateThresholds{AutoApply: 0.9, ManualReview: 0.6, Escalate: 0.3}
}

func TestDecideRejectsOnValidationErrors(t *testing.T) {
	d := Decide(Input{Score: 0.95, ValidationErrors: 1}, thresholds())
	assert.Equal(t, ActionReject, d.Action)
}

func TestDecideRequiresSecurityReviewOnSensitivePath(t *testing.T) {
	cfg := thresholds()
	cfg.RequiresSecurityReview = true
	d := Decide(Input{Score: 0.95, TouchedPaths: []string{"internal/auth/login.go"}}, cfg)
	assert.Equal(t, ActionManualReview, d.Action)
}

func TestDecideAutoAppliesHighScoreNonCritical(t *testing.T) {
	d := Decide(Input{Score: 0.95}, thresholds())
	assert.Equal(t, ActionAutoApply, d.Action)
}

func TestDecideDowngradesAutoApplyWhenCriticalAndNotAllowed(t *testing.T) {
	d := Decide(Input{Score: 0.95, IsCriticalFailure: true}, thresholds())
	assert.Equal(t, ActionManualReview, d.Action)
}

func TestDecideAllowsAutoApplyOnCriticalWhenConfigured(t *testing.T) {
	cfg := thresholds()
	cfg.AllowAutoApplyOnCritical = true
	d := Decide(Input{Score: 0.95, IsCriticalFailure: true}, cfg)
	assert.Equal(t, ActionAutoApply, d.Action)
}

func TestDecideManualReviewBand(t *testing.T) {
	d := Decide(Input{Score: 0.7}, thresholds())
	assert.Equal(t, ActionManualReview, d.Action)
}

func TestDecideEscalateBand(t *testing.T) {
	d := Decide(Input{Score: 0.4}, thresholds())
	assert.Equal(t, ActionEscalate, d.Action)
}

func TestDecideRejectsBelowEscalate(t *testing.T) {
	d := Decide(Input{Score: 0.1}, thresholds())
	assert.Equal(t, ActionReject, d.Action)
}

func TestDecideEnrichesRisksForLargeChangeSet(t *testing.T) {
	d := Decide(Input{Score: 0.95, ChangeSetSize: 6, HasDeletions: true, NewFilesCount: 4, Warnings: 2}, thresholds())
	assert.Contains(t, d.Risks, "change set spans more than 5 files")
	assert.Contains(t, d.Risks, "change set includes deletions")
	assert.Contains(t, d.Risks, "change set adds more than 3 new files")
	assert.Contains(t, d.Risks, "validator reported warnings")
}
