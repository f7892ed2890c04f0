// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgecd/forge-agent/internal/forgeerr"
)

func TestRootCommandRegistersAllSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"analyze", "apply", "rollback", "audit"}, names)
}

func TestRootPersistentFlagsArePresent(t *testing.T) {
	for _, name := range []string{
		"backend", "api-key-env", "log-dir",
		"auto-apply-threshold", "manual-review-threshold", "escalate-threshold",
		"aggressive-redaction", "tracing",
	} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing persistent flag %q", name)
	}
}

func TestAnalyzeRequiredFlags(t *testing.T) {
	for _, name := range []string{"log", "workflow"} {
		f := analyzeCmd.Flags().Lookup(name)
		assert.NotNil(t, f, "missing flag %q", name)
	}
}

func TestApplyRequiredFlags(t *testing.T) {
	for _, name := range []string{"log", "workflow", "auto"} {
		assert.NotNil(t, applyCmd.Flags().Lookup(name), "missing flag %q", name)
	}
}

func TestRollbackRequiredFlags(t *testing.T) {
	for _, name := range []string{"root", "application-id"} {
		assert.NotNil(t, rollbackCmd.Flags().Lookup(name), "missing flag %q", name)
	}
}

func TestExitCodeForMapsApplicatorFailureKinds(t *testing.T) {
	err := forgeerr.Wrap(forgeerr.ErrApplyFailed, "disk full", "check available space")
	assert.Equal(t, exitApplicatorFailure, exitCodeFor(err))
}

func TestExitCodeForMapsRetrievalOrInputKinds(t *testing.T) {
	for _, kind := range []error{
		forgeerr.ErrInputInvalid, forgeerr.ErrNoFailureDetected, forgeerr.ErrBackendUnavailable,
		forgeerr.ErrSchemaViolation, forgeerr.ErrBudgetExceeded, forgeerr.ErrValidationFailed,
		forgeerr.ErrTimedOut, forgeerr.ErrCancelled,
	} {
		err := forgeerr.Wrap(kind, "detail", "hint")
		assert.Equal(t, exitRetrievalOrInput, exitCodeFor(err), "kind %v", kind)
	}
}

func TestExitCodeForDefaultsToConfigError(t *testing.T) {
	assert.Equal(t, exitConfigError, exitCodeFor(errors.New("unrecognized backend")))
}

func TestResolveConfigLayersFlagsOverDefault(t *testing.T) {
	backendFlag = "openai"
	aggressiveRedactionFlag = true
	t.Cleanup(func() {
		backendFlag = ""
		aggressiveRedactionFlag = false
	})

	cfg := resolveConfig()
	assert.Equal(t, "openai", cfg.Backend.Type)
	assert.True(t, cfg.AggressiveRedaction)
}
