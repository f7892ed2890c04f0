// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package apply is the only component that writes files: it applies a
// decided-upon patch set transactionally, journals what it did, and can
// reverse it.
package apply

import (
	"time"

	"github.com/forgecd/forge-agent/internal/diffengine"
	"github.com/forgecd/forge-agent/internal/gate"
)

// Status is the terminal state of an ApplicationRecord.
type Status string

const (
	StatusApplied    Status = "applied"
	StatusRolledBack Status = "rolled-back"
	StatusPartial    Status = "partial"
)

// AppliedPatch records one patch's effect on disk.
type AppliedPatch struct {
	Filename   string
	BeforeHash string
	AfterHash  string
	Ts         time.Time
	Patch      diffengine.UnifiedPatch
	// BackupPath is where the pre-apply content was persisted, for
	// rollback; empty for a created file (beforeHash is hash("")).
	BackupPath string
}

// ApplicationRecord is the journaled outcome of one ApplyPatches call.
type ApplicationRecord struct {
	ID       string
	Ts       time.Time
	Patches  []AppliedPatch
	Decision gate.Decision
	Status   Status
	Error    string
}

// Options configures one ApplyPatches call.
type Options struct {
	// AutoApply overrides a non-auto-apply decision, per the gate's
	// explicit operator-confirmed auto-apply escape hatch.
	AutoApply bool
	// PreflightDryRun runs the simulator before writing anything.
	// Defaults to true via DefaultOptions.
	PreflightDryRun bool
}

// DefaultOptions enables the preflight dry run.
func DefaultOptions() Options {
	return Options{PreflightDryRun: true}
}

// RollbackResult is the outcome of reversing an ApplicationRecord.
type RollbackResult struct {
	Restored   []string
	Errors     []string
	DurationMs int64
}
