// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline glues the redactor through the applicator into one
// ordered run, injecting cancellation and deciding at each hop whether to
// surface a partial result or abort.
package pipeline

import (
	"log/slog"
	"time"

	"github.com/forgecd/forge-agent/internal/agent"
	"github.com/forgecd/forge-agent/internal/apply"
	"github.com/forgecd/forge-agent/internal/blastradius"
	"github.com/forgecd/forge-agent/internal/config"
	"github.com/forgecd/forge-agent/internal/confidence"
	"github.com/forgecd/forge-agent/internal/classify"
	"github.com/forgecd/forge-agent/internal/diffengine"
	"github.com/forgecd/forge-agent/internal/dryrun"
	"github.com/forgecd/forge-agent/internal/gate"
	"github.com/forgecd/forge-agent/internal/prune"
	"github.com/forgecd/forge-agent/internal/redact"
)

// WorkflowArtifact is the caller-supplied workflow configuration: its raw
// text plus whatever the caller has already parsed from it. Parsing is
// the caller's concern; the driver only ever needs the raw text to hand
// to the Workflow Expert.
type WorkflowArtifact struct {
	Raw    string
	Parsed map[string]any
}

// ChangeSet is the caller-supplied diff/file-list context for the Code
// Reviewer and the blast-radius estimator's touched-path analysis.
type ChangeSet struct {
	Files []agent.ChangedFile
}

// FailureAnalysis combines the redaction, pruning, classification,
// scoring, and blast-radius results for one run. Immutable once built.
type FailureAnalysis struct {
	ID          string
	Events      []classify.FailureEvent
	Primary     classify.FailureEvent
	Confidence  confidence.Metrics
	BlastRadius blastradius.BlastRadius
	Redaction   redact.Stats
	Pruning     prune.Pruned
	DurationMs  int64
}

// RunContext groups the per-run values (run id, deadline, logger, config
// snapshot). Driver.Run does not build one: it passes the run id and the
// run-tagged logger to each hop as separate arguments.
type RunContext struct {
	RunID    string
	Deadline time.Time
	Logger   *slog.Logger
	Config   config.Config
}

// Input is everything one pipeline invocation needs.
type Input struct {
	RawLog   string
	Workflow WorkflowArtifact
	Changes  ChangeSet
	// Root is the working-tree root the dry-run simulator and applicator
	// operate against. Required when Options.Apply or Options.DryRun.
	Root string
}

// Options controls how far the driver proceeds past the gate decision.
type Options struct {
	// DryRun runs C14 after the gate decision, regardless of the
	// decision's action, since simulation never writes.
	DryRun bool
	// Apply runs C14 then C15. Implies DryRun. The applicator itself
	// still refuses a non-auto-apply decision unless ApplyOptions.AutoApply
	// is set, and the driver never forces an apply over a reject.
	Apply        bool
	ApplyOptions apply.Options
}

// Result is the driver's terminal output.
// Partial is true when the run stopped short of what Options asked for:
// an abort or agent-role failure before the gate decision, or, after it,
// a missing Root for dry-run/apply, a gate rejection of an apply, or an
// apply failure. FailureKind then names why (an errors.Is-comparable
// forgeerr sentinel, or the agent-role error).
type Result struct {
	RunID       string
	Analysis    *FailureAnalysis
	Summary     *agent.Summary
	Patches     []diffengine.UnifiedPatch
	Decision    *gate.Decision
	Plan        *dryrun.DryRunPlan
	Application *apply.ApplicationRecord
	Partial     bool
	FailureKind error
	Message     string
}
