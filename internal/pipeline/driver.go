// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/forgecd/forge-agent/internal/agent"
	"github.com/forgecd/forge-agent/internal/apply"
	"github.com/forgecd/forge-agent/internal/audit"
	"github.com/forgecd/forge-agent/internal/blastradius"
	"github.com/forgecd/forge-agent/internal/classify"
	"github.com/forgecd/forge-agent/internal/config"
	"github.com/forgecd/forge-agent/internal/confidence"
	"github.com/forgecd/forge-agent/internal/diffengine"
	"github.com/forgecd/forge-agent/internal/dryrun"
	"github.com/forgecd/forge-agent/internal/forgeerr"
	"github.com/forgecd/forge-agent/internal/gate"
	"github.com/forgecd/forge-agent/internal/llmclient"
	"github.com/forgecd/forge-agent/internal/logging"
	"github.com/forgecd/forge-agent/internal/patchvalidate"
	"github.com/forgecd/forge-agent/internal/prune"
	"github.com/forgecd/forge-agent/internal/redact"
	"github.com/forgecd/forge-agent/internal/retry"
	"github.com/forgecd/forge-agent/internal/schema"
)

var tracer = otel.Tracer("forge.pipeline")

// Driver sequences C1 through C15 against one resolved configuration and
// backend. The audit journal is a singleton collaborator the caller opens
// once and passes in; the driver never reaches for a global.
type Driver struct {
	cfg        config.Config
	client     llmclient.Client
	redactor   *redact.Redactor
	classifier *classify.Engine
	journal    *audit.Journal
	logger     *slog.Logger
}

// New builds a Driver. client may be nil only if the caller never invokes
// Run with a non-empty log (tests construct drivers with a FakeClient).
func New(cfg config.Config, client llmclient.Client, journal *audit.Journal, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cfg:        cfg,
		client:     client,
		redactor:   redact.New(redact.DefaultRecognizers()),
		classifier: classify.NewEngine(classify.DefaultRules()),
		journal:    journal,
		logger:     logger,
	}
}

// Run executes C1 through C13 (redaction through the gate decision), then
// C14 and C15 as Options directs. It never returns a nil *Result: even an
// early abort returns one with Partial=true and FailureKind set.
func (d *Driver) Run(ctx context.Context, in Input, opts Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	runID := uuid.NewString()
	logger := logging.WithRun(d.logger, runID)
	start := time.Now()

	result := &Result{RunID: runID}
	outcome := "success"
	defer func() {
		RecordRunDuration(outcome, time.Since(start).Seconds())
	}()

	if strings.TrimSpace(in.RawLog) == "" {
		return d.abort(ctx, result, forgeerr.ErrInputInvalid, "log is empty", &outcome)
	}

	analysis, err := d.analyze(ctx, in, runID, logger)
	if err != nil {
		return d.abort(ctx, result, err, err.Error(), &outcome)
	}
	result.Analysis = analysis
	d.tee(ctx, audit.EventSecretsScan, "log", "redact+classify", audit.StatusSuccess,
		fmt.Sprintf("%d secrets redacted, %d events classified", analysis.Redaction.SecretsFound, len(analysis.Events)))

	if err := ctx.Err(); err != nil {
		return d.abort(ctx, result, forgeerr.ErrCancelled, "cancelled before agent run", &outcome)
	}

	summary, patches, postImages, err := d.runAgents(ctx, in, analysis, logger)
	if err != nil && summary == nil {
		return d.abort(ctx, result, err, err.Error(), &outcome)
	}
	result.Summary = summary
	result.Patches = patches
	if err != nil {
		// C10 surfaced a failure after some roles completed: a partial
		// result, not an abort.
		result.Partial = true
		result.FailureKind = err
		result.Message = err.Error()
		outcome = "partial"
		d.tee(ctx, audit.EventFixGenerated, "agents", "run", audit.StatusFailure, err.Error())
		return result, nil
	}
	for role, n := range summary.RetriesUsed {
		RecordAgentRetries(string(role), n)
	}
	d.tee(ctx, audit.EventFixGenerated, "agents", "run", audit.StatusSuccess, summary.Title)

	report := patchvalidate.ValidateAll(postImages)
	decision := gate.Decide(gate.Input{
		Score:             analysis.Confidence.Score,
		ValidationErrors:  countErrors(report),
		IsCriticalFailure: analysis.Primary.Severity == classify.SeverityCritical,
		TouchedPaths:      patchPaths(patches),
		Warnings:          countWarnings(report),
		ChangeSetSize:     len(in.Changes.Files),
		HasDeletions:      anyDeleted(patches),
		NewFilesCount:     countNew(patches),
	}, d.cfg.Gate)
	result.Decision = &decision
	RecordGateDecision(string(decision.Action))
	d.tee(ctx, audit.EventValidationCheck, "patches", "validate+gate", statusFor(decision), decision.Reasoning)

	if !opts.DryRun && !opts.Apply {
		return result, nil
	}
	if in.Root == "" {
		return d.abort(ctx, result, forgeerr.ErrInputInvalid, "a working-tree root is required for dry-run/apply", &outcome)
	}

	dryCtx, drySpan := tracer.Start(ctx, "pipeline.dryrun")
	plan := dryrun.Simulate(dryCtx, in.Root, patches, dryrun.DefaultOptions())
	drySpan.End()
	result.Plan = &plan
	d.tee(ctx, audit.EventValidationCheck, in.Root, "dry-run", statusForPlan(plan), plan.RollbackPlan)

	if !opts.Apply {
		return result, nil
	}
	if decision.Action == gate.ActionReject {
		result.Partial = true
		result.FailureKind = forgeerr.ErrApplyConflict
		result.Message = "gate rejected the change; refusing to apply"
		outcome = "partial"
		return result, nil
	}

	applyCtx, applySpan := tracer.Start(ctx, "pipeline.apply")
	defer applySpan.End()

	applicator, err := apply.NewApplicator(in.Root, defaultStateDir(in.Root))
	if err != nil {
		applySpan.RecordError(err)
		return d.abort(ctx, result, forgeerr.ErrApplyFailed, err.Error(), &outcome)
	}
	record, err := applicator.ApplyPatches(applyCtx, patches, decision, opts.ApplyOptions)
	if err != nil {
		applySpan.RecordError(err)
		result.Application = record
		result.Partial = true
		result.FailureKind = forgeerr.ErrApplyFailed
		result.Message = err.Error()
		outcome = "partial"
		d.tee(ctx, audit.EventFixApplied, in.Root, "apply", audit.StatusFailure, err.Error())
		return result, nil
	}
	result.Application = record
	d.tee(ctx, audit.EventFixApplied, in.Root, "apply", audit.StatusSuccess, record.ID)

	return result, nil
}

// Rollback reverses a prior application and journals the outcome.
func (d *Driver) Rollback(ctx context.Context, root, applicationID string) (*apply.RollbackResult, error) {
	applicator, err := apply.NewApplicator(root, defaultStateDir(root))
	if err != nil {
		return nil, forgeerr.Wrap(forgeerr.ErrApplyFailed, err.Error(), "check that root exists and is writable")
	}
	result, err := applicator.Rollback(ctx, applicationID)
	status := audit.StatusSuccess
	if err != nil || (result != nil && len(result.Errors) > 0) {
		status = audit.StatusFailure
	}
	d.tee(ctx, audit.EventFixReverted, root, "rollback", status, applicationID)
	return result, err
}

func (d *Driver) abort(ctx context.Context, result *Result, kind error, message string, outcome *string) (*Result, error) {
	result.Partial = true
	result.FailureKind = kind
	result.Message = message
	*outcome = "error"
	trace.SpanFromContext(ctx).RecordError(kind)
	d.tee(ctx, audit.EventSecurityAlert, "pipeline", "abort", audit.StatusFailure, message)
	return result, nil
}

// tee appends an audit entry best-effort: a journal write failure never
// fails the pipeline it's observing.
func (d *Driver) tee(ctx context.Context, event audit.EventType, resource, action string, status audit.Status, details string) {
	if d.journal == nil {
		return
	}
	_, err := d.journal.Append(ctx, audit.Entry{
		Event:    event,
		Actor:    "forge-pipeline",
		Resource: resource,
		Action:   action,
		Status:   status,
		Details:  details,
	})
	if err != nil {
		d.logger.Warn("audit journal append failed", "error", err)
	}
}

// analyze runs C1 through C5: redact, prune, classify, score, estimate.
func (d *Driver) analyze(ctx context.Context, in Input, runID string, logger *slog.Logger) (*FailureAnalysis, error) {
	_, span := tracer.Start(ctx, "pipeline.analyze")
	defer span.End()

	start := time.Now()

	redacted := d.redactor.Redact(in.RawLog)
	pruned := prune.Prune(redacted.Text, prune.Options{Head: d.cfg.HeadLines, Tail: d.cfg.TailLines})

	events := d.classifier.Evaluate(pruned.Text)
	if len(events) == 0 {
		err := fmt.Errorf("%w: no rule matched the pruned log", forgeerr.ErrNoFailureDetected)
		span.RecordError(err)
		return nil, err
	}

	primary := selectPrimary(events)
	metrics := confidence.Score(primary, nil)

	meta := blastradius.WorkflowMetadata{IsCriticalPath: isCriticalPathChange(in.Changes.Files)}
	radius := blastradius.Estimate(primary, meta)

	logger.Info("analysis complete", "eventCount", len(events), "primaryType", primary.Type, "score", metrics.Score)

	return &FailureAnalysis{
		ID:          runID,
		Events:      events,
		Primary:     primary,
		Confidence:  metrics,
		BlastRadius: radius,
		Redaction:   redacted.Stats,
		Pruning:     pruned,
		DurationMs:  time.Since(start).Milliseconds(),
	}, nil
}

// runAgents runs C6 through C11: the budgeted, retried, schema-validated
// four-role orchestration, then synthesises a UnifiedPatch from the Fix
// Generator's output.
func (d *Driver) runAgents(ctx context.Context, in Input, analysis *FailureAnalysis, logger *slog.Logger) (*agent.Summary, []diffengine.UnifiedPatch, map[string]string, error) {
	ctx, span := tracer.Start(ctx, "pipeline.runAgents")
	defer span.End()

	orch := agent.New(d.client, d.cfg.Backend.Model, retry.DefaultPolicy(), logger)

	summary, err := orch.Run(ctx, agent.Input{
		LogSnippet:       analysis.Pruning.Text,
		WorkflowArtifact: in.Workflow.Raw,
		ChangedFiles:     in.Changes.Files,
	})
	if err != nil {
		span.RecordError(err)
		return &summary, nil, nil, err
	}

	patch, postImage, perr := buildPatch(in.Root, summary.Outputs.FixGenerator)
	if perr != nil {
		logger.Warn("fix generator output did not yield an applicable patch", "error", perr)
		return &summary, nil, nil, nil
	}
	return &summary, []diffengine.UnifiedPatch{patch}, map[string]string{patch.Filename: postImage}, nil
}

// buildPatch turns the Fix Generator's single-location fix into a
// UnifiedPatch: the line at fixStartLine is replaced wholesale by
// fixContent (which may itself span multiple lines), and C11 computes
// the diff against the file as it exists on disk. When the target file
// doesn't exist, the fix is treated as a whole-file creation. Returns
// the patch alongside the post-image content C12 validates.
func buildPatch(root string, fix schema.FixGeneratorResponse) (diffengine.UnifiedPatch, string, error) {
	if fix.FixFile == "" {
		return diffengine.UnifiedPatch{}, "", fmt.Errorf("fix generator produced no target file")
	}

	fullPath := fix.FixFile
	if root != "" && !strings.HasPrefix(fix.FixFile, "/") {
		fullPath = root + "/" + fix.FixFile
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return diffengine.Compute(fix.FixFile, "", fix.FixContent, 3), fix.FixContent, nil
	}

	lines := strings.Split(string(data), "\n")
	idx := fix.FixStartLine - 1
	if idx < 0 || idx >= len(lines) {
		return diffengine.UnifiedPatch{}, "", fmt.Errorf("fixStartLine %d out of range for %s (%d lines)", fix.FixStartLine, fix.FixFile, len(lines))
	}

	replacement := strings.Split(fix.FixContent, "\n")
	newLines := append(append(append([]string{}, lines[:idx]...), replacement...), lines[idx+1:]...)
	newText := strings.Join(newLines, "\n")

	return diffengine.Compute(fix.FixFile, string(data), newText, 3), newText, nil
}

func selectPrimary(events []classify.FailureEvent) classify.FailureEvent {
	severityRank := map[classify.Severity]int{
		classify.SeverityCritical: 3,
		classify.SeverityError:    2,
		classify.SeverityWarning:  1,
		classify.SeverityInfo:     0,
	}
	best := events[0]
	for _, e := range events[1:] {
		if severityRank[e.Severity] > severityRank[best.Severity] {
			best = e
		}
	}
	return best
}

func isCriticalPathChange(files []agent.ChangedFile) bool {
	for _, f := range files {
		lower := strings.ToLower(f.Path)
		if strings.Contains(lower, "package.json") || strings.Contains(lower, "go.mod") || strings.Contains(lower, "go.sum") {
			return true
		}
	}
	return false
}

func countErrors(r patchvalidate.Report) int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Errors)
	}
	return n
}

func countWarnings(r patchvalidate.Report) int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Warnings)
	}
	return n
}

func patchPaths(patches []diffengine.UnifiedPatch) []string {
	out := make([]string, 0, len(patches))
	for _, p := range patches {
		out = append(out, p.Filename)
	}
	sort.Strings(out)
	return out
}

func anyDeleted(patches []diffengine.UnifiedPatch) bool {
	for _, p := range patches {
		if p.IsDeleted {
			return true
		}
	}
	return false
}

func countNew(patches []diffengine.UnifiedPatch) int {
	n := 0
	for _, p := range patches {
		if p.IsNew {
			n++
		}
	}
	return n
}

func defaultStateDir(root string) string {
	return root + "/.forge/patches"
}

func statusFor(d gate.Decision) audit.Status {
	if d.Action == gate.ActionReject {
		return audit.StatusFailure
	}
	if d.Action == gate.ActionManualReview || d.Action == gate.ActionEscalate {
		return audit.StatusWarning
	}
	return audit.StatusSuccess
}

func statusForPlan(p dryrun.DryRunPlan) audit.Status {
	if p.Success {
		return audit.StatusSuccess
	}
	return audit.StatusWarning
}
