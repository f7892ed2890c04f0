// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dryrun

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgecd/forge-agent/internal/diffengine"
	"github.com/forgecd/forge-agent/internal/patchvalidate"
)

// largeChangeThreshold is the line-count above which a successful step is
// downgraded to a warning.
const largeChangeThreshold = 100

// Options toggles the simulator's optional passes.
type Options struct {
	ValidateSyntax      bool
	DetectConflicts     bool
	EstimatePerformance bool
}

// DefaultOptions enables every optional pass.
func DefaultOptions() Options {
	return Options{ValidateSyntax: true, DetectConflicts: true, EstimatePerformance: true}
}

// Simulate produces a DryRunPlan for applying patches against root
// without writing anything. If ctx is cancelled mid-simulation, the
// accumulated steps so far are returned with Cancelled set.
func Simulate(ctx context.Context, root string, patches []diffengine.UnifiedPatch, opts Options) DryRunPlan {
	plan := DryRunPlan{}
	index := 0

	for _, patch := range patches {
		select {
		case <-ctx.Done():
			plan.Cancelled = true
			finalize(&plan)
			return plan
		default:
		}

		step := simulateOne(root, patch, &index)
		plan.Steps = append(plan.Steps, step)
		plan.Summary.FilesAffected++
		plan.Summary.LinesChanged += linesChanged(patch)

		if opts.ValidateSyntax && step.Status != StatusError {
			plan.Steps = append(plan.Steps, validateSyntaxStep(root, patch, &index))
		}
	}

	if len(patches) > 0 && opts.DetectConflicts {
		plan.Steps = append(plan.Steps, detectConflicts(patches, &index)...)
	}
	if len(patches) > 0 && opts.EstimatePerformance {
		plan.Steps = append(plan.Steps, estimatePerformance(patches, &index))
	}

	finalize(&plan)
	return plan
}

func simulateOne(root string, patch diffengine.UnifiedPatch, index *int) PlanStep {
	fullPath := filepath.Join(root, patch.Filename)
	_, statErr := os.Stat(fullPath)
	exists := statErr == nil

	step := PlanStep{Index: nextIndex(index), Target: patch.Filename, Details: map[string]any{}}

	switch {
	case patch.IsNew:
		step.Action = ActionCreate
		if exists {
			step.Status = StatusError
			step.Message = "target already exists"
			return step
		}
		step.Status = StatusSuccess
		step.Message = "file will be created"

	case patch.IsDeleted:
		step.Action = ActionDelete
		if !exists {
			step.Status = StatusError
			step.Message = "target does not exist"
			return step
		}
		step.Status = StatusSuccess
		step.Message = "file will be deleted"

	default:
		step.Action = ActionModify
		if !exists {
			step.Status = StatusError
			step.Message = "target does not exist"
			return step
		}
		original, err := os.ReadFile(fullPath)
		if err != nil {
			step.Status = StatusError
			step.Message = fmt.Sprintf("reading target: %v", err)
			return step
		}
		if _, err := diffengine.ApplyPatch(string(original), patch); err != nil {
			step.Status = StatusError
			step.Message = fmt.Sprintf("patch does not apply: %v", err)
			return step
		}
		step.Status = StatusSuccess
		step.Message = "patch applies cleanly"
	}

	if linesChanged(patch) > largeChangeThreshold && step.Status == StatusSuccess {
		step.Status = StatusWarning
		step.Message += " (large change, downgraded to warning)"
	}
	return step
}

func validateSyntaxStep(root string, patch diffengine.UnifiedPatch, index *int) PlanStep {
	step := PlanStep{Index: nextIndex(index), Action: ActionValidateSyntax, Target: patch.Filename, Status: StatusSuccess}

	if patch.IsDeleted {
		step.Message = "no post-image to validate"
		return step
	}

	fullPath := filepath.Join(root, patch.Filename)
	var original string
	if data, err := os.ReadFile(fullPath); err == nil {
		original = string(data)
	}
	postImage, err := diffengine.ApplyPatch(original, patch)
	if err != nil {
		step.Status = StatusError
		step.Message = fmt.Sprintf("could not build post-image: %v", err)
		return step
	}

	report := patchvalidate.ValidateFile(patch.Filename, postImage)
	if !report.Valid() {
		step.Status = StatusError
		step.Message = fmt.Sprintf("%d syntax error(s) in post-image", len(report.Errors))
		return step
	}
	if len(report.Warnings) > 0 {
		step.Status = StatusWarning
		step.Message = fmt.Sprintf("%d warning(s) in post-image", len(report.Warnings))
		return step
	}
	step.Message = "post-image is syntactically valid"
	return step
}

func detectConflicts(patches []diffengine.UnifiedPatch, index *int) []PlanStep {
	byTarget := map[string][]diffengine.UnifiedPatch{}
	for _, p := range patches {
		byTarget[p.Filename] = append(byTarget[p.Filename], p)
	}

	var steps []PlanStep
	for target, group := range byTarget {
		step := PlanStep{Index: nextIndex(index), Action: ActionCheckConflicts, Target: target, Status: StatusSuccess}
		if len(group) > 1 {
			step.Status = StatusError
			step.Message = fmt.Sprintf("%s is targeted by %d patches", target, len(group))
			deleted, modified := false, false
			for _, p := range group {
				if p.IsDeleted {
					deleted = true
				} else if !p.IsNew {
					modified = true
				}
			}
			if deleted && modified {
				step.Message += " (simultaneous delete and modify)"
			}
		} else {
			step.Message = "no conflicting patches"
		}
		steps = append(steps, step)
	}
	return steps
}

func estimatePerformance(patches []diffengine.UnifiedPatch, index *int) PlanStep {
	total := 0
	for _, p := range patches {
		total += linesChanged(p)
	}
	step := PlanStep{
		Index:   nextIndex(index),
		Action:  ActionEstimatePerformance,
		Status:  StatusSuccess,
		Message: fmt.Sprintf("estimated apply time scales with %d changed lines across %d files", total, len(patches)),
		Details: map[string]any{"linesChanged": total, "fileCount": len(patches)},
	}
	return step
}

func linesChanged(patch diffengine.UnifiedPatch) int {
	total := 0
	for _, h := range patch.Hunks {
		for _, l := range h.Lines {
			if l.Kind != diffengine.LineContext {
				total++
			}
		}
	}
	return total
}

func nextIndex(index *int) int {
	i := *index
	*index++
	return i
}

func finalize(plan *DryRunPlan) {
	plan.Summary.Totals = len(plan.Steps)
	success := true
	for _, s := range plan.Steps {
		if s.Status == StatusError {
			success = false
			break
		}
	}
	plan.Success = success && !plan.Cancelled
	plan.Impact = classifyImpact(plan.Summary)
	plan.RollbackPlan = synthesizeRollbackPlan(plan.Summary.FilesAffected)
}

func classifyImpact(s Summary) Impact {
	switch {
	case s.FilesAffected > 10 || s.LinesChanged > 300:
		return ImpactHigh
	case s.FilesAffected > 3 || s.LinesChanged > 50:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

func synthesizeRollbackPlan(filesAffected int) string {
	return fmt.Sprintf(
		"reverse the %d patch(es) in the opposite order they were applied; recorded backups enable full restoration",
		filesAffected,
	)
}
