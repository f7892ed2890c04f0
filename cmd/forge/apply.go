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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgecd/forge-agent/internal/apply"
	"github.com/forgecd/forge-agent/internal/forgeerr"
	"github.com/forgecd/forge-agent/internal/pipeline"
)

var (
	applyLogPath      string
	applyWorkflowPath string
	applyChangesPath  string
	applyRoot         string
	applyAuto         bool

	applyCmd = &cobra.Command{
		Use:   "apply",
		Short: "Run the full pipeline and write the fix to the working tree",
		Long: `apply runs analyze's sequence, then the dry-run simulator and the
transactional applicator. --auto overrides a manual-review verdict the
way an operator's explicit confirmation does; it never overrides a
reject.`,
		RunE: runApply,
	}
)

func init() {
	applyCmd.Flags().StringVar(&applyLogPath, "log", "", "path to the failed job's log (required)")
	applyCmd.Flags().StringVar(&applyWorkflowPath, "workflow", "", "path to the workflow definition (required)")
	applyCmd.Flags().StringVar(&applyChangesPath, "changes", "", "path to a JSON array of changed files ({Path,Status,Additions,Deletions})")
	applyCmd.Flags().StringVar(&applyRoot, "root", "", "working-tree root to write into (required)")
	applyCmd.Flags().BoolVar(&applyAuto, "auto", false, "apply even when the gate requests manual review")
	_ = applyCmd.MarkFlagRequired("log")
	_ = applyCmd.MarkFlagRequired("workflow")
	_ = applyCmd.MarkFlagRequired("root")
}

func runApply(cmd *cobra.Command, args []string) error {
	in, err := buildInput(applyLogPath, applyWorkflowPath, applyChangesPath, applyRoot)
	if err != nil {
		return err
	}

	cfg := resolveConfig()
	driver, journal, err := newDriver(cfg)
	if err != nil {
		return err
	}
	defer journal.Close()

	opts := pipeline.Options{
		DryRun:       true,
		Apply:        true,
		ApplyOptions: apply.Options{AutoApply: applyAuto, PreflightDryRun: true},
	}

	result, err := driver.Run(cmd.Context(), in, opts)
	if err != nil {
		return forgeerr.Wrap(forgeerr.ErrBackendUnavailable, err.Error(), "check backend connectivity and retry")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	if result.Application != nil {
		fmt.Fprintf(os.Stderr, "applied as %s (use `forge rollback --root %s --application-id %s` to revert)\n",
			result.Application.ID, applyRoot, result.Application.ID)
	}
	return exitForResult(result)
}
