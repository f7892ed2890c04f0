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

	"github.com/forgecd/forge-agent/internal/agent"
	"github.com/forgecd/forge-agent/internal/forgeerr"
	"github.com/forgecd/forge-agent/internal/pipeline"
)

var (
	analyzeLogPath      string
	analyzeWorkflowPath string
	analyzeChangesPath  string
	analyzeRoot         string
	analyzePretty       bool

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Run redaction, classification, and fix synthesis through the gate decision",
		Long: `analyze runs the pipeline from the raw log through the confidence
gate's decision without touching the working tree. Use apply once the
proposed fix looks right.`,
		RunE: runAnalyze,
	}
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeLogPath, "log", "", "path to the failed job's log (required)")
	analyzeCmd.Flags().StringVar(&analyzeWorkflowPath, "workflow", "", "path to the workflow definition (required)")
	analyzeCmd.Flags().StringVar(&analyzeChangesPath, "changes", "", "path to a JSON array of changed files ({Path,Status,Additions,Deletions})")
	analyzeCmd.Flags().StringVar(&analyzeRoot, "root", "", "working-tree root, for blast-radius path analysis")
	analyzeCmd.Flags().BoolVar(&analyzePretty, "pretty", false, "print a human summary instead of JSON")
	_ = analyzeCmd.MarkFlagRequired("log")
	_ = analyzeCmd.MarkFlagRequired("workflow")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	in, err := buildInput(analyzeLogPath, analyzeWorkflowPath, analyzeChangesPath, analyzeRoot)
	if err != nil {
		return err
	}

	cfg := resolveConfig()
	driver, journal, err := newDriver(cfg)
	if err != nil {
		return err
	}
	defer journal.Close()

	result, err := driver.Run(cmd.Context(), in, pipeline.Options{})
	if err != nil {
		return forgeerr.Wrap(forgeerr.ErrBackendUnavailable, err.Error(), "check backend connectivity and retry")
	}

	if analyzePretty {
		printPretty(result)
		return exitForResult(result)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	return exitForResult(result)
}

// buildInput assembles a pipeline.Input from CLI-supplied file paths,
// shared by analyze and apply.
func buildInput(logPath, workflowPath, changesPath, root string) (pipeline.Input, error) {
	rawLog, err := os.ReadFile(logPath)
	if err != nil {
		return pipeline.Input{}, forgeerr.Wrap(forgeerr.ErrInputInvalid, err.Error(), "check --log points to a readable file")
	}
	rawWorkflow, err := os.ReadFile(workflowPath)
	if err != nil {
		return pipeline.Input{}, forgeerr.Wrap(forgeerr.ErrInputInvalid, err.Error(), "check --workflow points to a readable file")
	}

	var changes []agent.ChangedFile
	if changesPath != "" {
		data, err := os.ReadFile(changesPath)
		if err != nil {
			return pipeline.Input{}, forgeerr.Wrap(forgeerr.ErrInputInvalid, err.Error(), "check --changes points to a readable file")
		}
		if err := json.Unmarshal(data, &changes); err != nil {
			return pipeline.Input{}, forgeerr.Wrap(forgeerr.ErrInputInvalid, err.Error(), "check --changes is a JSON array of changed files")
		}
	}

	return pipeline.Input{
		RawLog:   string(rawLog),
		Workflow: pipeline.WorkflowArtifact{Raw: string(rawWorkflow)},
		Changes:  pipeline.ChangeSet{Files: changes},
		Root:     root,
	}, nil
}

// exitForResult maps a terminal pipeline.Result into a cobra-visible
// error when the run didn't complete cleanly, so main's exit-code
// mapping still applies without every command re-deriving it.
func exitForResult(result *pipeline.Result) error {
	if !result.Partial {
		return nil
	}
	if result.FailureKind == nil {
		return fmt.Errorf("pipeline stopped early: %s", result.Message)
	}
	return forgeerr.Wrap(result.FailureKind, result.Message, "inspect the result for partial output before retrying")
}

func printPretty(result *pipeline.Result) {
	fmt.Printf("run:      %s\n", result.RunID)
	if result.Analysis != nil {
		fmt.Printf("failure:  %s (%s)\n", result.Analysis.Primary.Type, result.Analysis.Primary.Severity)
		fmt.Printf("score:    %.2f (%s)\n", result.Analysis.Confidence.Score, result.Analysis.Confidence.SuggestedAction)
	}
	if result.Summary != nil {
		fmt.Printf("summary:  %s\n", result.Summary.Title)
	}
	for _, p := range result.Patches {
		fmt.Printf("patch:    %s\n", p.Filename)
	}
	if result.Decision != nil {
		fmt.Printf("decision: %s — %s\n", result.Decision.Action, result.Decision.Reasoning)
	}
	if result.Partial {
		fmt.Printf("partial:  %s\n", result.Message)
	}
}
