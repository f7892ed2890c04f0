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
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgecd/forge-agent/internal/audit"
	"github.com/forgecd/forge-agent/internal/config"
	"github.com/forgecd/forge-agent/internal/forgeerr"
	"github.com/forgecd/forge-agent/internal/llmclient"
	"github.com/forgecd/forge-agent/internal/logging"
	"github.com/forgecd/forge-agent/internal/pipeline"
	"github.com/forgecd/forge-agent/internal/telemetry"
)

// Exit codes distinguish the kind of failure for scripted callers.
const (
	exitOK                = 0
	exitConfigError       = 2
	exitRetrievalOrInput  = 3
	exitApplicatorFailure = 4
)

var (
	backendFlag               string
	apiKeyEnvFlag             string
	logDirFlag                string
	autoApplyThresholdFlag    float64
	manualReviewThresholdFlag float64
	escalateThresholdFlag     float64
	aggressiveRedactionFlag   bool
	tracingFlag               bool

	shutdownTelemetry func(context.Context) error

	rootCmd = &cobra.Command{
		Use:   "forge",
		Short: "Diagnose CI failures and propose or apply fixes",
		Long: `forge inspects a failed CI run's log and workflow definition,
classifies the failure, drafts a fix with a panel of LLM-backed experts,
and — once confidence clears the configured gate — applies it with a
transactional rollback path.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{ServiceName: "forge", Enabled: tracingFlag})
			if err != nil {
				return err
			}
			shutdownTelemetry = shutdown
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if shutdownTelemetry == nil {
				return nil
			}
			return shutdownTelemetry(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "LLM backend: openai or ollama (overrides config)")
	rootCmd.PersistentFlags().StringVar(&apiKeyEnvFlag, "api-key-env", "", "environment variable holding the backend API key")
	rootCmd.PersistentFlags().StringVar(&logDirFlag, "log-dir", "", "directory for the audit journal and file logs")
	rootCmd.PersistentFlags().Float64Var(&autoApplyThresholdFlag, "auto-apply-threshold", 0, "confidence score at or above which the gate auto-applies")
	rootCmd.PersistentFlags().Float64Var(&manualReviewThresholdFlag, "manual-review-threshold", 0, "confidence score at or above which the gate requests manual review")
	rootCmd.PersistentFlags().Float64Var(&escalateThresholdFlag, "escalate-threshold", 0, "confidence score at or above which the gate escalates; below it the gate rejects")
	rootCmd.PersistentFlags().BoolVar(&aggressiveRedactionFlag, "aggressive-redaction", false, "redact secrets more conservatively, at the cost of log readability")
	rootCmd.PersistentFlags().BoolVar(&tracingFlag, "tracing", false, "emit OpenTelemetry spans to stderr")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "forge:", err)
		os.Exit(exitCodeFor(err))
	}
}

// resolveConfig loads the hierarchical configuration and layers the
// global flags over it.
func resolveConfig() config.Config {
	cfg, err := config.Load("")
	if err != nil {
		cfg = config.Default()
	}
	if backendFlag != "" {
		cfg.Backend.Type = backendFlag
	}
	if apiKeyEnvFlag != "" {
		cfg.Backend.APIKeyEnv = apiKeyEnvFlag
	}
	if logDirFlag != "" {
		cfg.LogDir = logDirFlag
	}
	if autoApplyThresholdFlag > 0 {
		cfg.Gate.AutoApply = autoApplyThresholdFlag
	}
	if manualReviewThresholdFlag > 0 {
		cfg.Gate.ManualReview = manualReviewThresholdFlag
	}
	if escalateThresholdFlag > 0 {
		cfg.Gate.Escalate = escalateThresholdFlag
	}
	if aggressiveRedactionFlag {
		cfg.AggressiveRedaction = true
	}
	return cfg
}

// newDriver builds the pipeline driver's full collaborator graph for one
// CLI invocation: a real LLM client for the resolved backend, the
// process-singleton audit journal, and a logger writing to the
// configured log directory.
func newDriver(cfg config.Config) (*pipeline.Driver, *audit.Journal, error) {
	logger := logging.New(logging.Config{LogDir: cfg.LogDir, Service: "forge"})

	client, err := llmclient.New(cfg.Backend, logger.Slog())
	if err != nil {
		return nil, nil, forgeerr.Wrap(forgeerr.ErrBackendUnavailable, err.Error(), "check --backend and --api-key-env")
	}

	journal, err := audit.Open(cfg.LogDir)
	if err != nil {
		return nil, nil, forgeerr.Wrap(forgeerr.ErrInputInvalid, err.Error(), "check --log-dir is writable")
	}

	return pipeline.New(cfg, client, journal, logger.Slog()), journal, nil
}

// exitCodeFor maps a forgeerr sentinel kind to the process's exit-code
// taxonomy.
func exitCodeFor(err error) int {
	var pe *forgeerr.PipelineError
	kind := err
	if errors.As(err, &pe) {
		kind = pe.Kind
	}
	switch {
	case errors.Is(kind, forgeerr.ErrApplyFailed), errors.Is(kind, forgeerr.ErrApplyConflict), errors.Is(kind, forgeerr.ErrConcurrentApplication):
		return exitApplicatorFailure
	case errors.Is(kind, forgeerr.ErrInputInvalid), errors.Is(kind, forgeerr.ErrNoFailureDetected), errors.Is(kind, forgeerr.ErrBackendUnavailable),
		errors.Is(kind, forgeerr.ErrSchemaViolation), errors.Is(kind, forgeerr.ErrBudgetExceeded), errors.Is(kind, forgeerr.ErrValidationFailed),
		errors.Is(kind, forgeerr.ErrTimedOut), errors.Is(kind, forgeerr.ErrCancelled):
		return exitRetrievalOrInput
	default:
		return exitConfigError
	}
}
