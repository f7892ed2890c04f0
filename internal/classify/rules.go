// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import "regexp"

// DefaultRules is the built-in catalogue, in the fixed order the engine
// evaluates it. Extend or override via LoadRules.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID: "auth_npm_403", Name: "npm registry 403",
			Pattern:            regexp.MustCompile(`(?i)npm ERR! code E403|403 Forbidden.*registry`),
			FailureType:        TypeAuth, Severity: SeverityError, ConfidenceModifier: 0.92,
		},
		{
			ID: "auth_container_registry_denied", Name: "container registry permission denied",
			Pattern:            regexp.MustCompile(`(?i)denied: denied|unauthorized: authentication required`),
			FailureType:        TypeAuth, Severity: SeverityError, ConfidenceModifier: 0.92,
		},
		{
			ID: "auth_generic_401", Name: "generic 401/unauthorized",
			Pattern:            regexp.MustCompile(`(?i)\b401\b.*unauthorized|authentication failed`),
			FailureType:        TypeAuth, Severity: SeverityError, ConfidenceModifier: 0.85,
		},
		{
			ID: "env_secret_not_defined", Name: "secret not defined",
			Pattern:            regexp.MustCompile(`(?i)secret '.*' is not defined|environment variable .* is not set`),
			FailureType:        TypeEnv, Severity: SeverityError, ConfidenceModifier: 0.88,
		},
		{
			ID: "build_eol_runtime", Name: "runtime API unavailable on old version",
			Pattern:            regexp.MustCompile(`(?i)is not available in Node \d+|is not supported in Python \d+\.\d+`),
			FailureType:        TypeBuild, Severity: SeverityError, ConfidenceModifier: 0.82,
		},
		{
			ID: "build_compile_error", Name: "compiler error",
			Pattern:            regexp.MustCompile(`(?i)error TS\d+|compilation failed|SyntaxError:|cannot find module`),
			FailureType:        TypeBuild, Severity: SeverityError, ConfidenceModifier: 0.80,
		},
		{
			ID: "test_assertion_failed", Name: "test assertion failure",
			Pattern:            regexp.MustCompile(`(?i)AssertionError|expect\(.*\)\.to|FAIL\s+\S+\.test\.|\d+ (failing|failed)`),
			FailureType:        TypeTest, Severity: SeverityError, ConfidenceModifier: 0.78,
		},
		{
			ID: "lint_violation", Name: "lint rule violation",
			Pattern:            regexp.MustCompile(`(?i)eslint|lint error|\d+ problems? \(\d+ errors?`),
			FailureType:        TypeLint, Severity: SeverityWarning, ConfidenceModifier: 0.70,
		},
		{
			ID: "deploy_failed", Name: "deploy step failed",
			Pattern:            regexp.MustCompile(`(?i)deploy(ment)? failed|release failed|rollback triggered`),
			FailureType:        TypeDeploy, Severity: SeverityCritical, ConfidenceModifier: 0.85,
		},
		{
			ID: "network_connection_refused", Name: "network connectivity failure",
			Pattern:            regexp.MustCompile(`(?i)connection refused|ETIMEDOUT|ENOTFOUND|dial tcp.*: connect:`),
			FailureType:        TypeNetwork, Severity: SeverityError, ConfidenceModifier: 0.75,
		},
		{
			ID: "timeout_step", Name: "step exceeded its timeout",
			Pattern:            regexp.MustCompile(`(?i)the job running on runner .* has exceeded|context deadline exceeded|timed out after`),
			FailureType:        TypeTimeout, Severity: SeverityError, ConfidenceModifier: 0.80,
		},
		{
			ID: "generic_process_exit", Name: "generic non-zero process exit",
			Pattern:            regexp.MustCompile(`(?i)exited with code [1-9]\d*|##\[error\]Process completed with exit code [1-9]`),
			FailureType:        TypeUnknown, Severity: SeverityError, ConfidenceModifier: 0.50,
		},
	}
}
