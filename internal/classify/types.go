// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classify scans a pruned CI log line by line against an ordered
// catalogue of rules and emits the resulting FailureEvent sequence.
//
// Catalogue order is policy, not accident: the first rule that matches a
// line wins for that line. Reordering the default catalogue changes
// classification behavior and must be treated as such.
package classify

import "regexp"

// FailureType enumerates the failure categories the classifier can
// assign to a log line.
type FailureType string

const (
	TypeAuth    FailureType = "auth"
	TypeBuild   FailureType = "build"
	TypeTest    FailureType = "test"
	TypeLint    FailureType = "lint"
	TypeDeploy  FailureType = "deploy"
	TypeNetwork FailureType = "network"
	TypeTimeout FailureType = "timeout"
	TypeEnv     FailureType = "env"
	TypeUnknown FailureType = "unknown"
)

// Severity enumerates event severities.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// FailureEvent is one classified line (or block) from the log.
type FailureEvent struct {
	Type       FailureType
	Severity   Severity
	Message    string
	LineNumber int
	Step       string
	Context    map[string]string
	StackTrace string
	RuleID     string
	Confidence float64 // the matched rule's confidenceModifier
}

// Rule is one entry in the catalogue. ContextExtractor, if set, derives
// Context entries from the matched line and its surrounding window.
type Rule struct {
	ID                 string
	Name               string
	Pattern            *regexp.Regexp
	FailureType        FailureType
	Severity           Severity
	ConfidenceModifier float64
	ContextExtractor   func(line string, match []string) map[string]string
}

// ruleFile is the on-disk YAML shape for an override/extension catalogue,
// decoded with gopkg.in/yaml.v3.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID                 string  `yaml:"id"`
	Name               string  `yaml:"name"`
	Pattern            string  `yaml:"pattern"`
	FailureType        string  `yaml:"failureType"`
	Severity           string  `yaml:"severity"`
	ConfidenceModifier float64 `yaml:"confidenceModifier"`
}
