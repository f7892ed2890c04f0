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

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// stepDelimiter recognizes the handful of step-header shapes the engine
// scans backwards for when resolving FailureEvent.Step.
var stepDelimiter = regexp.MustCompile(`^(##\[group\]Run (.+)|##\[item\](.+)|\[(.+)\]|([\w .\-]+):)\s*$`)

var stackTraceHint = regexp.MustCompile(`(?i)\bat \S+|Error:|stack`)

// Engine scans a log against an ordered rule catalogue.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewEngine builds an Engine from the given catalogue. Pass DefaultRules()
// for the built-in set.
func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the current catalogue, in evaluation order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// AddRule appends a rule to the end of the catalogue.
func (e *Engine) AddRule(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, r)
}

// LoadRules extends the catalogue from a YAML file, appending after the
// existing rules in file order. Modeled on this codebase's
// LoadRules/LoadDefaultRules split for a YAML-configurable rule catalogue,
// decoded here via gopkg.in/yaml.v3 rather than a hand-rolled line scanner.
func (e *Engine) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rule file %s: %w", path, err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("parsing rule file %s: %w", path, err)
	}
	for _, spec := range rf.Rules {
		pattern, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: invalid pattern: %w", spec.ID, err)
		}
		e.AddRule(Rule{
			ID:                 spec.ID,
			Name:               spec.Name,
			Pattern:            pattern,
			FailureType:        FailureType(spec.FailureType),
			Severity:           Severity(spec.Severity),
			ConfidenceModifier: spec.ConfidenceModifier,
		})
	}
	return nil
}

// Evaluate scans text line by line. The first rule matching a line wins
// for that line; an empty return means the engine found no classifiable
// failure, which the caller must treat as fatal to the run.
func (e *Engine) Evaluate(text string) []FailureEvent {
	rules := e.Rules()
	lines := strings.Split(text, "\n")

	var events []FailureEvent
	for i, line := range lines {
		for _, rule := range rules {
			match := rule.Pattern.FindStringSubmatch(line)
			if match == nil {
				continue
			}

			event := FailureEvent{
				Type:       rule.FailureType,
				Severity:   rule.Severity,
				Message:    strings.TrimSpace(line),
				LineNumber: i + 1,
				RuleID:     rule.ID,
				Confidence: rule.ConfidenceModifier,
				Step:       resolveStep(lines, i),
				Context:    map[string]string{},
			}
			if rule.ContextExtractor != nil {
				for k, v := range rule.ContextExtractor(line, match) {
					event.Context[k] = v
				}
			}
			if trace := extractStackTrace(lines, i); trace != "" {
				event.StackTrace = trace
			}

			events = append(events, event)
			break // first-rule-wins: stop scanning rules for this line
		}
	}
	return events
}

// resolveStep scans up to 20 preceding lines for a recognised step-header
// shape, returning "unknown" if none is found.
func resolveStep(lines []string, idx int) string {
	start := idx - 20
	if start < 0 {
		start = 0
	}
	for i := idx - 1; i >= start; i-- {
		m := stepDelimiter.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		for _, group := range m[2:] {
			if group != "" {
				return strings.TrimSpace(group)
			}
		}
	}
	return "unknown"
}

// extractStackTrace inspects a 5-before/15-after window for stack-trace
// shaped content and returns it joined, or "" if the window doesn't
// resemble a trace.
func extractStackTrace(lines []string, idx int) string {
	start := idx - 5
	if start < 0 {
		start = 0
	}
	end := idx + 15
	if end >= len(lines) {
		end = len(lines) - 1
	}

	window := lines[start : end+1]
	hits := 0
	for _, l := range window {
		if stackTraceHint.MatchString(l) {
			hits++
		}
	}
	if hits < 2 {
		return ""
	}
	return strings.Join(window, "\n")
}
