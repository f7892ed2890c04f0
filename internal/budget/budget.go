// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package budget estimates prompt size in tokens and caps it to fit a
// backend model's context window, truncating or windowing content that
// runs over.
package budget

import "strings"

// Strategy selects how truncateToFit drops content.
type Strategy string

const (
	StrategyStart  Strategy = "start"
	StrategyEnd    Strategy = "end"
	StrategyMiddle Strategy = "middle"
)

// ModelCap tabulates the total-token ceiling for a backend model.
var ModelCap = map[string]int{
	"gpt-4o":      128000,
	"gpt-4o-mini": 128000,
	"llama3":      8192,
	"llama3.1":    128000,
	"mistral":     32768,
}

const defaultCap = 8192
const safetyFraction = 0.80
const outputReservationFraction = 0.20

// EstimateTokens returns the average of word-based and char-based
// heuristics: 1.3 tokens/word, 0.25 tokens/char.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	chars := len(text)
	wordEstimate := float64(words) * 1.3
	charEstimate := float64(chars) * 0.25
	return int((wordEstimate + charEstimate) / 2)
}

// CapFor resolves the total-token cap for a model, falling back to the
// package default when the model is unrecognized.
func CapFor(model string) int {
	if modelCap, ok := ModelCap[model]; ok {
		return modelCap
	}
	return defaultCap
}

// CheckResult is the outcome of CheckBudget.
type CheckResult struct {
	InputTokens    int
	OutputReserved int
	BudgetCeiling  int
	Remaining      int
	Pass           bool
}

// CheckBudget evaluates whether system+user+context prompt text fits
// within the safety-fraction ceiling of the model's cap.
func CheckBudget(model, system, user, context string) CheckResult {
	modelCap := CapFor(model)
	ceiling := int(float64(modelCap) * safetyFraction)
	outputReserved := int(float64(modelCap) * outputReservationFraction)

	input := EstimateTokens(system) + EstimateTokens(user) + EstimateTokens(context)
	remaining := ceiling - input - outputReserved

	return CheckResult{
		InputTokens:    input,
		OutputReserved: outputReserved,
		BudgetCeiling:  ceiling,
		Remaining:      remaining,
		Pass:           remaining >= 0,
	}
}

// TruncateToFit iteratively drops lines (up to 20 iterations) from text
// until it fits within capTokens by the EstimateTokens heuristic; failing
// that, it hard-truncates by character count.
func TruncateToFit(text string, capTokens int, strategy Strategy) string {
	if EstimateTokens(text) <= capTokens {
		return text
	}

	lines := strings.Split(text, "\n")
	for i := 0; i < 20 && EstimateTokens(strings.Join(lines, "\n")) > capTokens && len(lines) > 1; i++ {
		lines = dropOneRound(lines, strategy)
	}

	result := strings.Join(lines, "\n")
	if EstimateTokens(result) <= capTokens {
		return result
	}

	// Character-count fallback: roughly 4 chars/token.
	maxChars := capTokens * 4
	if maxChars >= len(result) {
		return result
	}
	switch strategy {
	case StrategyStart:
		return result[len(result)-maxChars:]
	case StrategyMiddle:
		half := maxChars / 2
		return result[:half] + "\n...[truncated]...\n" + result[len(result)-half:]
	default: // StrategyEnd
		return result[:maxChars]
	}
}

func dropOneRound(lines []string, strategy Strategy) []string {
	n := len(lines) / 10
	if n < 1 {
		n = 1
	}
	if n >= len(lines) {
		n = len(lines) - 1
	}
	switch strategy {
	case StrategyStart:
		return lines[n:]
	case StrategyMiddle:
		mid := len(lines) / 2
		lo, hi := mid-n/2, mid+n/2
		if lo < 0 {
			lo = 0
		}
		if hi > len(lines) {
			hi = len(lines)
		}
		out := make([]string, 0, len(lines)-(hi-lo))
		out = append(out, lines[:lo]...)
		out = append(out, lines[hi:]...)
		return out
	default: // StrategyEnd
		return lines[:len(lines)-n]
	}
}

// OptimizeLogSnippet builds a head+omission-marker+tail window for a log,
// applying middle-strategy truncation if it is still over budget.
func OptimizeLogSnippet(text string, capTokens int) string {
	if EstimateTokens(text) <= capTokens {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= 150 {
		return TruncateToFit(text, capTokens, StrategyMiddle)
	}
	head := lines[:100]
	tail := lines[len(lines)-50:]
	windowed := strings.Join(head, "\n") + "\n...[snippet truncated]...\n" + strings.Join(tail, "\n")
	if EstimateTokens(windowed) <= capTokens {
		return windowed
	}
	return TruncateToFit(windowed, capTokens, StrategyMiddle)
}
