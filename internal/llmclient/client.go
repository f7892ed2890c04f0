// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llmclient defines the backend abstraction every agent role
// calls through, plus two concrete adapters (OpenAI-compatible,
// Ollama-compatible) and a deterministic fake for tests.
package llmclient

import "context"

// GenerationParams configures one completion call. Nil fields take the
// backend's own default.
type GenerationParams struct {
	Temperature *float32
	TopK        *int
	TopP        *float32
	MaxTokens   *int
	Stop        []string
}

// Client is the single interface every agent role and the orchestrator
// calls through; backends are interchangeable behind it.
type Client interface {
	Generate(ctx context.Context, system, user string, params GenerationParams) (string, error)
}

// DefaultParams pins a low temperature, favoring deterministic,
// schema-conformant output over creative variation.
func DefaultParams() GenerationParams {
	temp := float32(0.3)
	return GenerationParams{Temperature: &temp}
}
