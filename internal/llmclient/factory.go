// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llmclient

import (
	"fmt"
	"log/slog"

	"github.com/forgecd/forge-agent/internal/config"
)

// New builds a Client from a resolved backend configuration, dispatching
// on cfg.Type.
func New(cfg config.BackendConfig, logger *slog.Logger) (Client, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAIClient(cfg.APIKeyEnv, cfg.BaseURL, cfg.Model, logger)
	case "ollama":
		return NewOllamaClient(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
}
