// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads hierarchical JSON configuration: an explicit
// path, then a user-home config, then a project-local config, then a
// workflow-directory config, then built-in defaults — first existing
// file wins for each key.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// GateThresholds mirrors the confidence gate's configurable cutoffs.
type GateThresholds struct {
	AutoApply                 float64 `json:"autoApplyThreshold"`
	ManualReview              float64 `json:"manualReviewThreshold"`
	Escalate                  float64 `json:"escalateThreshold"`
	AllowAutoApplyOnCritical  bool    `json:"allowAutoApplyOnCritical"`
	RequiresSecurityReview    bool    `json:"requiresSecurityReview"`
	RequiresPerformanceReview bool    `json:"requiresPerformanceReview"`
}

// BackendConfig selects and configures the LLM backend.
type BackendConfig struct {
	Type      string `json:"type"`    // "openai" or "ollama"
	BaseURL   string `json:"baseUrl"`
	Model     string `json:"model"`
	APIKeyEnv string `json:"apiKeyEnv"`
}

// Config is the fully resolved configuration consumed by the pipeline driver.
type Config struct {
	LogDir              string         `json:"logDir"`
	AggressiveRedaction bool           `json:"aggressiveRedaction"`
	LocalValidationOnly bool           `json:"localValidationOnly"`
	TokenBudgetCap      int            `json:"tokenBudgetCap"`
	Gate                GateThresholds `json:"gate"`
	Backend             BackendConfig  `json:"backend"`
	HeadLines           int            `json:"pruneHeadLines"`
	TailLines           int            `json:"pruneTailLines"`
}

// Default returns the built-in configuration, the last tier in the hierarchy.
func Default() Config {
	return Config{
		LogDir:              "~/.forge",
		AggressiveRedaction: false,
		LocalValidationOnly: false,
		TokenBudgetCap:      8192,
		HeadLines:           100,
		TailLines:           500,
		Gate: GateThresholds{
			AutoApply:    0.9,
			ManualReview: 0.6,
			Escalate:     0.3,
		},
		Backend: BackendConfig{
			Type:      "ollama",
			BaseURL:   "http://localhost:11434",
			Model:     "llama3",
			APIKeyEnv: "FORGE_API_KEY",
		},
	}
}

var (
	global Config
	once   sync.Once
	loadMu sync.Mutex
)

// Load resolves the hierarchy once per process and caches the result in
// the package-level singleton, matching the once.Do pattern used
// throughout this codebase's other config loaders.
func Load(explicitPath string) (Config, error) {
	var err error
	once.Do(func() {
		global, err = resolve(explicitPath)
	})
	return global, err
}

// Reload bypasses the singleton cache and re-reads the configuration,
// for callers such as tests that want an explicit re-read.
func Reload(explicitPath string) (Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()
	cfg, err := resolve(explicitPath)
	if err == nil {
		global = cfg
	}
	return cfg, err
}

func resolve(explicitPath string) (Config, error) {
	cfg := Default()

	candidates := []string{}
	if explicitPath != "" {
		candidates = append(candidates, explicitPath)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".forge", "config.json"))
	}
	cwd, err := os.Getwd()
	if err == nil {
		candidates = append(candidates,
			filepath.Join(cwd, ".forge.json"),
			filepath.Join(cwd, ".github", "forge-config.json"),
		)
	}

	for _, path := range candidates {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, jsonErr)
		}
		break
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FORGE_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("FORGE_AGGRESSIVE_REDACTION"); v == "true" {
		cfg.AggressiveRedaction = true
	}
	if v := os.Getenv("FORGE_LOCAL_VALIDATION_ONLY"); v == "true" {
		cfg.LocalValidationOnly = true
	}
	if v := os.Getenv("FORGE_TOKEN_BUDGET_CAP"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.TokenBudgetCap = n
		}
	}
}
