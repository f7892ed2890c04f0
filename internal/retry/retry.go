// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retry wraps a backend call with exponential backoff and
// schema-violation-driven re-prompting.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/forgecd/forge-agent/internal/schema"
)

// Policy configures the retry loop. DefaultPolicy supplies 3 attempts,
// 1s initial backoff, factor 2, 10s cap and a 30s per-attempt timeout.
// Call uses the fields as given; zero fields are not replaced by these
// defaults.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	AttemptTimeout  time.Duration
}

// DefaultPolicy returns the default retry parameters.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		Multiplier:      2,
		MaxInterval:     10 * time.Second,
		AttemptTimeout:  30 * time.Second,
	}
}

// Outcome carries what happened across a successful retry loop; the
// orchestrator records RetriesUsed per role in agent.Summary.RetriesUsed.
type Outcome[T any] struct {
	Value       T
	RetriesUsed int
}

// Call invokes callLLM, validates its output against target via validateFn,
// and retries with exponential backoff when the response fails schema
// validation. On a schema failure, correction is appended to the next
// call's prompt via promptWithCorrection. On a transport error, the
// backend is simply retried with no change to the prompt.
//
// callLLM receives the correction text to append to the prompt this
// attempt ("" on the first attempt) and returns the raw response text.
func Call(
	ctx context.Context,
	policy Policy,
	callLLM func(ctx context.Context, correction string) (string, error),
	validateFn func(raw string) schema.Result,
) (Outcome[string], error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.Multiplier = policy.Multiplier
	bo.MaxInterval = policy.MaxInterval

	attempts := 0
	correction := ""

	op := func() (string, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		defer cancel()

		raw, err := callLLM(attemptCtx, correction)
		if err != nil {
			return "", err // transport failure: backoff.Retry retries unchanged
		}

		result := validateFn(raw)
		if !result.Valid {
			correction = schema.CorrectionDirective(result.Violations)
			return "", fmt.Errorf("schema violation: %s", correction)
		}
		return raw, nil
	}

	value, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
	)
	if err != nil {
		return Outcome[string]{}, err
	}
	return Outcome[string]{Value: value, RetriesUsed: attempts - 1}, nil
}
