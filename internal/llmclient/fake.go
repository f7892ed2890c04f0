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
	"context"
	"sync"
)

// FakeClient is a deterministic, scriptable Client for tests: each call
// to Generate pops the next queued response (or repeats the last one).
type FakeClient struct {
	mu        sync.Mutex
	responses []string
	calls     []FakeCall
	err       error
}

// FakeCall records one invocation, for assertions.
type FakeCall struct {
	System string
	User   string
	Params GenerationParams
}

// NewFakeClient returns a FakeClient that yields responses in order.
func NewFakeClient(responses ...string) *FakeClient {
	return &FakeClient{responses: responses}
}

// WithError makes every subsequent Generate call return err.
func (f *FakeClient) WithError(err error) *FakeClient {
	f.err = err
	return f
}

// Calls returns every recorded invocation, in order.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// Generate implements Client.
func (f *FakeClient) Generate(ctx context.Context, system, user string, params GenerationParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, FakeCall{System: system, User: user, Params: params})
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	idx := len(f.calls) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}
