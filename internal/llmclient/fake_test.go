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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClientReturnsQueuedResponsesInOrder(t *testing.T) {
	fake := NewFakeClient("first", "second")

	r1, err := fake.Generate(context.Background(), "sys", "u1", GenerationParams{})
	require.NoError(t, err)
	r2, err := fake.Generate(context.Background(), "sys", "u2", GenerationParams{})
	require.NoError(t, err)

	assert.Equal(t, "first", r1)
	assert.Equal(t, "second", r2)
	assert.Len(t, fake.Calls(), 2)
}

func TestFakeClientRepeatsLastResponseWhenExhausted(t *testing.T) {
	fake := NewFakeClient("only")
	fake.Generate(context.Background(), "s", "u", GenerationParams{})
	r, _ := fake.Generate(context.Background(), "s", "u", GenerationParams{})
	assert.Equal(t, "only", r)
}

func TestFakeClientSurfacesConfiguredError(t *testing.T) {
	fake := NewFakeClient().WithError(errors.New("boom"))
	_, err := fake.Generate(context.Background(), "s", "u", GenerationParams{})
	assert.Error(t, err)
}
