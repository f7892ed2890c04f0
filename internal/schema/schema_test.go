// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONUnwrapsMarkdownFence(t *testing.T) {
	raw := "Here you go:\n```json\n{\"a\":1}\n```\n"
	assert.Equal(t, `{"a":1}`, ExtractJSON(raw))
}

func TestExtractJSONPassesThroughRawJSON(t *testing.T) {
	raw := `{"a":1}`
	assert.Equal(t, raw, ExtractJSON(raw))
}

func TestValidateAcceptsWellFormedFixGeneratorResponse(t *testing.T) {
	raw := `{"confidence":0.91,"fixFile":"x.yml","fixStartLine":3,"fixContent":"...","explanation":"adds token"}`
	var resp FixGeneratorResponse
	res := Validate(raw, &resp, ExtraChecksForFixGenerator)

	require.True(t, res.Valid, res.Violations)
	assert.Equal(t, 0.91, resp.Confidence)
}

func TestValidateRejectsOutOfRangeConfidence(t *testing.T) {
	raw := `{"confidence":1.5,"fixFile":"x.yml","fixStartLine":3,"fixContent":"...","explanation":"adds token"}`
	var resp FixGeneratorResponse
	res := Validate(raw, &resp, ExtraChecksForFixGenerator)

	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Violations)
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	var resp FixGeneratorResponse
	res := Validate("not json at all", &resp, nil)
	assert.False(t, res.Valid)
}

func TestCorrectionDirectiveListsEachViolation(t *testing.T) {
	directive := CorrectionDirective([]Violation{{Path: "fixStartLine", Message: "must be >= 1"}})
	assert.Contains(t, directive, "fixStartLine")
	assert.Contains(t, directive, "PURE JSON")
}
