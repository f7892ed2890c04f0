// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema validates agent responses against the fixed wire
// contracts each role's output must satisfy. Parsing is tolerant of
// markdown-fenced JSON; validation layers struct-tag constraints (via
// go-playground/validator/v10) with hand-written path-qualified checks
// the tag vocabulary can't express.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON returns the first JSON payload in text, unwrapping a
// markdown code fence if present, or text itself if it already looks
// like raw JSON.
func ExtractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// Violation is one path-qualified schema failure.
type Violation struct {
	Path    string
	Message string
}

// Result is the outcome of Validate.
type Result struct {
	Valid      bool
	Violations []Violation
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate decodes raw into target (a pointer to a schema struct tagged
// with `validate:"..."`), then applies any extra hand-written checks.
// Extra checks receive the decoded value and append violations the tag
// vocabulary cannot express (e.g. cross-field or numeric-range rules
// beyond what a single tag captures).
func Validate(raw string, target any, extra func(v any) []Violation) Result {
	payload := ExtractJSON(raw)
	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return Result{Valid: false, Violations: []Violation{{Path: "$", Message: fmt.Sprintf("invalid JSON: %v", err)}}}
	}

	var violations []Violation
	if err := validate.Struct(target); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				violations = append(violations, Violation{
					Path:    fe.Namespace(),
					Message: fmt.Sprintf("failed %q constraint (got %v)", fe.Tag(), fe.Value()),
				})
			}
		} else {
			violations = append(violations, Violation{Path: "$", Message: err.Error()})
		}
	}

	if extra != nil {
		violations = append(violations, extra(target)...)
	}

	return Result{Valid: len(violations) == 0, Violations: violations}
}

// CorrectionDirective renders violations into the instruction injected
// into a retry prompt, demanding pure JSON.
func CorrectionDirective(violations []Violation) string {
	var b strings.Builder
	b.WriteString("Your previous response violated the required schema. Fix the following and respond with PURE JSON only, no markdown fences, no commentary:\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s: %s\n", v.Path, v.Message)
	}
	return b.String()
}
