// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prune trims an oversized, already-redacted log to its head and
// tail so it fits downstream token budgets while preserving the lines
// most likely to contain the triggering failure.
package prune

import (
	"fmt"
	"strings"
)

// Pruned is the output of Prune.
type Pruned struct {
	Text       string
	TotalLines int
	KeptHead   int
	KeptTail   int
	Omitted    int
}

// Options configures the head/tail window. Zero values fall back to the
// package defaults (100/500).
type Options struct {
	Head int
	Tail int
}

// DefaultOptions returns the package's default head/tail window.
func DefaultOptions() Options {
	return Options{Head: 100, Tail: 500}
}

// Prune trims text to at most Head+Tail lines. If the input already fits,
// it is returned unchanged. Otherwise the first Head lines and last Tail
// lines are kept, joined by exactly one omission marker recording the
// omitted count.
//
// Invariant: KeptHead + KeptTail + Omitted == TotalLines.
func Prune(text string, opts Options) Pruned {
	if opts.Head <= 0 {
		opts.Head = DefaultOptions().Head
	}
	if opts.Tail <= 0 {
		opts.Tail = DefaultOptions().Tail
	}

	lines := strings.Split(text, "\n")
	total := len(lines)

	if total <= opts.Head+opts.Tail {
		return Pruned{
			Text:       text,
			TotalLines: total,
			KeptHead:   total,
			KeptTail:   0,
			Omitted:    0,
		}
	}

	head := lines[:opts.Head]
	tail := lines[total-opts.Tail:]
	omitted := total - opts.Head - opts.Tail

	marker := fmt.Sprintf("... [%d lines omitted] ...", omitted)

	var b strings.Builder
	b.WriteString(strings.Join(head, "\n"))
	b.WriteString("\n")
	b.WriteString(marker)
	b.WriteString("\n")
	b.WriteString(strings.Join(tail, "\n"))

	return Pruned{
		Text:       b.String(),
		TotalLines: total,
		KeptHead:   opts.Head,
		KeptTail:   opts.Tail,
		Omitted:    omitted,
	}
}
