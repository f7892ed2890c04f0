// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patchvalidate

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

var (
	typeEscapeDirective = regexp.MustCompile(`@ts-ignore|@ts-nocheck|\bas any\b`)
	legacyDeclaration   = regexp.MustCompile(`(^|[^.\w])var\s+\w`)
)

// checkJSOrTS parses content with the matching tree-sitter grammar,
// reporting a balanced-braces/parens structural error if the parse tree
// contains an ERROR node, grounded on checkSyntax/hasSyntaxError's shape.
func checkJSOrTS(path, content string, typescriptLang bool, report *FileReport) {
	lang := javascript.GetLanguage()
	if typescriptLang {
		lang = typescript.GetLanguage()
	}
	reportSyntaxErrors(content, lang, report)

	for i, line := range strings.Split(content, "\n") {
		if typeEscapeDirective.MatchString(line) {
			addWarning(report, i+1, "type-escape directive found")
		}
		if legacyDeclaration.MatchString(line) {
			addWarning(report, i+1, "legacy var declaration; prefer let/const")
		}
	}
}

func checkPython(path, content string, report *FileReport) {
	reportSyntaxErrors(content, python.GetLanguage(), report)

	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimRight(line, " \t")
		leading := len(line) - len(strings.TrimLeft(line, " "))
		if strings.TrimSpace(line) != "" && leading%4 != 0 && !strings.Contains(line, "\t") {
			addWarning(report, i+1, "indentation is not a multiple of 4 spaces")
		}
		if strings.HasSuffix(trimmed, ":;") || strings.Contains(trimmed, ": ;") {
			addWarning(report, i+1, "suspicious colon placement")
		}
	}
}

func checkShell(path, content string, report *FileReport) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "#!") {
		addWarning(report, 1, "no shebang line")
	}
	unquotedVar := regexp.MustCompile(`[^"'\w]\$\{?\w+\}?`)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if unquotedVar.MatchString(" " + line) {
			addWarning(report, i+1, "unquoted variable reference")
		}
	}
}

func reportSyntaxErrors(content string, lang *sitter.Language, report *FileReport) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(content))
	if err != nil {
		addError(report, 0, "parse failed: "+err.Error())
		return
	}
	defer tree.Close()

	root := tree.RootNode()
	if hasSyntaxError(root) {
		errNode := findFirstError(root)
		line := 0
		if errNode != nil {
			line = int(errNode.StartPoint().Row) + 1
		}
		addError(report, line, "syntax error (unbalanced braces/parens or invalid construct)")
	}
}

// hasSyntaxError and findFirstError walk the parse tree for ERROR or
// MISSING nodes, tree-sitter's standard error-detection idiom.
func hasSyntaxError(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	if node.IsError() || node.IsMissing() {
		return true
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if hasSyntaxError(node.Child(int(i))) {
			return true
		}
	}
	return false
}

func findFirstError(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if err := findFirstError(node.Child(int(i))); err != nil {
			return err
		}
	}
	return nil
}
