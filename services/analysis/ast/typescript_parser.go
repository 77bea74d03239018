// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScript-specific node types.
const (
	tsNodeInterfaceDeclaration = "interface_declaration"
	tsNodeTypeAliasDeclaration = "type_alias_declaration"
	tsNodeEnumDeclaration      = "enum_declaration"
	tsNodeAbstractClass        = "abstract_class_declaration"
)

// TypeScriptParser implements Parser for TypeScript and TSX source code.
//
// Description:
//
//	TypeScript shares its module system and most of its grammar with
//	JavaScript, so this parser reuses the JavaScript extraction logic and
//	adds the TypeScript-only declaration forms (interfaces, type aliases,
//	enums). The tsx grammar is selected for .tsx files.
//
// Thread Safety: safe for concurrent use.
type TypeScriptParser struct {
	js *JavaScriptParser
}

// NewTypeScriptParser creates a TypeScriptParser.
func NewTypeScriptParser(opts ...JavaScriptParserOption) *TypeScriptParser {
	js := NewJavaScriptParser(opts...)
	js.languageName = "typescript"
	js.extensions = []string{".ts", ".tsx", ".d.ts"}
	return &TypeScriptParser{js: js}
}

// Language returns "typescript".
func (p *TypeScriptParser) Language() string { return "typescript" }

// Extensions returns the TypeScript file extensions.
func (p *TypeScriptParser) Extensions() []string { return p.js.extensions }

// Parse extracts symbols, imports and usages from TypeScript source.
func (p *TypeScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "typescript", filePath, len(content))
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics("typescript", time.Since(start), 0, false)
		return nil, err
	}
	if len(content) > p.js.maxFileSize {
		recordParseMetrics("typescript", time.Since(start), 0, false)
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		recordParseMetrics("typescript", time.Since(start), 0, false)
		return nil, ErrInvalidContent
	}

	result := &ParseResult{
		FilePath: filePath,
		Language: "typescript",
		Symbols:  make([]*Symbol, 0),
		Imports:  make([]Import, 0),
	}

	parser := sitter.NewParser()
	parser.SetLanguage(p.grammarFor(filePath))
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics("typescript", time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	p.js.extract(root, content, filePath, result, ScopeKindModule, false)
	p.extractTypeDeclarations(root, content, filePath, result, false)
	collectUsages(root, content, result, jsNodeIdentifier)

	recordParseMetrics("typescript", time.Since(start), len(result.Symbols), true)
	return result, nil
}

// grammarFor selects the tsx grammar for .tsx files, typescript otherwise.
func (p *TypeScriptParser) grammarFor(path string) *sitter.Language {
	if strings.EqualFold(filepath.Ext(path), ".tsx") {
		return tsx.GetLanguage()
	}
	return typescript.GetLanguage()
}

// extractTypeDeclarations collects interface, type alias, enum and
// abstract class declarations, including export-wrapped ones.
func (p *TypeScriptParser) extractTypeDeclarations(node *sitter.Node, content []byte, filePath string, result *ParseResult, exported bool) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case jsNodeExportStatement:
			p.extractTypeDeclarations(child, content, filePath, result, true)
		case tsNodeInterfaceDeclaration:
			p.addTyped(child, content, filePath, result, SymbolKindInterface, exported)
		case tsNodeTypeAliasDeclaration:
			p.addTyped(child, content, filePath, result, SymbolKindClass, exported)
		case tsNodeEnumDeclaration:
			p.addTyped(child, content, filePath, result, SymbolKindEnum, exported)
		case tsNodeAbstractClass:
			p.addTyped(child, content, filePath, result, SymbolKindClass, exported)
		}
	}
}

func (p *TypeScriptParser) addTyped(node *sitter.Node, content []byte, filePath string, result *ParseResult, kind SymbolKind, exported bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	result.Symbols = append(result.Symbols, &Symbol{
		Name:      nameNode.Content(content),
		Kind:      kind,
		FilePath:  filePath,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Language:  "typescript",
		ScopeKind: ScopeKindModule,
		Exported:  exported,
	})
}
