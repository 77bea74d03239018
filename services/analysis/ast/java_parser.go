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
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Tree-sitter node types for the Java grammar.
const (
	javaNodePackageDecl     = "package_declaration"
	javaNodeImportDecl      = "import_declaration"
	javaNodeClassDecl       = "class_declaration"
	javaNodeInterfaceDecl   = "interface_declaration"
	javaNodeEnumDecl        = "enum_declaration"
	javaNodeRecordDecl      = "record_declaration"
	javaNodeMethodDecl      = "method_declaration"
	javaNodeConstructorDecl = "constructor_declaration"
	javaNodeFieldDecl       = "field_declaration"
	javaNodeScopedID        = "scoped_identifier"
	javaNodeIdentifier      = "identifier"
	javaNodeAsterisk        = "asterisk"
	javaNodeModifiers       = "modifiers"
	javaNodeClassBody       = "class_body"
	javaNodeVariableDecl    = "variable_declarator"
)

// JavaParserOption configures a JavaParser instance.
type JavaParserOption func(*JavaParser)

// WithJavaMaxFileSize sets the maximum file size the parser will accept.
func WithJavaMaxFileSize(bytes int) JavaParserOption {
	return func(p *JavaParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// JavaParser implements Parser for Java source code.
//
// Extracted declarations carry their modifier list in
// Metadata["modifiers"], which visibility inference consumes.
//
// Thread Safety: safe for concurrent use.
type JavaParser struct {
	maxFileSize int
}

// NewJavaParser creates a JavaParser with the given options.
func NewJavaParser(opts ...JavaParserOption) *JavaParser {
	p := &JavaParser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "java".
func (p *JavaParser) Language() string { return "java" }

// Extensions returns the Java file extensions.
func (p *JavaParser) Extensions() []string { return []string{".java"} }

// Parse extracts symbols, imports and usages from Java source.
func (p *JavaParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "java", filePath, len(content))
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics("java", time.Since(start), 0, false)
		return nil, err
	}
	if len(content) > p.maxFileSize {
		recordParseMetrics("java", time.Since(start), 0, false)
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		recordParseMetrics("java", time.Since(start), 0, false)
		return nil, ErrInvalidContent
	}

	result := &ParseResult{
		FilePath: filePath,
		Language: "java",
		Symbols:  make([]*Symbol, 0),
		Imports:  make([]Import, 0),
	}

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics("java", time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	p.extract(root, content, filePath, result, ScopeKindModule)
	collectUsages(root, content, result, javaNodeIdentifier)

	recordParseMetrics("java", time.Since(start), len(result.Symbols), true)
	return result, nil
}

func (p *JavaParser) extract(node *sitter.Node, content []byte, filePath string, result *ParseResult, scope ScopeKind) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case javaNodeImportDecl:
			p.extractImport(child, content, filePath, result)
		case javaNodeClassDecl, javaNodeRecordDecl:
			p.extractType(child, content, filePath, result, SymbolKindClass, scope)
		case javaNodeInterfaceDecl:
			p.extractType(child, content, filePath, result, SymbolKindInterface, scope)
		case javaNodeEnumDecl:
			p.extractType(child, content, filePath, result, SymbolKindEnum, scope)
		}
	}
}

// extractImport handles "import a.b.C;" and "import a.b.*;".
func (p *JavaParser) extractImport(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	imp := Import{Location: location(node, filePath)}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case javaNodeScopedID, javaNodeIdentifier:
			imp.Path = child.Content(content)
		case javaNodeAsterisk:
			imp.IsWildcard = true
		}
	}
	if imp.Path != "" {
		result.Imports = append(result.Imports, imp)
	}
}

func (p *JavaParser) extractType(node *sitter.Node, content []byte, filePath string, result *ParseResult, kind SymbolKind, scope ScopeKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	result.Symbols = append(result.Symbols, p.symbol(node, content, filePath, nameNode.Content(content), kind, scope))

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		switch member.Type() {
		case javaNodeMethodDecl, javaNodeConstructorDecl:
			if mName := member.ChildByFieldName("name"); mName != nil {
				result.Symbols = append(result.Symbols, p.symbol(member, content, filePath, mName.Content(content), SymbolKindMethod, ScopeKindClass))
			}
		case javaNodeFieldDecl:
			for j := 0; j < int(member.ChildCount()); j++ {
				if decl := member.Child(j); decl.Type() == javaNodeVariableDecl {
					if fName := decl.ChildByFieldName("name"); fName != nil {
						result.Symbols = append(result.Symbols, p.symbol(member, content, filePath, fName.Content(content), SymbolKindField, ScopeKindClass))
					}
				}
			}
		case javaNodeClassDecl:
			p.extractType(member, content, filePath, result, SymbolKindClass, ScopeKindClass)
		}
	}
}

func (p *JavaParser) symbol(node *sitter.Node, content []byte, filePath, name string, kind SymbolKind, scope ScopeKind) *Symbol {
	sym := &Symbol{
		Name:      name,
		Kind:      kind,
		FilePath:  filePath,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Language:  "java",
		ScopeKind: scope,
	}
	if mods := modifiersOf(node, content); mods != "" {
		sym.Metadata = map[string]string{"modifiers": mods}
	}
	return sym
}

// modifiersOf returns the raw modifier text of a declaration ("public
// static final"), or "".
func modifiersOf(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == javaNodeModifiers || child.Type() == "modifier" {
			return child.Content(content)
		}
	}
	return ""
}
