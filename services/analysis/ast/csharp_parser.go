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
	"github.com/smacker/go-tree-sitter/csharp"
)

// Tree-sitter node types for the C# grammar.
const (
	csNodeCompilationUnit  = "compilation_unit"
	csNodeUsingDirective   = "using_directive"
	csNodeNamespaceDecl    = "namespace_declaration"
	csNodeFileScopedNs     = "file_scoped_namespace_declaration"
	csNodeClassDecl        = "class_declaration"
	csNodeInterfaceDecl    = "interface_declaration"
	csNodeStructDecl       = "struct_declaration"
	csNodeEnumDecl         = "enum_declaration"
	csNodeRecordDecl       = "record_declaration"
	csNodeMethodDecl       = "method_declaration"
	csNodeConstructorDecl  = "constructor_declaration"
	csNodePropertyDecl     = "property_declaration"
	csNodeFieldDecl        = "field_declaration"
	csNodeQualifiedName    = "qualified_name"
	csNodeIdentifier       = "identifier"
	csNodeNameEquals       = "name_equals"
	csNodeDeclarationList  = "declaration_list"
	csNodeModifier         = "modifier"
	csNodeVariableDeclWrap = "variable_declaration"
	csNodeVariableDecl     = "variable_declarator"
)

// CSharpParserOption configures a CSharpParser instance.
type CSharpParserOption func(*CSharpParser)

// WithCSharpMaxFileSize sets the maximum file size the parser will accept.
func WithCSharpMaxFileSize(bytes int) CSharpParserOption {
	return func(p *CSharpParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// CSharpParser implements Parser for C# source code.
//
// Both block-scoped and file-scoped namespace declarations are handled;
// types declared inside a namespace carry it in Metadata["namespace"].
//
// Thread Safety: safe for concurrent use.
type CSharpParser struct {
	maxFileSize int
}

// NewCSharpParser creates a CSharpParser with the given options.
func NewCSharpParser(opts ...CSharpParserOption) *CSharpParser {
	p := &CSharpParser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "csharp".
func (p *CSharpParser) Language() string { return "csharp" }

// Extensions returns the C# file extensions.
func (p *CSharpParser) Extensions() []string { return []string{".cs"} }

// Parse extracts symbols, imports and usages from C# source.
func (p *CSharpParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "csharp", filePath, len(content))
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics("csharp", time.Since(start), 0, false)
		return nil, err
	}
	if len(content) > p.maxFileSize {
		recordParseMetrics("csharp", time.Since(start), 0, false)
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		recordParseMetrics("csharp", time.Since(start), 0, false)
		return nil, ErrInvalidContent
	}

	result := &ParseResult{
		FilePath: filePath,
		Language: "csharp",
		Symbols:  make([]*Symbol, 0),
		Imports:  make([]Import, 0),
	}

	parser := sitter.NewParser()
	parser.SetLanguage(csharp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics("csharp", time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	p.extract(root, content, filePath, result, "", ScopeKindModule)
	collectUsages(root, content, result, csNodeIdentifier)

	recordParseMetrics("csharp", time.Since(start), len(result.Symbols), true)
	return result, nil
}

func (p *CSharpParser) extract(node *sitter.Node, content []byte, filePath string, result *ParseResult, namespace string, scope ScopeKind) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case csNodeUsingDirective:
			p.extractUsing(child, content, filePath, result)
		case csNodeNamespaceDecl, csNodeFileScopedNs:
			ns := namespace
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				ns = nameNode.Content(content)
				result.Symbols = append(result.Symbols, p.symbol(child, content, filePath, ns, SymbolKindNamespace, scope, ""))
			}
			p.extract(child, content, filePath, result, ns, scope)
		case csNodeDeclarationList:
			p.extract(child, content, filePath, result, namespace, scope)
		case csNodeClassDecl, csNodeRecordDecl:
			p.extractType(child, content, filePath, result, SymbolKindClass, namespace, scope)
		case csNodeStructDecl:
			p.extractType(child, content, filePath, result, SymbolKindStruct, namespace, scope)
		case csNodeInterfaceDecl:
			p.extractType(child, content, filePath, result, SymbolKindInterface, namespace, scope)
		case csNodeEnumDecl:
			p.extractType(child, content, filePath, result, SymbolKindEnum, namespace, scope)
		}
	}
}

// extractUsing handles "using A.B;", "using Alias = A.B;" and
// "using static A.B".
func (p *CSharpParser) extractUsing(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	imp := Import{Location: location(node, filePath)}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case csNodeQualifiedName, csNodeIdentifier:
			imp.Path = child.Content(content)
		case csNodeNameEquals:
			// "Alias =" — the alias identifier is the first child.
			for j := 0; j < int(child.ChildCount()); j++ {
				if gc := child.Child(j); gc.Type() == csNodeIdentifier {
					imp.Alias = gc.Content(content)
				}
			}
		}
	}
	if imp.Path != "" {
		result.Imports = append(result.Imports, imp)
	}
}

func (p *CSharpParser) extractType(node *sitter.Node, content []byte, filePath string, result *ParseResult, kind SymbolKind, namespace string, scope ScopeKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	result.Symbols = append(result.Symbols, p.symbol(node, content, filePath, nameNode.Content(content), kind, scope, namespace))

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		switch member.Type() {
		case csNodeMethodDecl, csNodeConstructorDecl:
			if mName := member.ChildByFieldName("name"); mName != nil {
				result.Symbols = append(result.Symbols, p.symbol(member, content, filePath, mName.Content(content), SymbolKindMethod, ScopeKindClass, namespace))
			}
		case csNodePropertyDecl:
			if mName := member.ChildByFieldName("name"); mName != nil {
				result.Symbols = append(result.Symbols, p.symbol(member, content, filePath, mName.Content(content), SymbolKindProperty, ScopeKindClass, namespace))
			}
		case csNodeFieldDecl:
			p.extractField(member, content, filePath, result, namespace)
		case csNodeClassDecl, csNodeStructDecl:
			p.extractType(member, content, filePath, result, SymbolKindClass, namespace, ScopeKindClass)
		}
	}
}

func (p *CSharpParser) extractField(node *sitter.Node, content []byte, filePath string, result *ParseResult, namespace string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		wrap := node.Child(i)
		if wrap.Type() != csNodeVariableDeclWrap {
			continue
		}
		for j := 0; j < int(wrap.ChildCount()); j++ {
			if decl := wrap.Child(j); decl.Type() == csNodeVariableDecl {
				if fName := decl.ChildByFieldName("name"); fName != nil {
					result.Symbols = append(result.Symbols, p.symbol(node, content, filePath, fName.Content(content), SymbolKindField, ScopeKindClass, namespace))
				}
			}
		}
	}
}

func (p *CSharpParser) symbol(node *sitter.Node, content []byte, filePath, name string, kind SymbolKind, scope ScopeKind, namespace string) *Symbol {
	sym := &Symbol{
		Name:      name,
		Kind:      kind,
		FilePath:  filePath,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Language:  "csharp",
		ScopeKind: scope,
	}
	meta := make(map[string]string)
	if namespace != "" {
		meta["namespace"] = namespace
	}
	if mods := csModifiersOf(node, content); mods != "" {
		meta["modifiers"] = mods
	}
	if len(meta) > 0 {
		sym.Metadata = meta
	}
	return sym
}

// csModifiersOf concatenates a declaration's modifier children.
func csModifiersOf(node *sitter.Node, content []byte) string {
	var mods string
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == csNodeModifier {
			if mods != "" {
				mods += " "
			}
			mods += child.Content(content)
		}
	}
	return mods
}
