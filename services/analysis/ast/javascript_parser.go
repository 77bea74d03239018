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
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Tree-sitter node types shared by the JavaScript and TypeScript grammars.
const (
	jsNodeProgram             = "program"
	jsNodeImportStatement     = "import_statement"
	jsNodeExportStatement     = "export_statement"
	jsNodeImportClause        = "import_clause"
	jsNodeNamedImports        = "named_imports"
	jsNodeImportSpecifier     = "import_specifier"
	jsNodeNamespaceImport     = "namespace_import"
	jsNodeFunctionDeclaration = "function_declaration"
	jsNodeGeneratorFunction   = "generator_function_declaration"
	jsNodeClassDeclaration    = "class_declaration"
	jsNodeMethodDefinition    = "method_definition"
	jsNodeLexicalDeclaration  = "lexical_declaration"
	jsNodeVariableDeclaration = "variable_declaration"
	jsNodeVariableDeclarator  = "variable_declarator"
	jsNodeArrowFunction       = "arrow_function"
	jsNodeFunctionExpression  = "function_expression"
	jsNodeCallExpression      = "call_expression"
	jsNodeIdentifier          = "identifier"
	jsNodePropertyIdentifier  = "property_identifier"
	jsNodeString              = "string"
	jsNodeClassBody           = "class_body"
	jsNodeStatementBlock      = "statement_block"
)

// JavaScriptParserOption configures a JavaScriptParser instance.
type JavaScriptParserOption func(*JavaScriptParser)

// WithJavaScriptMaxFileSize sets the maximum file size the parser will accept.
func WithJavaScriptMaxFileSize(bytes int) JavaScriptParserOption {
	return func(p *JavaScriptParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// JavaScriptParser implements Parser for JavaScript source code.
//
// It handles ES module imports, CommonJS require() bindings, function and
// class declarations (including export-wrapped ones), and const/let/var
// module-level bindings.
//
// Thread Safety: safe for concurrent use.
type JavaScriptParser struct {
	maxFileSize int

	// language and languageName allow TypeScriptParser to reuse the
	// extraction logic over a different grammar.
	language     func() *sitter.Language
	languageName string
	extensions   []string
}

// NewJavaScriptParser creates a JavaScriptParser with the given options.
func NewJavaScriptParser(opts ...JavaScriptParserOption) *JavaScriptParser {
	p := &JavaScriptParser{
		maxFileSize:  DefaultMaxFileSize,
		language:     javascript.GetLanguage,
		languageName: "javascript",
		extensions:   []string{".js", ".jsx", ".mjs", ".cjs"},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns the language name ("javascript", or "typescript" for
// the embedding TypeScript parser).
func (p *JavaScriptParser) Language() string { return p.languageName }

// Extensions returns the handled file extensions.
func (p *JavaScriptParser) Extensions() []string { return p.extensions }

// Parse extracts symbols, imports and usages from JavaScript source.
func (p *JavaScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, p.languageName, filePath, len(content))
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(p.languageName, time.Since(start), 0, false)
		return nil, err
	}
	if len(content) > p.maxFileSize {
		recordParseMetrics(p.languageName, time.Since(start), 0, false)
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		recordParseMetrics(p.languageName, time.Since(start), 0, false)
		return nil, ErrInvalidContent
	}

	result := &ParseResult{
		FilePath: filePath,
		Language: p.languageName,
		Symbols:  make([]*Symbol, 0),
		Imports:  make([]Import, 0),
	}

	parser := sitter.NewParser()
	parser.SetLanguage(p.language())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(p.languageName, time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	p.extract(root, content, filePath, result, ScopeKindModule, false)
	collectUsages(root, content, result, jsNodeIdentifier)

	recordParseMetrics(p.languageName, time.Since(start), len(result.Symbols), true)
	return result, nil
}

// extract walks statements collecting declarations and imports. exported
// is true inside an export statement.
func (p *JavaScriptParser) extract(node *sitter.Node, content []byte, filePath string, result *ParseResult, scope ScopeKind, exported bool) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case jsNodeImportStatement:
			p.extractImport(child, content, filePath, result)
		case jsNodeExportStatement:
			p.extract(child, content, filePath, result, scope, true)
		case jsNodeFunctionDeclaration, jsNodeGeneratorFunction:
			p.extractNamed(child, content, filePath, result, SymbolKindFunction, scope, exported)
		case jsNodeClassDeclaration:
			p.extractClass(child, content, filePath, result, scope, exported)
		case jsNodeLexicalDeclaration, jsNodeVariableDeclaration:
			p.extractRequire(child, content, filePath, result)
			p.extractVariables(child, content, filePath, result, scope, exported)
		}
	}
}

// extractImport handles "import ... from 'mod'" and bare "import 'mod'".
func (p *JavaScriptParser) extractImport(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	imp := Import{Location: location(node, filePath)}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case jsNodeString:
			imp.Path = stringContent(child, content)
		case jsNodeImportClause:
			p.extractImportClause(child, content, &imp)
		}
	}
	if imp.Path != "" {
		result.Imports = append(result.Imports, imp)
	}
}

// extractImportClause fills default, namespace and named import bindings.
func (p *JavaScriptParser) extractImportClause(node *sitter.Node, content []byte, imp *Import) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case jsNodeIdentifier:
			// Default import binds the module's default export.
			imp.Names = append(imp.Names, child.Content(content))
		case jsNodeNamespaceImport:
			// import * as foo
			imp.IsWildcard = true
			for j := 0; j < int(child.ChildCount()); j++ {
				if gc := child.Child(j); gc.Type() == jsNodeIdentifier {
					imp.Alias = gc.Content(content)
				}
			}
		case jsNodeNamedImports:
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc.Type() == jsNodeImportSpecifier {
					if nameNode := gc.ChildByFieldName("name"); nameNode != nil {
						imp.Names = append(imp.Names, nameNode.Content(content))
					}
				}
			}
		}
	}
}

// extractRequire records CommonJS "const x = require('mod')" bindings as
// imports so both module systems feed the same graph.
func (p *JavaScriptParser) extractRequire(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		decl := node.Child(i)
		if decl.Type() != jsNodeVariableDeclarator {
			continue
		}
		value := decl.ChildByFieldName("value")
		if value == nil || value.Type() != jsNodeCallExpression {
			continue
		}
		fn := value.ChildByFieldName("function")
		if fn == nil || fn.Type() != jsNodeIdentifier || fn.Content(content) != "require" {
			continue
		}
		args := value.ChildByFieldName("arguments")
		if args == nil {
			continue
		}
		for j := 0; j < int(args.ChildCount()); j++ {
			if arg := args.Child(j); arg.Type() == jsNodeString {
				imp := Import{
					Path:     stringContent(arg, content),
					Location: location(node, filePath),
				}
				if nameNode := decl.ChildByFieldName("name"); nameNode != nil && nameNode.Type() == jsNodeIdentifier {
					imp.Alias = nameNode.Content(content)
				}
				if imp.Path != "" {
					result.Imports = append(result.Imports, imp)
				}
			}
		}
	}
}

func (p *JavaScriptParser) extractNamed(node *sitter.Node, content []byte, filePath string, result *ParseResult, kind SymbolKind, scope ScopeKind, exported bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	result.Symbols = append(result.Symbols, p.symbol(node, content, filePath, nameNode.Content(content), kind, scope, exported))
}

func (p *JavaScriptParser) extractClass(node *sitter.Node, content []byte, filePath string, result *ParseResult, scope ScopeKind, exported bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	result.Symbols = append(result.Symbols, p.symbol(node, content, filePath, nameNode.Content(content), SymbolKindClass, scope, exported))

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		if member.Type() != jsNodeMethodDefinition {
			continue
		}
		mName := member.ChildByFieldName("name")
		if mName == nil {
			continue
		}
		result.Symbols = append(result.Symbols, p.symbol(member, content, filePath, mName.Content(content), SymbolKindMethod, ScopeKindClass, exported))
	}
}

// extractVariables records module-level const/let/var bindings. Bindings
// initialized with a function value are classified as functions.
func (p *JavaScriptParser) extractVariables(node *sitter.Node, content []byte, filePath string, result *ParseResult, scope ScopeKind, exported bool) {
	if scope != ScopeKindModule {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		decl := node.Child(i)
		if decl.Type() != jsNodeVariableDeclarator {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != jsNodeIdentifier {
			continue
		}
		value := decl.ChildByFieldName("value")
		if value != nil && value.Type() == jsNodeCallExpression {
			if fn := value.ChildByFieldName("function"); fn != nil && fn.Type() == jsNodeIdentifier && fn.Content(content) == "require" {
				continue // already recorded as an import
			}
		}
		kind := SymbolKindVariable
		if value != nil && (value.Type() == jsNodeArrowFunction || value.Type() == jsNodeFunctionExpression) {
			kind = SymbolKindFunction
		}
		result.Symbols = append(result.Symbols, p.symbol(decl, content, filePath, nameNode.Content(content), kind, scope, exported))
	}
}

func (p *JavaScriptParser) symbol(node *sitter.Node, content []byte, filePath, name string, kind SymbolKind, scope ScopeKind, exported bool) *Symbol {
	return &Symbol{
		Name:      name,
		Kind:      kind,
		FilePath:  filePath,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Language:  p.languageName,
		ScopeKind: scope,
		Exported:  exported && !strings.HasPrefix(name, "_"),
	}
}

// stringContent strips the quotes from a string literal node.
func stringContent(node *sitter.Node, content []byte) string {
	s := node.Content(content)
	return strings.Trim(s, "'\"`")
}
