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
	"github.com/smacker/go-tree-sitter/python"
)

// Tree-sitter node types for the Python grammar.
const (
	pyNodeModule          = "module"
	pyNodeImport          = "import_statement"
	pyNodeImportFrom      = "import_from_statement"
	pyNodeFutureImport    = "future_import_statement"
	pyNodeFunctionDef     = "function_definition"
	pyNodeClassDef        = "class_definition"
	pyNodeDecoratedDef    = "decorated_definition"
	pyNodeAssignment      = "assignment"
	pyNodeExpressionStmt  = "expression_statement"
	pyNodeDottedName      = "dotted_name"
	pyNodeAliasedImport   = "aliased_import"
	pyNodeWildcardImport  = "wildcard_import"
	pyNodeRelativeImport  = "relative_import"
	pyNodeImportPrefix    = "import_prefix"
	pyNodeIdentifier      = "identifier"
	pyNodeAttribute       = "attribute"
	pyNodeCall            = "call"
	pyNodeBlock           = "block"
)

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithPythonMaxFileSize sets the maximum file size the parser will accept.
func WithPythonMaxFileSize(bytes int) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// PythonParser implements Parser for Python source code.
//
// Description:
//
//	Uses tree-sitter to extract functions, classes, methods,
//	module-level assignments, imports and identifier usages. The parser
//	is error-tolerant: syntactically invalid files produce partial
//	results rather than errors.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Parse call creates its own tree-sitter
//	parser instance.
type PythonParser struct {
	maxFileSize int
}

// NewPythonParser creates a PythonParser with the given options.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "python".
func (p *PythonParser) Language() string { return "python" }

// Extensions returns the Python file extensions.
func (p *PythonParser) Extensions() []string { return []string{".py", ".pyi"} }

// Parse extracts symbols, imports and usages from Python source.
//
// Outputs:
//   - *ParseResult: never nil on success; may carry per-record Errors.
//   - error: ErrFileTooLarge, ErrInvalidContent, context errors, or a
//     wrapped tree-sitter failure.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "python", filePath, len(content))
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics("python", time.Since(start), 0, false)
		return nil, err
	}
	if len(content) > p.maxFileSize {
		recordParseMetrics("python", time.Since(start), 0, false)
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		recordParseMetrics("python", time.Since(start), 0, false)
		return nil, ErrInvalidContent
	}

	result := &ParseResult{
		FilePath: filePath,
		Language: "python",
		Symbols:  make([]*Symbol, 0),
		Imports:  make([]Import, 0),
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics("python", time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	p.extract(root, content, filePath, result, ScopeKindModule)
	collectUsages(root, content, result, pyNodeIdentifier)

	recordParseMetrics("python", time.Since(start), len(result.Symbols), true)
	return result, nil
}

// extract walks the tree collecting declarations and imports.
func (p *PythonParser) extract(node *sitter.Node, content []byte, filePath string, result *ParseResult, scope ScopeKind) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case pyNodeImport, pyNodeFutureImport:
			p.extractImport(child, content, filePath, result)
		case pyNodeImportFrom:
			p.extractImportFrom(child, content, filePath, result)
		case pyNodeFunctionDef:
			p.extractCallable(child, content, filePath, result, scope)
		case pyNodeClassDef:
			p.extractClass(child, content, filePath, result, scope)
		case pyNodeDecoratedDef:
			// The wrapped definition is the last child; the byte range of
			// the symbol still covers the decorators.
			inner := child.Child(int(child.ChildCount()) - 1)
			switch inner.Type() {
			case pyNodeFunctionDef:
				p.extractCallable(inner, content, filePath, result, scope)
			case pyNodeClassDef:
				p.extractClass(inner, content, filePath, result, scope)
			}
		case pyNodeExpressionStmt:
			if scope == ScopeKindModule {
				p.extractModuleAssignments(child, content, filePath, result)
			}
		}
	}
}

func (p *PythonParser) extractCallable(node *sitter.Node, content []byte, filePath string, result *ParseResult, scope ScopeKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)
	kind := SymbolKindFunction
	if scope == ScopeKindClass {
		kind = SymbolKindMethod
	}
	result.Symbols = append(result.Symbols, p.symbol(node, content, filePath, name, kind, scope))

	// Nested definitions still get symbols; their byte ranges nest inside
	// the parent's, which the interval index relies on.
	if body := node.ChildByFieldName("body"); body != nil {
		p.extract(body, content, filePath, result, ScopeKindFunction)
	}
}

func (p *PythonParser) extractClass(node *sitter.Node, content []byte, filePath string, result *ParseResult, scope ScopeKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	result.Symbols = append(result.Symbols, p.symbol(node, content, filePath, nameNode.Content(content), SymbolKindClass, scope))
	if body := node.ChildByFieldName("body"); body != nil {
		p.extract(body, content, filePath, result, ScopeKindClass)
	}
}

// extractModuleAssignments records simple module-level NAME = ... bindings.
func (p *PythonParser) extractModuleAssignments(stmt *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for i := 0; i < int(stmt.ChildCount()); i++ {
		child := stmt.Child(i)
		if child.Type() != pyNodeAssignment {
			continue
		}
		left := child.ChildByFieldName("left")
		if left == nil || left.Type() != pyNodeIdentifier {
			continue
		}
		name := left.Content(content)
		kind := SymbolKindVariable
		if name == strings.ToUpper(name) && name != strings.ToLower(name) {
			kind = SymbolKindConstant
		}
		result.Symbols = append(result.Symbols, p.symbol(child, content, filePath, name, kind, ScopeKindModule))
	}
}

// extractImport handles "import a.b" and "import a.b as c".
func (p *PythonParser) extractImport(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case pyNodeDottedName:
			result.Imports = append(result.Imports, Import{
				Path:     child.Content(content),
				Location: location(node, filePath),
			})
		case pyNodeAliasedImport:
			imp := Import{Location: location(node, filePath)}
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				imp.Path = nameNode.Content(content)
			}
			if aliasNode := child.ChildByFieldName("alias"); aliasNode != nil {
				imp.Alias = aliasNode.Content(content)
			}
			if imp.Path != "" {
				result.Imports = append(result.Imports, imp)
			}
		}
	}
}

// extractImportFrom handles "from x import a, b", "from . import x" and
// "from ..pkg import *". The relative level is the number of leading dots.
func (p *PythonParser) extractImportFrom(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	imp := Import{Location: location(node, filePath)}

	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode != nil {
		switch moduleNode.Type() {
		case pyNodeDottedName:
			imp.Path = moduleNode.Content(content)
		case pyNodeRelativeImport:
			for i := 0; i < int(moduleNode.ChildCount()); i++ {
				mc := moduleNode.Child(i)
				switch mc.Type() {
				case pyNodeImportPrefix:
					imp.Level = len(mc.Content(content))
				case pyNodeDottedName:
					imp.Path = mc.Content(content)
				}
			}
		}
	}

	// Imported names follow the "import" keyword.
	seenImportKw := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "import" {
			seenImportKw = true
			continue
		}
		if !seenImportKw {
			continue
		}
		switch child.Type() {
		case pyNodeDottedName:
			imp.Names = append(imp.Names, child.Content(content))
		case pyNodeAliasedImport:
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				imp.Names = append(imp.Names, nameNode.Content(content))
			}
		case pyNodeWildcardImport:
			imp.IsWildcard = true
		}
	}

	if imp.Path != "" || imp.Level > 0 {
		result.Imports = append(result.Imports, imp)
	}
}

func (p *PythonParser) symbol(node *sitter.Node, content []byte, filePath, name string, kind SymbolKind, scope ScopeKind) *Symbol {
	return &Symbol{
		Name:      name,
		Kind:      kind,
		FilePath:  filePath,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Language:  "python",
		ScopeKind: scope,
		Exported:  !strings.HasPrefix(name, "_"),
	}
}

// location converts a node's span into a Location.
func location(node *sitter.Node, filePath string) Location {
	return Location{
		FilePath:  filePath,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		StartCol:  int(node.StartPoint().Column),
		EndCol:    int(node.EndPoint().Column),
	}
}

// collectUsages appends identifier references up to MaxUsagesPerFile.
//
// Identifiers that are themselves declaration names or import clauses are
// skipped; the scan is a cheap approximation, not a binder.
func collectUsages(root *sitter.Node, content []byte, result *ParseResult, identType string) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil || len(result.Usages) >= MaxUsagesPerFile {
			return
		}
		if n.Type() == identType {
			if parent := n.Parent(); parent == nil || !isDeclarationContext(parent.Type()) {
				result.Usages = append(result.Usages, Usage{
					Name:      n.Content(content),
					StartByte: int(n.StartByte()),
				})
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
}

// isDeclarationContext reports node types whose identifier children are
// declarations or import clauses rather than references.
func isDeclarationContext(nodeType string) bool {
	switch nodeType {
	case pyNodeFunctionDef, pyNodeClassDef,
		pyNodeImport, pyNodeImportFrom, pyNodeAliasedImport, pyNodeDottedName, pyNodeRelativeImport,
		"import_specifier", "import_clause", "namespace_import", "import_declaration",
		"formal_parameters", "parameters", "typed_parameter", "default_parameter",
		"method_declaration", "class_declaration", "function_declaration",
		"using_directive", "package_declaration", "namespace_declaration",
		"variable_declarator", "property_declaration", "field_declaration":
		return true
	}
	return false
}
