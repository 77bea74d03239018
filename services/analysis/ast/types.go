// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ast defines the language-adapter contract for the analysis engine:
// parsers that turn raw source bytes into symbols and import records.
//
// Each supported language has one Parser implementation backed by
// tree-sitter. Parsers are stateless and safe for concurrent use; every
// Parse call creates its own tree-sitter parser internally.
package ast

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Default configuration values.
const (
	// DefaultMaxFileSize is the largest source file a parser will accept (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024
)

// Sentinel errors returned by parsers.
var (
	// ErrFileTooLarge indicates the content exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrInvalidContent indicates the content is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")

	// ErrUnsupportedLanguage indicates no parser is registered for a file.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// SymbolKind classifies a declared symbol.
type SymbolKind string

// Symbol kinds produced by the parsers.
const (
	SymbolKindFunction  SymbolKind = "function"
	SymbolKindMethod    SymbolKind = "method"
	SymbolKindClass     SymbolKind = "class"
	SymbolKindInterface SymbolKind = "interface"
	SymbolKindStruct    SymbolKind = "struct"
	SymbolKindEnum      SymbolKind = "enum"
	SymbolKindVariable  SymbolKind = "variable"
	SymbolKindConstant  SymbolKind = "constant"
	SymbolKindField     SymbolKind = "field"
	SymbolKindProperty  SymbolKind = "property"
	SymbolKindImport    SymbolKind = "import"
	SymbolKindNamespace SymbolKind = "namespace"
)

// ScopeKind classifies where a symbol is declared.
type ScopeKind string

// Scope kinds.
const (
	ScopeKindModule   ScopeKind = "module"
	ScopeKindClass    ScopeKind = "class"
	ScopeKindFunction ScopeKind = "function"
)

// Visibility classifies how widely a symbol is accessible.
type Visibility string

// Visibility levels. Languages without explicit modifiers get a
// convention-based guess (see index.InferVisibility).
const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
	VisibilityInternal  Visibility = "internal"
)

// Location identifies a byte and line range within a source file.
type Location struct {
	// FilePath is relative to the project root, forward slashes.
	FilePath string `json:"file_path"`

	// StartLine and EndLine are 1-based.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// StartCol and EndCol are 0-based byte columns.
	StartCol int `json:"start_col"`
	EndCol   int `json:"end_col"`
}

// Symbol is one declared symbol extracted from a source file.
//
// Description:
//
//	Symbols are immutable after extraction. The byte range covers the full
//	declaration (including body) so that usage offsets can be mapped back
//	to their innermost enclosing declaration.
//
// Thread Safety: Symbols MUST NOT be mutated after being handed to an index.
type Symbol struct {
	// Name is the declared identifier.
	Name string `json:"name"`

	// Kind classifies the declaration.
	Kind SymbolKind `json:"kind"`

	// FilePath is relative to the project root, forward slashes.
	FilePath string `json:"file_path"`

	// StartByte and EndByte delimit the declaration in the file content.
	StartByte int `json:"start_byte"`
	EndByte   int `json:"end_byte"`

	// StartLine and EndLine are 1-based.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Language is the lowercase language name ("python", "typescript", ...).
	Language string `json:"language"`

	// ScopeKind is where the symbol is declared.
	ScopeKind ScopeKind `json:"scope_kind"`

	// Visibility is the declared or inferred access level.
	Visibility Visibility `json:"visibility"`

	// Exported reports whether the symbol is exported from its module
	// (JS/TS export keyword, Python non-underscore, etc.).
	Exported bool `json:"exported"`

	// Metadata carries language-specific extras (modifiers, decorators).
	// May be nil.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QualifiedName returns the project-wide identifier for the symbol:
// the full relative file path joined to the name with "::".
//
// Using the full path (not the basename) keeps qualified names unique
// across same-named files in different directories, which the dependency
// graph relies on when splitting them back apart.
func (s *Symbol) QualifiedName() string {
	return s.FilePath + "::" + s.Name
}

// SplitQualifiedName splits a qualified name back into file path and
// symbol name. The file path never contains "::", so the first separator
// is authoritative.
func SplitQualifiedName(qn string) (filePath, name string, ok bool) {
	i := strings.Index(qn, "::")
	if i < 0 {
		return "", "", false
	}
	return qn[:i], qn[i+2:], true
}

// Validate checks that the symbol has the fields every consumer relies on.
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("symbol has empty name")
	}
	if s.Kind == "" {
		return fmt.Errorf("symbol %q has empty kind", s.Name)
	}
	if s.FilePath == "" {
		return fmt.Errorf("symbol %q has empty file path", s.Name)
	}
	if s.EndByte < s.StartByte {
		return fmt.Errorf("symbol %q has inverted byte range [%d, %d)", s.Name, s.StartByte, s.EndByte)
	}
	return nil
}

// Import is one import statement extracted from a source file.
type Import struct {
	// Path is the raw import specifier as written ("./util", "os.path",
	// "com.example.Foo").
	Path string `json:"path"`

	// Level is the relative-import level for Python ("from . import x" is
	// level 1, "from .. import x" is level 2). Zero for absolute imports
	// and for all other languages.
	Level int `json:"level,omitempty"`

	// Names lists the imported identifiers, when the statement names them
	// ("from x import a, b" or "import { a, b } from 'x'").
	Names []string `json:"names,omitempty"`

	// IsWildcard reports a star import ("from x import *", "import pkg.*").
	IsWildcard bool `json:"is_wildcard,omitempty"`

	// Alias is the local binding name, when present.
	Alias string `json:"alias,omitempty"`

	// Location is where the statement appears.
	Location Location `json:"location"`
}

// Usage is a free identifier or property reference found in a file,
// used by the dependency graph to recover symbol-to-symbol edges.
type Usage struct {
	// Name is the referenced identifier.
	Name string `json:"name"`

	// StartByte is the offset of the reference in the file content.
	StartByte int `json:"start_byte"`
}

// ParseResult is the output of one Parser.Parse call.
type ParseResult struct {
	// FilePath is relative to the project root, forward slashes.
	FilePath string `json:"file_path"`

	// Language is the lowercase language name.
	Language string `json:"language"`

	// Symbols lists every extracted declaration, in source order.
	Symbols []*Symbol `json:"symbols"`

	// Imports lists every import statement, in source order.
	Imports []Import `json:"imports"`

	// Usages lists free identifier references, capped by the parser
	// (see MaxUsagesPerFile). Best-effort, used for dependency edges only.
	Usages []Usage `json:"usages,omitempty"`

	// Errors lists non-fatal extraction problems. A non-empty list still
	// means the result is usable.
	Errors []string `json:"errors,omitempty"`
}

// MaxUsagesPerFile bounds the usage scan so pathological files cannot
// dominate dependency-graph construction.
const MaxUsagesPerFile = 500

// Parser is the per-language adapter contract.
//
// Implementations must be safe for concurrent use and must be
// error-tolerant: syntactically broken files yield partial results, not
// errors. Errors are reserved for unusable input (too large, not UTF-8)
// and context cancellation.
type Parser interface {
	// Language returns the lowercase language name.
	Language() string

	// Extensions returns the file extensions (with dot) this parser handles.
	Extensions() []string

	// Parse extracts symbols, imports and usages from content.
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)
}
