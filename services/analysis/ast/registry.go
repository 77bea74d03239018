// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"path/filepath"
	"strings"
)

// Registry maps file extensions to parsers.
//
// Thread Safety: Registry is immutable after construction and safe for
// concurrent use.
type Registry struct {
	byExt      map[string]Parser
	byLanguage map[string]Parser
}

// NewRegistry builds a registry over the given parsers. Later parsers win
// extension conflicts, which lets TypeScript take .ts while JavaScript
// keeps .js.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{
		byExt:      make(map[string]Parser),
		byLanguage: make(map[string]Parser),
	}
	for _, p := range parsers {
		r.byLanguage[p.Language()] = p
		for _, ext := range p.Extensions() {
			r.byExt[strings.ToLower(ext)] = p
		}
	}
	return r
}

// DefaultRegistry returns a registry with every built-in parser.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewPythonParser(),
		NewJavaScriptParser(),
		NewTypeScriptParser(),
		NewJavaParser(),
		NewCSharpParser(),
	)
}

// ForFile returns the parser responsible for the given path, if any.
func (r *Registry) ForFile(path string) (Parser, bool) {
	p, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return p, ok
}

// ForLanguage returns the parser for the given language name, if any.
func (r *Registry) ForLanguage(language string) (Parser, bool) {
	p, ok := r.byLanguage[strings.ToLower(language)]
	return p, ok
}

// Languages returns the registered language names, unordered.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		out = append(out, lang)
	}
	return out
}

// LanguageForFile returns the language name for a path based on its
// extension, or "" when the extension is not recognized.
func (r *Registry) LanguageForFile(path string) string {
	if p, ok := r.ForFile(path); ok {
		return p.Language()
	}
	return ""
}
