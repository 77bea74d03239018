// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package index catalogues every declared project symbol with multiple
// lookup facets: name, kind, file, language and visibility.
package index

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/beringlabs/bering/services/analysis/ast"
)

// Default configuration values.
const (
	// DefaultMaxSymbols is the default maximum number of symbols the
	// index can hold.
	DefaultMaxSymbols = 1_000_000
)

// Sentinel errors.
var (
	// ErrInvalidSymbol indicates a symbol failed validation.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrMaxSymbolsExceeded indicates the index is at capacity.
	ErrMaxSymbolsExceeded = errors.New("symbol index at capacity")
)

// Stats contains statistics about the symbol index.
type Stats struct {
	// TotalSymbols is the total number of symbols in the index.
	TotalSymbols int `json:"total_symbols"`

	// ByKind maps each symbol kind to its count.
	ByKind map[ast.SymbolKind]int `json:"by_kind"`

	// ByLanguage maps each language to its count.
	ByLanguage map[string]int `json:"by_language"`

	// FileCount is the number of distinct files with symbols.
	FileCount int `json:"file_count"`
}

// SymbolIndexOption is a functional option for configuring SymbolIndex.
type SymbolIndexOption func(*SymbolIndex)

// WithMaxSymbols sets the maximum number of symbols the index can hold.
func WithMaxSymbols(max int) SymbolIndexOption {
	return func(idx *SymbolIndex) {
		if max > 0 {
			idx.maxSymbols = max
		}
	}
}

// SymbolIndex provides O(1) lookups of symbols by several keys.
//
// Description:
//
//	Five secondary indexes (name, kind, file, language, visibility) are
//	maintained alongside a flat symbol list during Add. Every lookup
//	returns a defensive copy, so callers can never corrupt the internal
//	state by mutating a result slice.
//
// Thread Safety:
//
//	Safe for concurrent use. Symbols are stored by pointer and MUST NOT
//	be mutated after being added.
type SymbolIndex struct {
	mu sync.RWMutex

	all          []*ast.Symbol
	byName       map[string][]*ast.Symbol
	byKind       map[ast.SymbolKind][]*ast.Symbol
	byFile       map[string][]*ast.Symbol
	byLanguage   map[string][]*ast.Symbol
	byVisibility map[ast.Visibility][]*ast.Symbol

	maxSymbols int

	// patternCache caches compiled regexes for FindByPattern.
	patternMu    sync.Mutex
	patternCache map[string]*regexp.Regexp
}

// NewSymbolIndex creates an empty index with the given options.
func NewSymbolIndex(opts ...SymbolIndexOption) *SymbolIndex {
	idx := &SymbolIndex{
		byName:       make(map[string][]*ast.Symbol),
		byKind:       make(map[ast.SymbolKind][]*ast.Symbol),
		byFile:       make(map[string][]*ast.Symbol),
		byLanguage:   make(map[string][]*ast.Symbol),
		byVisibility: make(map[ast.Visibility][]*ast.Symbol),
		maxSymbols:   DefaultMaxSymbols,
		patternCache: make(map[string]*regexp.Regexp),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Add validates and inserts one symbol into every index.
//
// Errors:
//
//	ErrInvalidSymbol - the symbol failed validation
//	ErrMaxSymbolsExceeded - the index is at capacity
func (idx *SymbolIndex) Add(symbol *ast.Symbol) error {
	if symbol == nil {
		return fmt.Errorf("%w: symbol is nil", ErrInvalidSymbol)
	}
	if err := symbol.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSymbol, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.all) >= idx.maxSymbols {
		return ErrMaxSymbolsExceeded
	}

	idx.all = append(idx.all, symbol)
	idx.byName[symbol.Name] = append(idx.byName[symbol.Name], symbol)
	idx.byKind[symbol.Kind] = append(idx.byKind[symbol.Kind], symbol)
	idx.byFile[symbol.FilePath] = append(idx.byFile[symbol.FilePath], symbol)
	idx.byLanguage[symbol.Language] = append(idx.byLanguage[symbol.Language], symbol)
	idx.byVisibility[symbol.Visibility] = append(idx.byVisibility[symbol.Visibility], symbol)
	return nil
}

// FindByName returns all symbols with the given name.
func (idx *SymbolIndex) FindByName(name string) []*ast.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return copySlice(idx.byName[name])
}

// FindByKind returns all symbols of the given kind.
func (idx *SymbolIndex) FindByKind(kind ast.SymbolKind) []*ast.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return copySlice(idx.byKind[kind])
}

// FindByFile returns all symbols declared in the given file, sorted by
// start byte.
func (idx *SymbolIndex) FindByFile(filePath string) []*ast.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := copySlice(idx.byFile[filePath])
	sort.Slice(out, func(i, j int) bool { return out[i].StartByte < out[j].StartByte })
	return out
}

// FindByLanguage returns all symbols of the given language.
func (idx *SymbolIndex) FindByLanguage(language string) []*ast.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return copySlice(idx.byLanguage[language])
}

// FindByVisibility returns all symbols with the given visibility.
func (idx *SymbolIndex) FindByVisibility(v ast.Visibility) []*ast.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return copySlice(idx.byVisibility[v])
}

// FindByQualifiedName returns the symbols matching a qualified
// "path::name" identifier.
func (idx *SymbolIndex) FindByQualifiedName(qn string) []*ast.Symbol {
	filePath, name, ok := ast.SplitQualifiedName(qn)
	if !ok {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []*ast.Symbol
	for _, sym := range idx.byFile[filePath] {
		if sym.Name == name {
			out = append(out, sym)
		}
	}
	return out
}

// All returns a copy of the flat symbol list in insertion order.
func (idx *SymbolIndex) All() []*ast.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return copySlice(idx.all)
}

// Files returns the distinct files with symbols, sorted.
func (idx *SymbolIndex) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.byFile))
	for f := range idx.byFile {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// FindByPattern returns symbols whose name matches the regex pattern,
// optionally restricted to one kind (empty kind means any).
//
// Invalid patterns yield an empty result, not an error: pattern search
// is a convenience facet, and a broken pattern should degrade quietly.
func (idx *SymbolIndex) FindByPattern(pattern string, kind ast.SymbolKind) []*ast.Symbol {
	re := idx.compile(pattern)
	if re == nil {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	candidates := idx.all
	if kind != "" {
		candidates = idx.byKind[kind]
	}
	var out []*ast.Symbol
	for _, sym := range candidates {
		if re.MatchString(sym.Name) {
			out = append(out, sym)
		}
	}
	return out
}

// compile returns the cached compiled pattern, or nil when invalid.
func (idx *SymbolIndex) compile(pattern string) *regexp.Regexp {
	idx.patternMu.Lock()
	defer idx.patternMu.Unlock()
	if re, ok := idx.patternCache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		idx.patternCache[pattern] = nil
		return nil
	}
	idx.patternCache[pattern] = re
	return re
}

// Stats returns summary counts for the index.
func (idx *SymbolIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s := Stats{
		TotalSymbols: len(idx.all),
		ByKind:       make(map[ast.SymbolKind]int, len(idx.byKind)),
		ByLanguage:   make(map[string]int, len(idx.byLanguage)),
		FileCount:    len(idx.byFile),
	}
	for kind, syms := range idx.byKind {
		s.ByKind[kind] = len(syms)
	}
	for lang, syms := range idx.byLanguage {
		s.ByLanguage[lang] = len(syms)
	}
	return s
}

func copySlice(src []*ast.Symbol) []*ast.Symbol {
	if len(src) == 0 {
		return nil
	}
	out := make([]*ast.Symbol, len(src))
	copy(out, src)
	return out
}
