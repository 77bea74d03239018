// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package depgraph

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"github.com/beringlabs/bering/services/analysis/ast"
	"github.com/beringlabs/bering/services/analysis/index"
)

// Build constructs a dependency graph from already-parsed files.
//
// Description:
//
//	For each file: every recorded identifier usage is mapped to its
//	innermost enclosing declared symbol via a binary-search interval
//	index, then the used name is resolved against a name index over the
//	project symbols, preferring a candidate declared in a different
//	file than the usage site. One dependent→dependency edge is recorded
//	per resolved usage. The usage scan is capped per file by the
//	parsers (ast.MaxUsagesPerFile), so this pass stays linear in
//	practice.
//
//	The name index is built once here and owned by the call; nothing is
//	shared across builds.
func Build(ctx context.Context, results []*ast.ParseResult, idx *index.SymbolIndex) (*DependencyGraph, error) {
	g := NewDependencyGraph()
	names := buildNameIndex(idx)

	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return g, err
		}
		if result == nil {
			continue
		}
		intervals := newIntervalIndex(idx.FindByFile(result.FilePath))

		for _, usage := range result.Usages {
			enclosing := intervals.enclosing(usage.StartByte)
			if enclosing == nil {
				continue
			}
			target := resolveUsage(names, usage.Name, result.FilePath)
			if target == nil {
				continue
			}
			g.AddDependency(enclosing.QualifiedName(), target.QualifiedName())
		}
	}
	return g, nil
}

// BuildFromFiles parses each file with its adapter, then delegates to
// Build. Read and parse failures skip the file with a warning.
func BuildFromFiles(ctx context.Context, files []string, adapters *ast.Registry, idx *index.SymbolIndex) (*DependencyGraph, error) {
	results := make([]*ast.ParseResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return NewDependencyGraph(), err
		}
		parser, ok := adapters.ForFile(file)
		if !ok {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			slog.Warn("dependency graph: skipping unreadable file", "file", file, "error", err)
			continue
		}
		result, err := parser.Parse(ctx, content, file)
		if err != nil {
			slog.Warn("dependency graph: skipping unparsable file", "file", file, "error", err)
			continue
		}
		results = append(results, result)
	}
	return Build(ctx, results, idx)
}

// buildNameIndex maps each symbol name to its declarations, sorted by
// (file, start byte) for deterministic candidate selection.
func buildNameIndex(idx *index.SymbolIndex) map[string][]*ast.Symbol {
	names := make(map[string][]*ast.Symbol)
	for _, sym := range idx.All() {
		if sym.Kind == ast.SymbolKindImport {
			continue
		}
		names[sym.Name] = append(names[sym.Name], sym)
	}
	for name := range names {
		syms := names[name]
		sort.Slice(syms, func(i, j int) bool {
			if syms[i].FilePath != syms[j].FilePath {
				return syms[i].FilePath < syms[j].FilePath
			}
			return syms[i].StartByte < syms[j].StartByte
		})
	}
	return names
}

// resolveUsage picks the declaration a used name most plausibly refers
// to, preferring candidates declared outside the usage file: a same-file
// reference usually binds locally and adds no cross-file information.
func resolveUsage(names map[string][]*ast.Symbol, name, usageFile string) *ast.Symbol {
	candidates := names[name]
	if len(candidates) == 0 {
		return nil
	}
	for _, cand := range candidates {
		if cand.FilePath != usageFile {
			return cand
		}
	}
	return candidates[0]
}

// intervalIndex answers "which declaration encloses byte offset N" by
// binary search over symbols sorted by start byte.
type intervalIndex struct {
	symbols []*ast.Symbol // sorted by StartByte
}

func newIntervalIndex(symbols []*ast.Symbol) *intervalIndex {
	sorted := make([]*ast.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if s.Kind == ast.SymbolKindImport {
			continue
		}
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartByte < sorted[j].StartByte })
	return &intervalIndex{symbols: sorted}
}

// enclosing returns the innermost symbol whose byte range contains off,
// or nil. Declarations nest, so the rightmost starting candidate that
// still spans off is the innermost; the backward walk handles adjacent
// non-overlapping siblings.
func (ix *intervalIndex) enclosing(off int) *ast.Symbol {
	i := sort.Search(len(ix.symbols), func(i int) bool {
		return ix.symbols[i].StartByte > off
	})
	for j := i - 1; j >= 0; j-- {
		if ix.symbols[j].EndByte > off {
			return ix.symbols[j]
		}
	}
	return nil
}
