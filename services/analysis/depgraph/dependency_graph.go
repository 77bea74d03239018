// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package depgraph maps symbol-to-symbol usage edges for blast-radius
// analysis: what depends on X, and what breaks if X changes.
package depgraph

import (
	"sort"
	"strings"
	"sync"

	"github.com/beringlabs/bering/services/analysis/ast"
	"github.com/beringlabs/bering/services/analysis/index"
)

// Criticality classifies how widely a symbol is depended upon.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// criticalityFor maps a dependent count to a level.
func criticalityFor(count int) Criticality {
	switch {
	case count >= 50:
		return CriticalityCritical
	case count >= 20:
		return CriticalityHigh
	case count >= 10:
		return CriticalityMedium
	}
	return CriticalityLow
}

// CriticalSymbol is one heavily-depended-upon symbol.
type CriticalSymbol struct {
	QualifiedName  string      `json:"qualified_name"`
	DependentCount int         `json:"dependent_count"`
	Criticality    Criticality `json:"criticality"`
}

// Confidence grades how certain an unused-symbol finding is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// UnusedSymbol is one public symbol with no recorded dependents.
type UnusedSymbol struct {
	QualifiedName string         `json:"qualified_name"`
	Kind          ast.SymbolKind `json:"kind"`

	// Confidence is medium for test-named symbols, which frameworks
	// invoke reflectively, and high otherwise.
	Confidence Confidence `json:"confidence"`
}

// DependencyGraph records directed usage edges between symbols, keyed by
// qualified name ("relative/path.ext::Name").
//
// Thread Safety: safe for concurrent use.
type DependencyGraph struct {
	mu sync.RWMutex

	// dependents[x] = symbols that use x; dependencies[x] = symbols x uses.
	dependents   map[string]map[string]bool
	dependencies map[string]map[string]bool
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dependents:   make(map[string]map[string]bool),
		dependencies: make(map[string]map[string]bool),
	}
}

// AddDependency records that dependent uses dependency. Self-edges are
// rejected by construction.
func (g *DependencyGraph) AddDependency(dependent, dependency string) {
	if dependent == "" || dependency == "" || dependent == dependency {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dependencies[dependent] == nil {
		g.dependencies[dependent] = make(map[string]bool)
	}
	g.dependencies[dependent][dependency] = true
	if g.dependents[dependency] == nil {
		g.dependents[dependency] = make(map[string]bool)
	}
	g.dependents[dependency][dependent] = true
}

// GetImpactedSymbols returns the symbols that directly depend on qn,
// sorted, as a defensive copy.
func (g *DependencyGraph) GetImpactedSymbols(qn string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[qn])
}

// GetDependenciesOf returns the symbols qn directly uses, sorted, as a
// defensive copy.
func (g *DependencyGraph) GetDependenciesOf(qn string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependencies[qn])
}

// EdgeCount returns the number of recorded dependency edges.
func (g *DependencyGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, deps := range g.dependencies {
		n += len(deps)
	}
	return n
}

// GetImpactedFiles returns the files containing symbols that depend on
// anything declared in file, excluding file itself, sorted.
func (g *DependencyGraph) GetImpactedFiles(file string, idx *index.SymbolIndex) []string {
	impacted := make(map[string]bool)
	for _, sym := range idx.FindByFile(file) {
		for _, dep := range g.GetImpactedSymbols(sym.QualifiedName()) {
			depFile, _, ok := ast.SplitQualifiedName(dep)
			if ok && depFile != file {
				impacted[depFile] = true
			}
		}
	}
	return sortedKeys(impacted)
}

// GetCriticalDependencies returns symbols whose dependent count meets
// the threshold, sorted by descending count then name.
func (g *DependencyGraph) GetCriticalDependencies(threshold int) []CriticalSymbol {
	if threshold < 1 {
		threshold = 1
	}
	g.mu.RLock()
	var out []CriticalSymbol
	for qn, deps := range g.dependents {
		if len(deps) >= threshold {
			out = append(out, CriticalSymbol{
				QualifiedName:  qn,
				DependentCount: len(deps),
				Criticality:    criticalityFor(len(deps)),
			})
		}
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DependentCount != out[j].DependentCount {
			return out[i].DependentCount > out[j].DependentCount
		}
		return out[i].QualifiedName < out[j].QualifiedName
	})
	return out
}

// GetUnusedSymbols returns public, non-underscore function, class and
// method symbols with zero recorded dependents.
//
// Symbols whose name starts with "test" are reported at medium
// confidence: test frameworks discover and invoke them without any
// statically visible reference.
func (g *DependencyGraph) GetUnusedSymbols(idx *index.SymbolIndex) []UnusedSymbol {
	var out []UnusedSymbol
	for _, kind := range []ast.SymbolKind{ast.SymbolKindFunction, ast.SymbolKindClass, ast.SymbolKindMethod} {
		for _, sym := range idx.FindByKind(kind) {
			if strings.HasPrefix(sym.Name, "_") {
				continue
			}
			if sym.Visibility != ast.VisibilityPublic {
				continue
			}
			qn := sym.QualifiedName()
			if len(g.GetImpactedSymbols(qn)) > 0 {
				continue
			}
			conf := ConfidenceHigh
			if strings.HasPrefix(strings.ToLower(sym.Name), "test") {
				conf = ConfidenceMedium
			}
			out = append(out, UnusedSymbol{QualifiedName: qn, Kind: sym.Kind, Confidence: conf})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}

// GetDependencyChain expands the transitive dependents of start up to
// maxDepth levels, as an explanation of change impact.
//
// Outputs:
//
//	map of qualified name to its depth (1 = direct dependent). start
//	itself is not included. A visited guard keeps cyclic graphs finite.
func (g *DependencyGraph) GetDependencyChain(start string, maxDepth int) map[string]int {
	if maxDepth < 1 {
		maxDepth = 1
	}
	depths := make(map[string]int)
	g.chain(start, start, 1, maxDepth, depths)
	return depths
}

func (g *DependencyGraph) chain(origin, qn string, depth, maxDepth int, depths map[string]int) {
	if depth > maxDepth {
		return
	}
	for _, dep := range g.GetImpactedSymbols(qn) {
		if dep == origin {
			continue
		}
		if prev, seen := depths[dep]; seen && prev <= depth {
			continue
		}
		depths[dep] = depth
		g.chain(origin, dep, depth+1, maxDepth, depths)
	}
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
