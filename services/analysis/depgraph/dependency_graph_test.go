// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package depgraph

import (
	"reflect"
	"testing"

	"github.com/beringlabs/bering/services/analysis/ast"
	"github.com/beringlabs/bering/services/analysis/index"
)

func TestDependencyGraph_AddDependency(t *testing.T) {
	g := NewDependencyGraph()
	g.AddDependency("a.py::caller", "b.py::helper")
	g.AddDependency("a.py::caller", "b.py::helper") // duplicate
	g.AddDependency("a.py::caller", "a.py::caller") // self-edge
	g.AddDependency("", "b.py::helper")

	if n := g.EdgeCount(); n != 1 {
		t.Errorf("EdgeCount = %d, want 1", n)
	}
	if got := g.GetImpactedSymbols("b.py::helper"); !reflect.DeepEqual(got, []string{"a.py::caller"}) {
		t.Errorf("impacted = %v, want [a.py::caller]", got)
	}
	if got := g.GetDependenciesOf("a.py::caller"); !reflect.DeepEqual(got, []string{"b.py::helper"}) {
		t.Errorf("dependencies = %v, want [b.py::helper]", got)
	}
}

// Dependents and dependencies are mirror views of the same edges.
func TestDependencyGraph_EdgeSymmetry(t *testing.T) {
	g := NewDependencyGraph()
	edges := [][2]string{
		{"a.py::f", "b.py::g"},
		{"a.py::f", "c.py::h"},
		{"b.py::g", "c.py::h"},
	}
	for _, e := range edges {
		g.AddDependency(e[0], e[1])
	}

	for _, e := range edges {
		found := false
		for _, dep := range g.GetImpactedSymbols(e[1]) {
			if dep == e[0] {
				found = true
			}
		}
		if !found {
			t.Errorf("edge %v missing from dependents view", e)
		}
		found = false
		for _, dep := range g.GetDependenciesOf(e[0]) {
			if dep == e[1] {
				found = true
			}
		}
		if !found {
			t.Errorf("edge %v missing from dependencies view", e)
		}
	}
}

func TestDependencyGraph_GetDependencyChain(t *testing.T) {
	g := NewDependencyGraph()
	// handler -> service -> repo: repo's change impact reaches handler.
	g.AddDependency("service.py::process", "repo.py::query")
	g.AddDependency("handler.py::handle", "service.py::process")

	chain := g.GetDependencyChain("repo.py::query", 3)
	want := map[string]int{
		"service.py::process": 1,
		"handler.py::handle":  2,
	}
	if !reflect.DeepEqual(chain, want) {
		t.Errorf("chain = %v, want %v", chain, want)
	}

	// Depth 1 stops at direct dependents.
	chain = g.GetDependencyChain("repo.py::query", 1)
	if len(chain) != 1 || chain["service.py::process"] != 1 {
		t.Errorf("depth-1 chain = %v", chain)
	}
}

func TestDependencyGraph_ChainSurvivesCycles(t *testing.T) {
	g := NewDependencyGraph()
	g.AddDependency("a.py::f", "b.py::g")
	g.AddDependency("b.py::g", "a.py::f")

	chain := g.GetDependencyChain("a.py::f", 10)
	if chain["b.py::g"] != 1 {
		t.Errorf("chain = %v, want b.py::g at depth 1", chain)
	}
	if _, ok := chain["a.py::f"]; ok {
		t.Error("origin reported in its own chain")
	}
}

func TestDependencyGraph_GetImpactedFiles(t *testing.T) {
	idx := index.NewSymbolIndex()
	syms := []*ast.Symbol{
		{Name: "query", Kind: ast.SymbolKindFunction, FilePath: "repo.py", Language: "python", Visibility: ast.VisibilityPublic},
		{Name: "process", Kind: ast.SymbolKindFunction, FilePath: "service.py", Language: "python", Visibility: ast.VisibilityPublic},
		{Name: "localHelper", Kind: ast.SymbolKindFunction, FilePath: "repo.py", Language: "python", Visibility: ast.VisibilityPublic},
	}
	for _, s := range syms {
		if err := idx.Add(s); err != nil {
			t.Fatal(err)
		}
	}

	g := NewDependencyGraph()
	g.AddDependency("service.py::process", "repo.py::query")
	g.AddDependency("repo.py::localHelper", "repo.py::query") // same-file, excluded

	got := g.GetImpactedFiles("repo.py", idx)
	if !reflect.DeepEqual(got, []string{"service.py"}) {
		t.Errorf("impacted files = %v, want [service.py]", got)
	}
}

func TestDependencyGraph_GetCriticalDependencies(t *testing.T) {
	g := NewDependencyGraph()
	for i := 0; i < 12; i++ {
		g.AddDependency(qn("caller", i), "core.py::config")
	}
	g.AddDependency("a.py::f", "core.py::minor")

	crit := g.GetCriticalDependencies(10)
	if len(crit) != 1 {
		t.Fatalf("critical = %v, want only core.py::config", crit)
	}
	if crit[0].DependentCount != 12 || crit[0].Criticality != CriticalityMedium {
		t.Errorf("critical = %+v, want 12 dependents at medium", crit[0])
	}

	crit = g.GetCriticalDependencies(1)
	if len(crit) != 2 || crit[0].QualifiedName != "core.py::config" {
		t.Errorf("threshold 1 = %v, want config first by count", crit)
	}
}

func qn(base string, i int) string {
	return base + string(rune('a'+i)) + ".py::f"
}

func TestDependencyGraph_GetUnusedSymbols(t *testing.T) {
	idx := index.NewSymbolIndex()
	syms := []*ast.Symbol{
		{Name: "usedFunc", Kind: ast.SymbolKindFunction, FilePath: "a.py", Language: "python", Visibility: ast.VisibilityPublic},
		{Name: "deadFunc", Kind: ast.SymbolKindFunction, FilePath: "a.py", Language: "python", Visibility: ast.VisibilityPublic},
		{Name: "test_roundtrip", Kind: ast.SymbolKindFunction, FilePath: "a_test.py", Language: "python", Visibility: ast.VisibilityPublic},
		{Name: "_private", Kind: ast.SymbolKindFunction, FilePath: "a.py", Language: "python", Visibility: ast.VisibilityPrivate},
		{Name: "deadVar", Kind: ast.SymbolKindVariable, FilePath: "a.py", Language: "python", Visibility: ast.VisibilityPublic},
	}
	for _, s := range syms {
		if err := idx.Add(s); err != nil {
			t.Fatal(err)
		}
	}

	g := NewDependencyGraph()
	g.AddDependency("b.py::caller", "a.py::usedFunc")

	unused := g.GetUnusedSymbols(idx)
	byName := make(map[string]UnusedSymbol, len(unused))
	for _, u := range unused {
		byName[u.QualifiedName] = u
	}

	if len(unused) != 2 {
		t.Fatalf("unused = %v, want deadFunc and test_roundtrip only", unused)
	}
	if u := byName["a.py::deadFunc"]; u.Confidence != ConfidenceHigh {
		t.Errorf("deadFunc confidence = %q, want high", u.Confidence)
	}
	if u := byName["a_test.py::test_roundtrip"]; u.Confidence != ConfidenceMedium {
		t.Errorf("test symbol confidence = %q, want medium", u.Confidence)
	}
}
