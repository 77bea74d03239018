// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package depgraph

import (
	"context"
	"reflect"
	"testing"

	"github.com/beringlabs/bering/services/analysis/ast"
	"github.com/beringlabs/bering/services/analysis/index"
)

func spanSymbol(name string, kind ast.SymbolKind, file string, start, end int) *ast.Symbol {
	return &ast.Symbol{
		Name:       name,
		Kind:       kind,
		FilePath:   file,
		Language:   "python",
		StartByte:  start,
		EndByte:    end,
		Visibility: ast.VisibilityPublic,
	}
}

func indexOf(t *testing.T, syms ...*ast.Symbol) *index.SymbolIndex {
	t.Helper()
	idx := index.NewSymbolIndex()
	for _, s := range syms {
		if err := idx.Add(s); err != nil {
			t.Fatal(err)
		}
	}
	return idx
}

func TestBuild_CrossFileEdges(t *testing.T) {
	caller := spanSymbol("handle", ast.SymbolKindFunction, "api.py", 0, 100)
	helper := spanSymbol("helper", ast.SymbolKindFunction, "util.py", 0, 50)
	idx := indexOf(t, caller, helper)

	results := []*ast.ParseResult{
		{
			FilePath: "api.py",
			Language: "python",
			Usages:   []ast.Usage{{Name: "helper", StartByte: 40}},
		},
		{FilePath: "util.py", Language: "python"},
	}

	g, err := Build(context.Background(), results, idx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	got := g.GetDependenciesOf("api.py::handle")
	if !reflect.DeepEqual(got, []string{"util.py::helper"}) {
		t.Errorf("dependencies = %v, want [util.py::helper]", got)
	}
}

func TestBuild_InnermostEnclosingSymbol(t *testing.T) {
	outer := spanSymbol("outer", ast.SymbolKindFunction, "a.py", 0, 200)
	inner := spanSymbol("inner", ast.SymbolKindFunction, "a.py", 50, 150)
	target := spanSymbol("target", ast.SymbolKindFunction, "b.py", 0, 30)
	idx := indexOf(t, outer, inner, target)

	results := []*ast.ParseResult{
		{
			FilePath: "a.py",
			Language: "python",
			Usages: []ast.Usage{
				{Name: "target", StartByte: 100}, // inside inner
				{Name: "target", StartByte: 180}, // inside outer only
			},
		},
	}

	g, err := Build(context.Background(), results, idx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := g.GetImpactedSymbols("b.py::target"); !reflect.DeepEqual(got, []string{"a.py::inner", "a.py::outer"}) {
		t.Errorf("impacted = %v, want [a.py::inner a.py::outer]", got)
	}
}

func TestBuild_PrefersCrossFileCandidate(t *testing.T) {
	caller := spanSymbol("caller", ast.SymbolKindFunction, "a.py", 0, 100)
	localFmt := spanSymbol("format", ast.SymbolKindFunction, "a.py", 100, 150)
	remoteFmt := spanSymbol("format", ast.SymbolKindFunction, "b.py", 0, 50)
	idx := indexOf(t, caller, localFmt, remoteFmt)

	results := []*ast.ParseResult{
		{
			FilePath: "a.py",
			Language: "python",
			Usages:   []ast.Usage{{Name: "format", StartByte: 20}},
		},
	}

	g, err := Build(context.Background(), results, idx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	got := g.GetDependenciesOf("a.py::caller")
	if !reflect.DeepEqual(got, []string{"b.py::format"}) {
		t.Errorf("dependencies = %v, want the cross-file declaration", got)
	}
}

func TestBuild_SkipsUnanchoredUsages(t *testing.T) {
	helper := spanSymbol("helper", ast.SymbolKindFunction, "b.py", 0, 50)
	idx := indexOf(t, helper)

	results := []*ast.ParseResult{
		{
			FilePath: "a.py",
			Language: "python",
			// Module-level usage with no enclosing declaration.
			Usages: []ast.Usage{{Name: "helper", StartByte: 5}},
		},
		nil,
	}

	g, err := Build(context.Background(), results, idx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if n := g.EdgeCount(); n != 0 {
		t.Errorf("EdgeCount = %d, want 0 for module-level usages", n)
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx := index.NewSymbolIndex()
	_, err := Build(ctx, []*ast.ParseResult{{FilePath: "a.py"}}, idx)
	if err == nil {
		t.Error("Build with cancelled context should fail")
	}
}
