// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSession_CacheHitOnUnchangedTree(t *testing.T) {
	root := cyclicPythonProject(t)
	s := NewSession()
	defer s.Close()
	ctx := context.Background()

	first, err := s.Graph(ctx, Options{Root: root})
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	second, err := s.Graph(ctx, Options{Root: root})
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	if first != second {
		t.Error("unchanged tree rebuilt instead of serving the cached graph")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestSession_RebuildsOnSignatureChange(t *testing.T) {
	root := cyclicPythonProject(t)
	s := NewSession()
	defer s.Close()
	ctx := context.Background()

	first, err := s.Graph(ctx, Options{Root: root})
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}

	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(root, "orders.py"), future, future); err != nil {
		t.Fatal(err)
	}

	second, err := s.Graph(ctx, Options{Root: root})
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	if first == second {
		t.Error("touched tree served from cache")
	}
	if first.Signature == second.Signature {
		t.Error("signature unchanged after touch")
	}
}

func TestSession_Invalidate(t *testing.T) {
	root := cyclicPythonProject(t)
	s := NewSession()
	defer s.Close()
	ctx := context.Background()

	first, err := s.Graph(ctx, Options{Root: root})
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	s.Invalidate(root)
	if s.Len() != 0 {
		t.Errorf("Len after Invalidate = %d, want 0", s.Len())
	}

	second, err := s.Graph(ctx, Options{Root: root})
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	if first == second {
		t.Error("invalidated graph returned from cache")
	}
}

func TestSession_EvictsLeastRecentlyUsed(t *testing.T) {
	rootA := cyclicPythonProject(t)
	rootB := writeTree(t, map[string]string{"solo.py": "x = 1\n"})
	s := NewSession(WithGraphCacheSize(1))
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Graph(ctx, Options{Root: rootA}); err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	if _, err := s.Graph(ctx, Options{Root: rootB}); err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1 after eviction", s.Len())
	}
}

func TestSession_SeparateKeysPerLanguageSet(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":    "x = 1\n",
		"src/a.ts":  "export const a = 1;\n",
	})
	s := NewSession()
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Graph(ctx, Options{Root: root, Languages: []string{"python"}}); err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	if _, err := s.ScriptGraph(ctx, Options{Root: root}); err != nil {
		t.Fatalf("ScriptGraph failed: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2 distinct cache entries", s.Len())
	}
}

func TestSession_Close(t *testing.T) {
	root := cyclicPythonProject(t)
	s := NewSession()
	ctx := context.Background()

	if _, err := s.Graph(ctx, Options{Root: root}); err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	s.Close()
	if s.Len() != 0 {
		t.Errorf("Len after Close = %d, want 0", s.Len())
	}
	if _, err := s.Graph(ctx, Options{Root: root}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Graph after Close = %v, want ErrSessionClosed", err)
	}
}
