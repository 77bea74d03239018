// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/beringlabs/bering/services/analysis/ast"
)

// writeTree lays out a project under a temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return root
}

func TestDiscoverFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":                  "",
		"pkg/util.py":             "",
		"web/index.ts":            "",
		"node_modules/x/dep.js":   "",
		"__pycache__/app.pyc.py":  "",
		"generated/schema.py":     "",
		"README.md":               "",
	})

	files, err := DiscoverFiles(root, ast.DefaultRegistry(), nil, []string{"generated"})
	if err != nil {
		t.Fatalf("DiscoverFiles failed: %v", err)
	}
	want := []string{"app.py", "pkg/util.py", "web/index.ts"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("DiscoverFiles = %v, want %v", files, want)
	}

	pyOnly, err := DiscoverFiles(root, ast.DefaultRegistry(), []string{"python"}, []string{"generated"})
	if err != nil {
		t.Fatalf("DiscoverFiles failed: %v", err)
	}
	if !reflect.DeepEqual(pyOnly, []string{"app.py", "pkg/util.py"}) {
		t.Errorf("python-only discovery = %v", pyOnly)
	}
}

func TestContentSignature(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "y = 2\n",
	})
	files := []string{"a.py", "b.py"}

	first := ContentSignature(root, files)
	if first != ContentSignature(root, files) {
		t.Error("signature not deterministic for an unchanged tree")
	}
	if first == ContentSignature(root, []string{"a.py"}) {
		t.Error("signature ignores the file set")
	}

	// Order of the input list must not matter.
	if first != ContentSignature(root, []string{"b.py", "a.py"}) {
		t.Error("signature depends on input order")
	}

	// Touching a file changes the digest.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(root, "a.py"), future, future); err != nil {
		t.Fatal(err)
	}
	if first == ContentSignature(root, files) {
		t.Error("signature unchanged after touching a file")
	}

	// A missing file contributes a sentinel instead of failing.
	withGhost := ContentSignature(root, []string{"a.py", "b.py", "ghost.py"})
	if withGhost == ContentSignature(root, files) {
		t.Error("missing file did not change the signature")
	}
}
