// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import "testing"

func TestDefaultRegistry_ForFile(t *testing.T) {
	r := DefaultRegistry()

	cases := []struct {
		path string
		lang string
	}{
		{"pkg/module.py", "python"},
		{"types.pyi", "python"},
		{"src/app.js", "javascript"},
		{"src/app.jsx", "javascript"},
		{"src/app.mjs", "javascript"},
		{"src/app.ts", "typescript"},
		{"src/App.TSX", "typescript"},
		{"com/example/Main.java", "java"},
		{"Services/CartService.cs", "csharp"},
	}
	for _, tc := range cases {
		if got := r.LanguageForFile(tc.path); got != tc.lang {
			t.Errorf("LanguageForFile(%q) = %q, want %q", tc.path, got, tc.lang)
		}
	}

	if got := r.LanguageForFile("README.md"); got != "" {
		t.Errorf("LanguageForFile(README.md) = %q, want empty", got)
	}
	if _, ok := r.ForFile("Makefile"); ok {
		t.Error("ForFile(Makefile) should not match any parser")
	}
}

func TestDefaultRegistry_Languages(t *testing.T) {
	r := DefaultRegistry()
	langs := make(map[string]bool)
	for _, l := range r.Languages() {
		langs[l] = true
	}
	for _, want := range []string{"python", "javascript", "typescript", "java", "csharp"} {
		if !langs[want] {
			t.Errorf("language %q not registered", want)
		}
	}
}
