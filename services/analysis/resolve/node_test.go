// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"path/filepath"
	"testing"
)

func scriptProject(t *testing.T) string {
	return writeFiles(t, map[string]string{
		"src/app.js":        "const cart = require('./cart');\n",
		"src/cart.js":       "",
		"src/util/index.js": "",
		"src/pricing.ts":    "",
		"node_modules/express/package.json": `{"main": "lib/express.js"}`,
		"node_modules/express/lib/express.js": "",
		"node_modules/@scope/logkit/index.js": "",
	})
}

func TestJavaScriptResolver_CanonicalModule(t *testing.T) {
	root := scriptProject(t)
	r := NewJavaScriptResolver(root)

	cases := []struct {
		path   string
		module string
	}{
		{"src/app.js", "src/app"},
		{"src/util/index.js", "src/util"},
		{"src/pricing.ts", "src/pricing"},
	}
	for _, tc := range cases {
		got, ok := r.CanonicalModule(filepath.Join(root, filepath.FromSlash(tc.path)))
		if !ok || got != tc.module {
			t.Errorf("CanonicalModule(%s) = %q (ok=%v), want %q", tc.path, got, ok, tc.module)
		}
	}
}

func TestJavaScriptResolver_ResolveRelative(t *testing.T) {
	root := scriptProject(t)
	r := NewJavaScriptResolver(root)
	from := filepath.Join(root, "src", "app.js")

	res := r.Resolve(from, "./cart", nil)
	if res.Kind != KindProjectFile || res.Module != "src/cart" {
		t.Errorf("./cart = %q/%q, want src/cart/project_file", res.Module, res.Kind)
	}

	res = r.Resolve(from, "./util", nil)
	if res.Kind != KindPackageInit || res.Module != "src/util" {
		t.Errorf("./util = %q/%q, want src/util/package_init", res.Module, res.Kind)
	}

	res = r.Resolve(from, "./nope", nil)
	if res.Kind != KindMissing {
		t.Errorf("./nope kind = %q, want missing", res.Kind)
	}
}

func TestJavaScriptResolver_ResolveBare(t *testing.T) {
	root := scriptProject(t)
	r := NewJavaScriptResolver(root)
	from := filepath.Join(root, "src", "app.js")

	res := r.Resolve(from, "express", nil)
	if res.Kind != KindThirdParty {
		t.Fatalf("express kind = %q, want third_party", res.Kind)
	}
	if res.FilePath != filepath.Join(root, "node_modules", "express", "lib", "express.js") {
		t.Errorf("express entry = %q, want package.json main", res.FilePath)
	}

	res = r.Resolve(from, "@scope/logkit", nil)
	if res.Kind != KindThirdParty {
		t.Errorf("@scope/logkit kind = %q, want third_party", res.Kind)
	}

	res = r.Resolve(from, "fs", nil)
	if res.Kind != KindBuiltin {
		t.Errorf("fs kind = %q, want builtin", res.Kind)
	}
	res = r.Resolve(from, "node:path", nil)
	if res.Kind != KindBuiltin || res.Module != "path" {
		t.Errorf("node:path = %q/%q, want path/builtin", res.Module, res.Kind)
	}

	res = r.Resolve(from, "not-installed-anywhere", nil)
	if res.Kind != KindThirdParty {
		t.Errorf("lenient unresolved kind = %q, want third_party", res.Kind)
	}

	strict := NewJavaScriptResolver(root, WithJavaScriptPolicy(PolicyStrict))
	if res := strict.Resolve(from, "not-installed-anywhere", nil); res.Kind != KindMissing {
		t.Errorf("strict unresolved kind = %q, want missing", res.Kind)
	}
}

func TestTypeScriptResolver_PrefersTypeScriptSources(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"src/main.ts":  "import { total } from './pricing';\n",
		"src/pricing.ts": "",
		"src/pricing.js": "",
	})
	r := NewTypeScriptResolver(root)
	from := filepath.Join(root, "src", "main.ts")

	res := r.Resolve(from, "./pricing", nil)
	if res.FilePath != filepath.Join(root, "src", "pricing.ts") {
		t.Errorf("TypeScript resolver picked %q, want the .ts source", res.FilePath)
	}

	js := NewJavaScriptResolver(root)
	res = js.Resolve(from, "./pricing", nil)
	if res.FilePath != filepath.Join(root, "src", "pricing.js") {
		t.Errorf("JavaScript resolver picked %q, want the .js source", res.FilePath)
	}
}
