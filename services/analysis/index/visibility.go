// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package index

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/beringlabs/bering/services/analysis/ast"
)

// InferVisibility guesses a symbol's visibility from per-language
// conventions when the source carries no explicit modifier.
//
// Heuristics:
//   - Python: dunder names are internal machinery, a single leading
//     underscore means private, anything else public.
//   - JavaScript/TypeScript: leading underscore means private; exported
//     symbols are public, the rest module-internal.
//   - Java/C#: explicit modifiers from Metadata["modifiers"]; Java
//     defaults to package-private (internal), C# to private.
//   - C++: Metadata["access"] from the enclosing access specifier.
//   - Go: identifier case.
//   - Rust: Metadata["pub"].
func InferVisibility(sym *ast.Symbol) ast.Visibility {
	if sym == nil {
		return ast.VisibilityPublic
	}
	switch sym.Language {
	case "python":
		if strings.HasPrefix(sym.Name, "__") && strings.HasSuffix(sym.Name, "__") {
			return ast.VisibilityInternal
		}
		if strings.HasPrefix(sym.Name, "_") {
			return ast.VisibilityPrivate
		}
		return ast.VisibilityPublic

	case "javascript", "typescript":
		if strings.HasPrefix(sym.Name, "_") {
			return ast.VisibilityPrivate
		}
		if sym.Exported {
			return ast.VisibilityPublic
		}
		return ast.VisibilityInternal

	case "java":
		return modifierVisibility(sym, ast.VisibilityInternal)

	case "csharp":
		return modifierVisibility(sym, ast.VisibilityPrivate)

	case "cpp", "c++":
		switch sym.Metadata["access"] {
		case "private":
			return ast.VisibilityPrivate
		case "protected":
			return ast.VisibilityProtected
		}
		return ast.VisibilityPublic

	case "go":
		r, _ := utf8.DecodeRuneInString(sym.Name)
		if unicode.IsUpper(r) {
			return ast.VisibilityPublic
		}
		return ast.VisibilityPrivate

	case "rust":
		if sym.Metadata["pub"] == "true" {
			return ast.VisibilityPublic
		}
		return ast.VisibilityPrivate
	}
	return ast.VisibilityPublic
}

// modifierVisibility reads an explicit modifier list, falling back to
// the language default.
func modifierVisibility(sym *ast.Symbol, def ast.Visibility) ast.Visibility {
	mods := sym.Metadata["modifiers"]
	switch {
	case strings.Contains(mods, "public"):
		return ast.VisibilityPublic
	case strings.Contains(mods, "protected"):
		return ast.VisibilityProtected
	case strings.Contains(mods, "private"):
		return ast.VisibilityPrivate
	case strings.Contains(mods, "internal"):
		return ast.VisibilityInternal
	}
	return def
}
