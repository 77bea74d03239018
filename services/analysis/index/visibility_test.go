// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package index

import (
	"testing"

	"github.com/beringlabs/bering/services/analysis/ast"
)

func TestInferVisibility(t *testing.T) {
	cases := []struct {
		desc string
		sym  ast.Symbol
		want ast.Visibility
	}{
		{"python public", ast.Symbol{Language: "python", Name: "compute"}, ast.VisibilityPublic},
		{"python private", ast.Symbol{Language: "python", Name: "_compute"}, ast.VisibilityPrivate},
		{"python dunder", ast.Symbol{Language: "python", Name: "__init__"}, ast.VisibilityInternal},
		{"js exported", ast.Symbol{Language: "javascript", Name: "render", Exported: true}, ast.VisibilityPublic},
		{"js module-internal", ast.Symbol{Language: "javascript", Name: "render"}, ast.VisibilityInternal},
		{"ts underscore", ast.Symbol{Language: "typescript", Name: "_cache", Exported: true}, ast.VisibilityPrivate},
		{"java explicit public", ast.Symbol{Language: "java", Name: "run", Metadata: map[string]string{"modifiers": "public static"}}, ast.VisibilityPublic},
		{"java explicit protected", ast.Symbol{Language: "java", Name: "run", Metadata: map[string]string{"modifiers": "protected"}}, ast.VisibilityProtected},
		{"java default package-private", ast.Symbol{Language: "java", Name: "run"}, ast.VisibilityInternal},
		{"csharp default private", ast.Symbol{Language: "csharp", Name: "Run"}, ast.VisibilityPrivate},
		{"csharp internal", ast.Symbol{Language: "csharp", Name: "Run", Metadata: map[string]string{"modifiers": "internal sealed"}}, ast.VisibilityInternal},
		{"unknown language", ast.Symbol{Language: "cobol", Name: "PERFORM"}, ast.VisibilityPublic},
	}
	for _, tc := range cases {
		sym := tc.sym
		if got := InferVisibility(&sym); got != tc.want {
			t.Errorf("%s: InferVisibility = %q, want %q", tc.desc, got, tc.want)
		}
	}

	if got := InferVisibility(nil); got != ast.VisibilityPublic {
		t.Errorf("InferVisibility(nil) = %q, want public", got)
	}
}
