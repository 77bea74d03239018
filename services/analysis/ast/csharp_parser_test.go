// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"testing"
)

const csharpTestSource = `using System.Text;
using Json = System.Text.Json;

namespace Shop.Services;

public class CartService
{
    private int itemCount;

    public int Count { get; set; }

    public void AddItem(string sku)
    {
        itemCount++;
    }
}

public interface IPriced
{
    long TotalCents();
}

public enum Currency
{
    USD,
    EUR,
}
`

func TestCSharpParser_Parse_Usings(t *testing.T) {
	parser := NewCSharpParser()
	result, err := parser.Parse(context.Background(), []byte(csharpTestSource), "Services/CartService.cs")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	plain := findImport(result.Imports, "System.Text")
	if plain == nil {
		t.Fatal("using System.Text not extracted")
	}
	if plain.Alias != "" {
		t.Errorf("plain using alias = %q, want empty", plain.Alias)
	}

	aliased := findImport(result.Imports, "System.Text.Json")
	if aliased == nil {
		t.Fatal("aliased using not extracted")
	}
	if aliased.Alias != "Json" {
		t.Errorf("aliased using alias = %q, want Json", aliased.Alias)
	}
}

func TestCSharpParser_Parse_Symbols(t *testing.T) {
	parser := NewCSharpParser()
	result, err := parser.Parse(context.Background(), []byte(csharpTestSource), "Services/CartService.cs")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cases := []struct {
		name string
		kind SymbolKind
	}{
		{"Shop.Services", SymbolKindNamespace},
		{"CartService", SymbolKindClass},
		{"AddItem", SymbolKindMethod},
		{"Count", SymbolKindProperty},
		{"itemCount", SymbolKindField},
		{"IPriced", SymbolKindInterface},
		{"Currency", SymbolKindEnum},
	}
	for _, tc := range cases {
		sym := findSymbol(result.Symbols, tc.name)
		if sym == nil {
			t.Errorf("symbol %q not extracted", tc.name)
			continue
		}
		if sym.Kind != tc.kind {
			t.Errorf("symbol %q kind = %q, want %q", tc.name, sym.Kind, tc.kind)
		}
	}

	svc := findSymbol(result.Symbols, "CartService")
	if svc != nil && svc.Metadata["namespace"] != "Shop.Services" {
		t.Errorf("CartService namespace = %q, want Shop.Services", svc.Metadata["namespace"])
	}
	if svc != nil && svc.Metadata["modifiers"] != "public" {
		t.Errorf("CartService modifiers = %q, want public", svc.Metadata["modifiers"])
	}
}
