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

const javaTestSource = `package com.shop.billing;

import java.util.List;
import com.shop.models.*;

public class Invoice {
    public static final int MAX_LINES = 100;

    private List<String> lines;

    public Invoice() {}

    public void addLine(String line) {
        lines.add(line);
    }

    protected int lineCount() {
        return lines.size();
    }
}

interface Priced {
    long totalCents();
}

enum Currency {
    USD,
    EUR,
}
`

func TestJavaParser_Parse_Imports(t *testing.T) {
	parser := NewJavaParser()
	result, err := parser.Parse(context.Background(), []byte(javaTestSource), "com/shop/billing/Invoice.java")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	single := findImport(result.Imports, "java.util.List")
	if single == nil {
		t.Fatal("single-type import not extracted")
	}
	if single.IsWildcard {
		t.Error("single-type import flagged as wildcard")
	}

	wildcard := findImport(result.Imports, "com.shop.models")
	if wildcard == nil {
		t.Fatal("wildcard import not extracted")
	}
	if !wildcard.IsWildcard {
		t.Error("wildcard import not flagged")
	}
}

func TestJavaParser_Parse_Symbols(t *testing.T) {
	parser := NewJavaParser()
	result, err := parser.Parse(context.Background(), []byte(javaTestSource), "com/shop/billing/Invoice.java")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cases := []struct {
		name string
		kind SymbolKind
	}{
		{"Invoice", SymbolKindClass},
		{"addLine", SymbolKindMethod},
		{"lineCount", SymbolKindMethod},
		{"lines", SymbolKindField},
		{"Priced", SymbolKindInterface},
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
}

func TestJavaParser_Parse_Modifiers(t *testing.T) {
	parser := NewJavaParser()
	result, err := parser.Parse(context.Background(), []byte(javaTestSource), "com/shop/billing/Invoice.java")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	invoice := findSymbol(result.Symbols, "Invoice")
	if invoice == nil {
		t.Fatal("Invoice not extracted")
	}
	if invoice.Metadata["modifiers"] != "public" {
		t.Errorf("Invoice modifiers = %q, want public", invoice.Metadata["modifiers"])
	}

	count := findSymbol(result.Symbols, "lineCount")
	if count == nil {
		t.Fatal("lineCount not extracted")
	}
	if count.Metadata["modifiers"] != "protected" {
		t.Errorf("lineCount modifiers = %q, want protected", count.Metadata["modifiers"])
	}
}
