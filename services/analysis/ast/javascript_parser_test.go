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

const javascriptTestSource = `import defaultExport from './local';
import * as ns from 'path';
import { readCart, writeCart } from './cart';
const express = require('express');

export function createServer(opts) {
  return express();
}

export class CartController {
  list(req, res) {}
  _reset() {}
}

const toCents = (amount) => Math.round(amount * 100);
var legacyFlag = true;
`

func TestJavaScriptParser_Parse_Imports(t *testing.T) {
	parser := NewJavaScriptParser()
	result, err := parser.Parse(context.Background(), []byte(javascriptTestSource), "src/server.js")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	local := findImport(result.Imports, "./local")
	if local == nil {
		t.Fatal("default import ./local not extracted")
	}
	if len(local.Names) != 1 || local.Names[0] != "defaultExport" {
		t.Errorf("default import names = %v, want [defaultExport]", local.Names)
	}

	ns := findImport(result.Imports, "path")
	if ns == nil {
		t.Fatal("namespace import path not extracted")
	}
	if !ns.IsWildcard || ns.Alias != "ns" {
		t.Errorf("namespace import = wildcard %v alias %q, want true/ns", ns.IsWildcard, ns.Alias)
	}

	cart := findImport(result.Imports, "./cart")
	if cart == nil {
		t.Fatal("named import ./cart not extracted")
	}
	if len(cart.Names) != 2 || cart.Names[0] != "readCart" || cart.Names[1] != "writeCart" {
		t.Errorf("named import names = %v, want [readCart writeCart]", cart.Names)
	}

	express := findImport(result.Imports, "express")
	if express == nil {
		t.Fatal("require('express') not extracted as an import")
	}
	if express.Alias != "express" {
		t.Errorf("require alias = %q, want express", express.Alias)
	}
}

func TestJavaScriptParser_Parse_Symbols(t *testing.T) {
	parser := NewJavaScriptParser()
	result, err := parser.Parse(context.Background(), []byte(javascriptTestSource), "src/server.js")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cases := []struct {
		name     string
		kind     SymbolKind
		exported bool
	}{
		{"createServer", SymbolKindFunction, true},
		{"CartController", SymbolKindClass, true},
		{"list", SymbolKindMethod, true},
		{"toCents", SymbolKindFunction, false},
		{"legacyFlag", SymbolKindVariable, false},
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
		if sym.Exported != tc.exported {
			t.Errorf("symbol %q exported = %v, want %v", tc.name, sym.Exported, tc.exported)
		}
	}

	// The require binding is an import, not a variable symbol.
	if sym := findSymbol(result.Symbols, "express"); sym != nil {
		t.Error("require binding express should not be a symbol")
	}
}

func TestTypeScriptParser_Parse_TypeDeclarations(t *testing.T) {
	src := `import { Cart } from './cart';

export interface PricingRule {
  apply(cart: Cart): number;
}

export type Discount = { code: string; percent: number };

export enum Currency {
  USD,
  EUR,
}

export abstract class BaseRepository {
  abstract find(id: string): Cart;
}

export function totalOf(cart: Cart): number {
  return 0;
}
`
	parser := NewTypeScriptParser()
	if parser.Language() != "typescript" {
		t.Fatalf("Language = %q, want typescript", parser.Language())
	}
	result, err := parser.Parse(context.Background(), []byte(src), "src/pricing.ts")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cases := []struct {
		name string
		kind SymbolKind
	}{
		{"PricingRule", SymbolKindInterface},
		{"Currency", SymbolKindEnum},
		{"BaseRepository", SymbolKindClass},
		{"totalOf", SymbolKindFunction},
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

	if imp := findImport(result.Imports, "./cart"); imp == nil {
		t.Error("import ./cart not extracted")
	}
}

func TestTypeScriptParser_Extensions(t *testing.T) {
	parser := NewTypeScriptParser()
	exts := parser.Extensions()
	want := map[string]bool{".ts": false, ".tsx": false, ".d.ts": false}
	for _, e := range exts {
		if _, ok := want[e]; ok {
			want[e] = true
		}
	}
	for ext, seen := range want {
		if !seen {
			t.Errorf("extension %s not registered", ext)
		}
	}
}
