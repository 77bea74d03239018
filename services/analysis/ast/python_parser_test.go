// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"errors"
	"testing"
)

const pythonTestSource = `from typing import Optional
import os
import numpy as np
from . import sibling
from ..utils import helper

MAX_RETRIES = 3
default_timeout = 30

class Account:
    def balance(self):
        return self._cents

    def _internal(self):
        pass

def open_account(owner):
    def audit():
        pass
    return Account()

def _bootstrap():
    pass
`

func findSymbol(symbols []*Symbol, name string) *Symbol {
	for _, s := range symbols {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func findImport(imports []Import, path string) *Import {
	for i := range imports {
		if imports[i].Path == path {
			return &imports[i]
		}
	}
	return nil
}

func TestPythonParser_Parse_Symbols(t *testing.T) {
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(pythonTestSource), "pkg/account.py")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Language != "python" {
		t.Errorf("Language = %q, want python", result.Language)
	}
	if result.FilePath != "pkg/account.py" {
		t.Errorf("FilePath = %q, want pkg/account.py", result.FilePath)
	}

	cases := []struct {
		name string
		kind SymbolKind
	}{
		{"Account", SymbolKindClass},
		{"balance", SymbolKindMethod},
		{"_internal", SymbolKindMethod},
		{"open_account", SymbolKindFunction},
		{"audit", SymbolKindFunction},
		{"_bootstrap", SymbolKindFunction},
		{"MAX_RETRIES", SymbolKindConstant},
		{"default_timeout", SymbolKindVariable},
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

	if sym := findSymbol(result.Symbols, "_bootstrap"); sym != nil && sym.Exported {
		t.Error("_bootstrap should not be exported")
	}
	if sym := findSymbol(result.Symbols, "open_account"); sym != nil && !sym.Exported {
		t.Error("open_account should be exported")
	}
}

func TestPythonParser_Parse_NestedRanges(t *testing.T) {
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(pythonTestSource), "pkg/account.py")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	outer := findSymbol(result.Symbols, "open_account")
	inner := findSymbol(result.Symbols, "audit")
	if outer == nil || inner == nil {
		t.Fatal("expected both open_account and audit")
	}
	if inner.StartByte <= outer.StartByte || inner.EndByte > outer.EndByte {
		t.Errorf("audit range [%d,%d) should nest inside open_account [%d,%d)",
			inner.StartByte, inner.EndByte, outer.StartByte, outer.EndByte)
	}
}

func TestPythonParser_Parse_Imports(t *testing.T) {
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(pythonTestSource), "pkg/account.py")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if imp := findImport(result.Imports, "os"); imp == nil {
		t.Error("import os not extracted")
	}
	np := findImport(result.Imports, "numpy")
	if np == nil {
		t.Fatal("import numpy as np not extracted")
	}
	if np.Alias != "np" {
		t.Errorf("numpy alias = %q, want np", np.Alias)
	}

	typing := findImport(result.Imports, "typing")
	if typing == nil {
		t.Fatal("from typing import Optional not extracted")
	}
	if len(typing.Names) != 1 || typing.Names[0] != "Optional" {
		t.Errorf("typing names = %v, want [Optional]", typing.Names)
	}

	var sibling, utils *Import
	for i := range result.Imports {
		switch {
		case result.Imports[i].Level == 1:
			sibling = &result.Imports[i]
		case result.Imports[i].Level == 2:
			utils = &result.Imports[i]
		}
	}
	if sibling == nil {
		t.Fatal("from . import sibling not extracted")
	}
	if sibling.Path != "" || len(sibling.Names) != 1 || sibling.Names[0] != "sibling" {
		t.Errorf("level-1 import = path %q names %v, want empty path and [sibling]", sibling.Path, sibling.Names)
	}
	if utils == nil {
		t.Fatal("from ..utils import helper not extracted")
	}
	if utils.Path != "utils" {
		t.Errorf("level-2 import path = %q, want utils", utils.Path)
	}
}

func TestPythonParser_Parse_Usages(t *testing.T) {
	src := `def charge(account):
    validate(account)
    return account.debit()
`
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(src), "billing.py")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	found := false
	for _, u := range result.Usages {
		if u.Name == "validate" {
			found = true
		}
		if u.Name == "charge" {
			t.Error("declaration name charge recorded as a usage")
		}
	}
	if !found {
		t.Error("call to validate not recorded as a usage")
	}
}

func TestPythonParser_Parse_EmptyFile(t *testing.T) {
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(""), "empty.py")
	if err != nil {
		t.Fatalf("Parse of empty file failed: %v", err)
	}
	if len(result.Symbols) != 0 || len(result.Imports) != 0 {
		t.Errorf("empty file produced %d symbols, %d imports", len(result.Symbols), len(result.Imports))
	}
}

func TestPythonParser_Parse_FileTooLarge(t *testing.T) {
	parser := NewPythonParser(WithPythonMaxFileSize(8))
	_, err := parser.Parse(context.Background(), []byte("x = 1\ny = 2\n"), "big.py")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestPythonParser_Parse_InvalidContent(t *testing.T) {
	parser := NewPythonParser()
	_, err := parser.Parse(context.Background(), []byte{0xff, 0xfe, 0xfd}, "bad.py")
	if !errors.Is(err, ErrInvalidContent) {
		t.Errorf("err = %v, want ErrInvalidContent", err)
	}
}

func TestPythonParser_Parse_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	parser := NewPythonParser()
	if _, err := parser.Parse(ctx, []byte("x = 1\n"), "a.py"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
