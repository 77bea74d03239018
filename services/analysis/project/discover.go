// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package project orchestrates the per-language analyses into one
// project graph: import graph, symbol index and symbol dependency graph,
// built together and cached by content signature.
package project

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beringlabs/bering/services/analysis/ast"
)

// defaultExcludedDirs are directory names skipped during discovery
// regardless of configuration. They hold generated or vendored code that
// would drown the project's own modules.
var defaultExcludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"bin":          true,
	"obj":          true,
	".idea":        true,
	".vscode":      true,
}

// DiscoverFiles walks root and returns the source files of the given
// languages, sorted, as paths relative to root with forward slashes.
//
// Inputs:
//
//	languages - adapter language names ("python", "typescript", ...).
//	            Empty means every registered language.
//	excluded  - extra directory names or glob patterns to skip, on top
//	            of the built-in exclusions.
func DiscoverFiles(root string, adapters *ast.Registry, languages []string, excluded []string) ([]string, error) {
	wanted := make(map[string]bool, len(languages))
	for _, l := range languages {
		wanted[l] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (defaultExcludedDirs[name] || matchesAny(name, excluded)) {
				return filepath.SkipDir
			}
			return nil
		}
		lang := adapters.LanguageForFile(path)
		if lang == "" {
			return nil
		}
		if len(wanted) > 0 && !wanted[lang] {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matchesAny(rel, excluded) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// matchesAny checks a name or relative path against exclusion entries:
// exact segment match or glob against the full path.
func matchesAny(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	segments := strings.Split(path, "/")
	for _, pat := range patterns {
		for _, seg := range segments {
			if seg == pat {
				return true
			}
		}
		if ok, _ := filepath.Match(pat, path); ok {
			return true
		}
	}
	return false
}
