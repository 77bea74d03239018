// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/beringlabs/bering/services/analysis/ast"
)

// BuildOptions configures BuildSymbolIndex.
type BuildOptions struct {
	// ExcludedPaths lists path components or glob patterns; a file is
	// skipped when any of its path segments equals an entry or when the
	// entry globs against the full relative path.
	ExcludedPaths []string

	// MaxSymbols caps the resulting index.
	MaxSymbols int
}

// BuildSymbolIndex parses every recognized file and indexes its symbols.
//
// Description:
//
//	Per file: detect language by extension, parse with the matching
//	adapter, index every extracted symbol. Construction is best-effort:
//	read and parse failures are logged and the file is skipped; a
//	malformed symbol record is skipped with a warning rather than
//	aborting the build. Visibility is inferred here for symbols the
//	parser left unclassified.
//
// Inputs:
//
//	files - project-relative or absolute paths. Relative paths are read
//	        as given; FilePath on symbols keeps the supplied form.
//
// Outputs:
//
//	*SymbolIndex - never nil; holds everything that indexed cleanly.
//	error - only a context error aborts the build.
func BuildSymbolIndex(ctx context.Context, files []string, adapters *ast.Registry, opts BuildOptions) (*SymbolIndex, error) {
	var idxOpts []SymbolIndexOption
	if opts.MaxSymbols > 0 {
		idxOpts = append(idxOpts, WithMaxSymbols(opts.MaxSymbols))
	}
	idx := NewSymbolIndex(idxOpts...)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return idx, err
		}
		if isExcluded(file, opts.ExcludedPaths) {
			continue
		}
		parser, ok := adapters.ForFile(file)
		if !ok {
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			slog.Warn("symbol index: skipping unreadable file", "file", file, "error", err)
			continue
		}
		result, err := parser.Parse(ctx, content, file)
		if err != nil {
			slog.Warn("symbol index: skipping unparsable file", "file", file, "error", err)
			continue
		}

		for _, sym := range result.Symbols {
			if sym.Visibility == "" {
				sym.Visibility = InferVisibility(sym)
			}
			if err := idx.Add(sym); err != nil {
				if err == ErrMaxSymbolsExceeded {
					slog.Warn("symbol index: capacity reached, truncating", "file", file)
					return idx, nil
				}
				slog.Warn("symbol index: skipping malformed symbol", "file", file, "error", err)
			}
		}
	}
	return idx, nil
}

// isExcluded checks a file against excluded path components and globs.
func isExcluded(file string, excluded []string) bool {
	if len(excluded) == 0 {
		return false
	}
	norm := filepath.ToSlash(file)
	segments := strings.Split(norm, "/")
	for _, pat := range excluded {
		for _, seg := range segments {
			if seg == pat {
				return true
			}
		}
		if ok, _ := filepath.Match(pat, norm); ok {
			return true
		}
	}
	return false
}
