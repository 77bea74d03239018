// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/beringlabs/bering/services/analysis/ast"
	"github.com/beringlabs/bering/services/analysis/depgraph"
	"github.com/beringlabs/bering/services/analysis/graph"
	"github.com/beringlabs/bering/services/analysis/index"
	"github.com/beringlabs/bering/services/analysis/resolve"
)

// Options configures one project graph build.
type Options struct {
	// Root is the project root directory.
	Root string

	// Languages restricts analysis to these adapter language names.
	// Empty means every registered language.
	Languages []string

	// Files overrides discovery with an explicit file list, relative to
	// Root.
	Files []string

	// ExcludedPaths lists directory names or glob patterns to skip.
	ExcludedPaths []string

	// Policy selects how unmatched absolute imports classify.
	Policy resolve.Policy

	// PythonExtraPaths are additional Python source roots.
	PythonExtraPaths []string

	// MaxSymbols caps the symbol index. Zero keeps the index default.
	MaxSymbols int

	// Parallelism bounds the parse worker pool. Zero means GOMAXPROCS.
	Parallelism int

	// mergeScript treats JavaScript and TypeScript as one module space,
	// resolving both through the TypeScript resolver.
	mergeScript bool
}

// Graph is the assembled project graph.
type Graph struct {
	Root      string
	Languages []string
	Files     []string

	// Signature is the content signature the graph was built under.
	Signature string

	Imports      *graph.ImportGraph
	Symbols      *index.SymbolIndex
	Dependencies *depgraph.DependencyGraph

	BuiltAt  time.Time
	Duration time.Duration
}

// Build assembles the full project graph for a root directory.
//
// Description:
//
//	Discovery, a bounded parallel parse of every recognized file, then
//	three passes over the shared parse results: the import graph (one
//	resolver per language), the symbol index, and the symbol dependency
//	graph. Each file is read and parsed exactly once. Per-file failures
//	are logged and skipped; only a context error aborts the build.
//
// Outputs:
//
//	*Graph - never nil on nil error; all three sub-structures populated.
func Build(ctx context.Context, opts Options) (*Graph, error) {
	start := time.Now()
	ctx, span := startBuildSpan(ctx, opts.Root)
	defer span.End()

	adapters := ast.DefaultRegistry()

	files := opts.Files
	if len(files) == 0 {
		var err error
		files, err = DiscoverFiles(opts.Root, adapters, opts.Languages, opts.ExcludedPaths)
		if err != nil {
			return nil, fmt.Errorf("discovering files under %s: %w", opts.Root, err)
		}
	}

	results, err := parseAll(ctx, opts.Root, files, adapters, opts.Parallelism)
	if err != nil {
		return nil, err
	}

	resolvers := newResolverSet(opts)
	imports := buildImportGraph(opts.Root, results, adapters, resolvers)

	symbols, err := indexSymbols(ctx, results, opts.MaxSymbols)
	if err != nil {
		return nil, err
	}

	deps, err := depgraph.Build(ctx, results, symbols)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Root:         opts.Root,
		Languages:    presentLanguages(results),
		Files:        files,
		Signature:    ContentSignature(opts.Root, files),
		Imports:      imports,
		Symbols:      symbols,
		Dependencies: deps,
		BuiltAt:      time.Now(),
		Duration:     time.Since(start),
	}
	recordBuildMetrics(g)
	slog.Info("project graph built",
		"root", opts.Root,
		"files", len(files),
		"modules", imports.Stats().Modules,
		"symbols", symbols.Stats().TotalSymbols,
		"edges", deps.EdgeCount(),
		"duration", g.Duration)
	return g, nil
}

// BuildScript assembles a merged JavaScript + TypeScript graph: both
// languages share one module space and resolve through the TypeScript
// resolver, which probes TS extensions before JS ones. Mixed frontends
// import across the two languages freely, so analyzing them separately
// splits real cycles in half.
func BuildScript(ctx context.Context, opts Options) (*Graph, error) {
	opts.Languages = []string{"javascript", "typescript"}
	opts.mergeScript = true
	return Build(ctx, opts)
}

// parseAll parses every file with a bounded worker pool. The result
// slice is parallel to files; entries for skipped files are nil.
func parseAll(ctx context.Context, root string, files []string, adapters *ast.Registry, parallelism int) ([]*ast.ParseResult, error) {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	results := make([]*ast.ParseResult, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for i, file := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			parser, ok := adapters.ForFile(file)
			if !ok {
				return nil
			}
			content, err := os.ReadFile(filepath.Join(root, file))
			if err != nil {
				slog.Warn("project build: skipping unreadable file", "file", file, "error", err)
				return nil
			}
			result, err := parser.Parse(egCtx, content, file)
			if err != nil {
				slog.Warn("project build: skipping unparsable file", "file", file, "error", err)
				return nil
			}
			results[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolverSet holds one resolver per language for a build.
type resolverSet struct {
	byLanguage map[string]resolve.Resolver
}

func newResolverSet(opts Options) *resolverSet {
	root := opts.Root
	policy := opts.Policy
	if policy == "" {
		policy = resolve.PolicyLenient
	}

	set := &resolverSet{byLanguage: make(map[string]resolve.Resolver)}
	set.byLanguage["python"] = resolve.NewPythonResolver(
		[]string{root},
		resolve.WithPythonPolicy(policy),
		resolve.WithPythonExtraPaths(opts.PythonExtraPaths...),
	)
	ts := resolve.NewTypeScriptResolver(root, resolve.WithJavaScriptPolicy(policy))
	set.byLanguage["typescript"] = ts
	if opts.mergeScript {
		set.byLanguage["javascript"] = ts
	} else {
		set.byLanguage["javascript"] = resolve.NewJavaScriptResolver(root, resolve.WithJavaScriptPolicy(policy))
	}
	set.byLanguage["java"] = resolve.NewJavaResolver(root, resolve.WithJavaPolicy(policy))
	set.byLanguage["csharp"] = resolve.NewCSharpResolver(root, resolve.WithCSharpPolicy(policy))
	return set
}

func (s *resolverSet) forLanguage(lang string) (resolve.Resolver, bool) {
	r, ok := s.byLanguage[lang]
	return r, ok
}

// buildImportGraph runs every parsed file's imports through its
// language resolver and accumulates modules and edges.
func buildImportGraph(root string, results []*ast.ParseResult, adapters *ast.Registry, resolvers *resolverSet) *graph.ImportGraph {
	g := graph.NewImportGraph()

	for _, result := range results {
		if result == nil {
			continue
		}
		resolver, ok := resolvers.forLanguage(result.Language)
		if !ok {
			continue
		}
		abs := filepath.Join(root, result.FilePath)
		src, ok := resolver.CanonicalModule(abs)
		if !ok {
			continue
		}
		g.AddModule(src, result.FilePath, true)

		for _, imp := range result.Imports {
			spec := importSpec(result.Language, imp)
			if spec == "" {
				continue
			}
			res := resolver.Resolve(abs, spec, imp.Names)
			if res.Module == "" {
				continue
			}
			g.AddModule(res.Module, relTo(root, res.FilePath), res.IsProject())
			g.AddEdge(src, res.Module)
		}
	}
	return g
}

// importSpec renders an extracted import as the specifier string its
// language resolver expects: Python relative imports carry their
// leading dots, Java wildcard imports their trailing ".*".
func importSpec(language string, imp ast.Import) string {
	switch language {
	case "python":
		return strings.Repeat(".", imp.Level) + imp.Path
	case "java":
		if imp.IsWildcard && !strings.HasSuffix(imp.Path, ".*") {
			return imp.Path + ".*"
		}
		return imp.Path
	default:
		return imp.Path
	}
}

// indexSymbols folds all parse results into one symbol index, inferring
// visibility where the parser left it blank.
func indexSymbols(ctx context.Context, results []*ast.ParseResult, maxSymbols int) (*index.SymbolIndex, error) {
	var idxOpts []index.SymbolIndexOption
	if maxSymbols > 0 {
		idxOpts = append(idxOpts, index.WithMaxSymbols(maxSymbols))
	}
	idx := index.NewSymbolIndex(idxOpts...)

	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return idx, err
		}
		if result == nil {
			continue
		}
		for _, sym := range result.Symbols {
			if sym.Visibility == "" {
				sym.Visibility = index.InferVisibility(sym)
			}
			if err := idx.Add(sym); err != nil {
				if err == index.ErrMaxSymbolsExceeded {
					slog.Warn("project build: symbol index capacity reached, truncating",
						"file", result.FilePath)
					return idx, nil
				}
				slog.Warn("project build: skipping malformed symbol",
					"file", result.FilePath, "error", err)
			}
		}
	}
	return idx, nil
}

// presentLanguages lists the distinct languages seen in the results,
// sorted.
func presentLanguages(results []*ast.ParseResult) []string {
	seen := make(map[string]bool)
	for _, r := range results {
		if r != nil {
			seen[r.Language] = true
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func relTo(root, path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
