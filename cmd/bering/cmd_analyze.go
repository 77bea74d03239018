// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/beringlabs/bering/services/analysis/config"
	"github.com/beringlabs/bering/services/analysis/project"
	"github.com/beringlabs/bering/services/analysis/resolve"
)

// buildGraph runs one full analysis for a CLI invocation.
func buildGraph(cmd *cobra.Command, root string, mergeScript bool) (*project.Graph, *config.Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(abs)
	if err != nil {
		return nil, nil, err
	}
	a := cfg.Analysis
	opts := project.Options{
		Root:             abs,
		Languages:        a.Languages,
		ExcludedPaths:    a.ExcludedPaths,
		Policy:           resolve.Policy(a.Policy),
		PythonExtraPaths: a.PythonExtraPaths,
		MaxSymbols:       a.MaxSymbols,
		Parallelism:      a.Parallelism,
	}
	if mergeScript || a.MergeScript {
		g, err := project.BuildScript(cmd.Context(), opts)
		return g, cfg, err
	}
	g, err := project.Build(cmd.Context(), opts)
	return g, cfg, err
}

func newAnalyzeCommand() *cobra.Command {
	var mergeScript bool
	cmd := &cobra.Command{
		Use:   "analyze <root>",
		Short: "Build the project graph and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := buildGraph(cmd, args[0], mergeScript)
			if err != nil {
				return err
			}
			stats := g.Imports.Stats()
			fmt.Printf("Project: %s\n", g.Root)
			fmt.Printf("Signature: %s\n", g.Signature)
			fmt.Printf("Languages: %v\n", g.Languages)
			fmt.Printf("Files: %d\n", len(g.Files))
			fmt.Printf("Modules: %d (%d project, %d external)\n",
				stats.Modules, stats.ProjectModules, stats.ExternalModules)
			fmt.Printf("Import edges: %d\n", stats.Edges)
			fmt.Printf("Import cycles: %d\n", stats.Cycles)
			fmt.Printf("Symbols: %d\n", g.Symbols.Stats().TotalSymbols)
			fmt.Printf("Dependency edges: %d\n", g.Dependencies.EdgeCount())
			fmt.Printf("Build time: %s\n", g.Duration)
			return nil
		},
	}
	cmd.Flags().BoolVar(&mergeScript, "merge-script", false, "analyze JavaScript and TypeScript as one module space")
	return cmd
}

func newGraphCommand() *cobra.Command {
	var dumpPath string
	var mergeScript bool
	cmd := &cobra.Command{
		Use:   "graph <root>",
		Short: "Export the import graph as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := buildGraph(cmd, args[0], mergeScript)
			if err != nil {
				return err
			}
			raw, err := json.MarshalIndent(g.Imports.ToDump(), "", "  ")
			if err != nil {
				return err
			}
			if dumpPath == "" || dumpPath == "-" {
				fmt.Println(string(raw))
				return nil
			}
			if err := os.WriteFile(dumpPath, raw, 0o644); err != nil {
				return err
			}
			fmt.Printf("Graph written to %s\n", dumpPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dumpPath, "dump", "-", "output file, '-' for stdout")
	cmd.Flags().BoolVar(&mergeScript, "merge-script", false, "analyze JavaScript and TypeScript as one module space")
	return cmd
}

func newCyclesCommand() *cobra.Command {
	var mergeScript bool
	cmd := &cobra.Command{
		Use:   "cycles <root>",
		Short: "Report import cycles with minimal examples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := buildGraph(cmd, args[0], mergeScript)
			if err != nil {
				return err
			}
			found := 0
			for _, scc := range g.Imports.SCCs() {
				if !scc.IsCycle() {
					continue
				}
				found++
				fmt.Printf("Cycle %d (%d modules): %v\n", found, len(scc.Modules), scc.Modules)
				for _, e := range g.Imports.MinimalCycleExample(scc) {
					fmt.Printf("  %s -> %s\n", e.Src, e.Dst)
				}
			}
			if found == 0 {
				fmt.Println("No import cycles found.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&mergeScript, "merge-script", false, "analyze JavaScript and TypeScript as one module space")
	return cmd
}

func newImpactCommand() *cobra.Command {
	var symbol, file string
	var depth int
	cmd := &cobra.Command{
		Use:   "impact <root>",
		Short: "Show what depends on a symbol or file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" && file == "" {
				return fmt.Errorf("one of --symbol or --file is required")
			}
			g, _, err := buildGraph(cmd, args[0], false)
			if err != nil {
				return err
			}

			if file != "" {
				impacted := g.Dependencies.GetImpactedFiles(file, g.Symbols)
				fmt.Printf("Files impacted by changes to %s: %d\n", file, len(impacted))
				for _, f := range impacted {
					fmt.Printf("  %s\n", f)
				}
				return nil
			}

			direct := g.Dependencies.GetImpactedSymbols(symbol)
			fmt.Printf("Direct dependents of %s: %d\n", symbol, len(direct))
			for _, d := range direct {
				fmt.Printf("  %s\n", d)
			}

			chain := g.Dependencies.GetDependencyChain(symbol, depth)
			if len(chain) > len(direct) {
				fmt.Printf("Transitive dependents (depth <= %d): %d\n", depth, len(chain))
				names := make([]string, 0, len(chain))
				for qn := range chain {
					names = append(names, qn)
				}
				sort.Slice(names, func(i, j int) bool {
					if chain[names[i]] != chain[names[j]] {
						return chain[names[i]] < chain[names[j]]
					}
					return names[i] < names[j]
				})
				for _, qn := range names {
					fmt.Printf("  [%d] %s\n", chain[qn], qn)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "qualified symbol name (path::name)")
	cmd.Flags().StringVar(&file, "file", "", "file path relative to root")
	cmd.Flags().IntVar(&depth, "depth", 3, "transitive chain depth")
	return cmd
}

func newUnusedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unused <root>",
		Short: "List likely-unused public symbols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := buildGraph(cmd, args[0], false)
			if err != nil {
				return err
			}
			unused := g.Dependencies.GetUnusedSymbols(g.Symbols)
			if len(unused) == 0 {
				fmt.Println("No unused public symbols found.")
				return nil
			}
			for _, u := range unused {
				fmt.Printf("%-10s %-8s %s\n", u.Kind, u.Confidence, u.QualifiedName)
			}
			fmt.Printf("Total: %d\n", len(unused))
			return nil
		},
	}
	return cmd
}

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <root>",
		Short: "Watch a project and rebuild its graph on change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(abs)
			if err != nil {
				return err
			}
			a := cfg.Analysis
			opts := project.Options{
				Root:             abs,
				Languages:        a.Languages,
				ExcludedPaths:    a.ExcludedPaths,
				Policy:           resolve.Policy(a.Policy),
				PythonExtraPaths: a.PythonExtraPaths,
				MaxSymbols:       a.MaxSymbols,
				Parallelism:      a.Parallelism,
			}
			session := project.NewSession()
			defer session.Close()

			fmt.Printf("Watching %s (Ctrl+C to stop)\n", abs)
			return project.WatchAndRebuild(cmd.Context(), session, opts, func(g *project.Graph) {
				stats := g.Imports.Stats()
				fmt.Printf("[%s] rebuilt: %d files, %d modules, %d cycles, %d symbols (%s)\n",
					g.BuiltAt.Format("15:04:05"), len(g.Files), stats.Modules,
					stats.Cycles, g.Symbols.Stats().TotalSymbols, g.Duration)
			})
		},
	}
	return cmd
}
