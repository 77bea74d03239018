// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import "sort"

// Dump is the stable external JSON representation of an import graph.
// Downstream tooling consumes this shape verbatim; treat field changes
// as breaking.
type Dump struct {
	Nodes []Module   `json:"nodes"`
	Edges []Edge     `json:"edges"`
	SCCs  []DumpSCC  `json:"sccs"`
	Stats Stats      `json:"stats"`
}

// DumpSCC is one component in the dump, with its minimal cycle as an
// ordered [src, dst] pair list.
type DumpSCC struct {
	Modules      []string    `json:"modules"`
	Size         int         `json:"size"`
	IsCycle      bool        `json:"is_cycle"`
	MinimalCycle [][2]string `json:"minimal_cycle,omitempty"`
}

// ToDump converts the graph to its external representation. Nodes and
// edges are sorted for deterministic output.
func (g *ImportGraph) ToDump() *Dump {
	d := &Dump{
		Nodes: g.Modules(),
		Edges: g.Edges(),
		Stats: g.Stats(),
	}
	for _, scc := range g.SCCs() {
		ds := DumpSCC{
			Modules: scc.Modules,
			Size:    len(scc.Modules),
			IsCycle: scc.IsCycle(),
		}
		if ds.IsCycle {
			for _, e := range g.MinimalCycleExample(scc) {
				ds.MinimalCycle = append(ds.MinimalCycle, [2]string{e.Src, e.Dst})
			}
		}
		d.SCCs = append(d.SCCs, ds)
	}
	sort.Slice(d.SCCs, func(i, j int) bool { return d.SCCs[i].Modules[0] < d.SCCs[j].Modules[0] })
	return d
}

// DumpDiff summarizes what changed between two graph dumps of the same
// project, typically from consecutive analysis runs.
type DumpDiff struct {
	ModulesAdded   []string `json:"modules_added"`
	ModulesRemoved []string `json:"modules_removed"`
	EdgesAdded     []Edge   `json:"edges_added"`
	EdgesRemoved   []Edge   `json:"edges_removed"`
	CyclesBefore   int      `json:"cycles_before"`
	CyclesAfter    int      `json:"cycles_after"`
}

// HasChanges reports whether the diff is non-empty.
func (d *DumpDiff) HasChanges() bool {
	return len(d.ModulesAdded) > 0 || len(d.ModulesRemoved) > 0 ||
		len(d.EdgesAdded) > 0 || len(d.EdgesRemoved) > 0 ||
		d.CyclesBefore != d.CyclesAfter
}

// DiffDumps compares two dumps. Either argument may be nil, which reads
// as an empty graph.
func DiffDumps(base, target *Dump) *DumpDiff {
	if base == nil {
		base = &Dump{}
	}
	if target == nil {
		target = &Dump{}
	}

	diff := &DumpDiff{
		CyclesBefore: base.Stats.Cycles,
		CyclesAfter:  target.Stats.Cycles,
	}

	baseMods := make(map[string]bool, len(base.Nodes))
	for _, n := range base.Nodes {
		baseMods[n.Name] = true
	}
	targetMods := make(map[string]bool, len(target.Nodes))
	for _, n := range target.Nodes {
		targetMods[n.Name] = true
		if !baseMods[n.Name] {
			diff.ModulesAdded = append(diff.ModulesAdded, n.Name)
		}
	}
	for _, n := range base.Nodes {
		if !targetMods[n.Name] {
			diff.ModulesRemoved = append(diff.ModulesRemoved, n.Name)
		}
	}

	baseEdges := make(map[Edge]bool, len(base.Edges))
	for _, e := range base.Edges {
		baseEdges[e] = true
	}
	targetEdges := make(map[Edge]bool, len(target.Edges))
	for _, e := range target.Edges {
		targetEdges[e] = true
		if !baseEdges[e] {
			diff.EdgesAdded = append(diff.EdgesAdded, e)
		}
	}
	for _, e := range base.Edges {
		if !targetEdges[e] {
			diff.EdgesRemoved = append(diff.EdgesRemoved, e)
		}
	}

	sort.Strings(diff.ModulesAdded)
	sort.Strings(diff.ModulesRemoved)
	return diff
}
