// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graph holds the project import graph: modules, import edges,
// and strongly-connected-component cycle detection.
package graph

import (
	"sort"
	"sync"
)

// Module is one node of the import graph.
type Module struct {
	// Name is the canonical module name ("pkg.sub.mod" or "src/util").
	Name string `json:"module"`

	// FilePath is the resolved source file, empty for external or
	// unresolved modules.
	FilePath string `json:"file_path,omitempty"`

	// IsProject reports whether the module lives inside the project.
	IsProject bool `json:"is_project"`
}

// Edge is one directed import relation between two modules.
type Edge struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// SCC is one strongly connected component: a set of modules mutually
// reachable via import edges. Size > 1 means an import cycle; a size-1
// component is also a cycle when the module imports itself.
type SCC struct {
	Modules  []string `json:"modules"`
	SelfLoop bool     `json:"-"`
}

// IsCycle reports whether the component contains a cycle.
func (s SCC) IsCycle() bool { return len(s.Modules) > 1 || s.SelfLoop }

// Stats summarizes the graph.
type Stats struct {
	Modules         int `json:"modules"`
	ProjectModules  int `json:"project_modules"`
	ExternalModules int `json:"external_modules"`
	Edges           int `json:"edges"`
	SCCs            int `json:"sccs"`
	Cycles          int `json:"cycles"`
}

// ImportGraph is the module-level import graph.
//
// Description:
//
//	Modules and edges are deduplicated on insertion. SCCs are computed
//	with Tarjan's algorithm and cached; any mutation invalidates the
//	cache.
//
// Thread Safety: safe for concurrent use.
type ImportGraph struct {
	mu sync.RWMutex

	modules map[string]*Module
	forward map[string]map[string]bool
	reverse map[string]map[string]bool
	edges   int

	// sccCache is valid while sccDirty is false.
	sccCache []SCC
	sccDirty bool
}

// NewImportGraph creates an empty graph.
func NewImportGraph() *ImportGraph {
	return &ImportGraph{
		modules: make(map[string]*Module),
		forward: make(map[string]map[string]bool),
		reverse: make(map[string]map[string]bool),
	}
}

// AddModule inserts a module, idempotent by name. A later insertion with
// a non-empty file path fills in an earlier placeholder's path and
// project flag.
func (g *ImportGraph) AddModule(name, filePath string, isProject bool) {
	if name == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.modules[name]; ok {
		if existing.FilePath == "" && filePath != "" {
			existing.FilePath = filePath
			existing.IsProject = isProject
			g.sccDirty = true
		}
		return
	}
	g.modules[name] = &Module{Name: name, FilePath: filePath, IsProject: isProject}
	g.sccDirty = true
}

// AddEdge inserts a directed import edge, deduplicated by set semantics.
// Endpoints never explicitly added are created as external placeholders.
func (g *ImportGraph) AddEdge(src, dst string) {
	if src == "" || dst == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, name := range []string{src, dst} {
		if _, ok := g.modules[name]; !ok {
			g.modules[name] = &Module{Name: name}
		}
	}
	if g.forward[src] == nil {
		g.forward[src] = make(map[string]bool)
	}
	if g.forward[src][dst] {
		return
	}
	g.forward[src][dst] = true
	if g.reverse[dst] == nil {
		g.reverse[dst] = make(map[string]bool)
	}
	g.reverse[dst][src] = true
	g.edges++
	g.sccDirty = true
}

// HasModule reports whether the module exists.
func (g *ImportGraph) HasModule(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.modules[name]
	return ok
}

// Module returns a copy of the named module.
func (g *ImportGraph) Module(name string) (Module, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.modules[name]
	if !ok {
		return Module{}, false
	}
	return *m, true
}

// Modules returns all modules sorted by name.
func (g *ImportGraph) Modules() []Module {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Module, 0, len(g.modules))
	for _, m := range g.modules {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Imports returns the modules directly imported by name, sorted.
func (g *ImportGraph) Imports(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.forward[name])
}

// ImportedBy returns the modules directly importing name, sorted.
func (g *ImportGraph) ImportedBy(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.reverse[name])
}

// Edges returns all edges sorted by (src, dst).
func (g *ImportGraph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, g.edges)
	for src, dsts := range g.forward {
		for dst := range dsts {
			out = append(out, Edge{Src: src, Dst: dst})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Src != out[j].Src {
			return out[i].Src < out[j].Src
		}
		return out[i].Dst < out[j].Dst
	})
	return out
}

// SCCs returns the strongly connected components of the graph. Every
// module belongs to exactly one component. The result is recomputed only
// when the graph changed since the last call.
func (g *ImportGraph) SCCs() []SCC {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.sccDirty && g.sccCache != nil {
		return g.sccCache
	}
	g.sccCache = g.tarjanLocked()
	g.sccDirty = false
	return g.sccCache
}

// tarjanLocked runs Tarjan's algorithm with an explicit stack. Caller
// must hold g.mu.
func (g *ImportGraph) tarjanLocked() []SCC {
	names := make([]string, 0, len(g.modules))
	for name := range g.modules {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic component order

	index := make(map[string]int, len(names))
	lowlink := make(map[string]int, len(names))
	onStack := make(map[string]bool, len(names))
	var stack []string
	var sccs []SCC
	next := 0

	// frame replaces the recursive call: v plus the iteration cursor
	// over its successors.
	type frame struct {
		v     string
		succs []string
		i     int
	}

	for _, root := range names {
		if _, visited := index[root]; visited {
			continue
		}

		work := []frame{{v: root, succs: sortedKeys(g.forward[root])}}
		index[root] = next
		lowlink[root] = next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			f := &work[len(work)-1]
			advanced := false
			for f.i < len(f.succs) {
				w := f.succs[f.i]
				f.i++
				if _, visited := index[w]; !visited {
					index[w] = next
					lowlink[w] = next
					next++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, frame{v: w, succs: sortedKeys(g.forward[w])})
					advanced = true
					break
				}
				if onStack[w] && index[w] < lowlink[f.v] {
					lowlink[f.v] = index[w]
				}
			}
			if advanced {
				continue
			}

			// v is finished: pop a component if v is a root.
			v := f.v
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &work[len(work)-1]
				if lowlink[v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[v]
				}
			}
			if lowlink[v] == index[v] {
				var members []string
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					members = append(members, w)
					if w == v {
						break
					}
				}
				sort.Strings(members)
				sccs = append(sccs, SCC{
					Modules:  members,
					SelfLoop: len(members) == 1 && g.forward[members[0]][members[0]],
				})
			}
		}
	}
	return sccs
}

// MinimalCycleExample returns an ordered edge list forming a closed walk
// through the component, for components that contain a cycle.
//
// Description:
//
//	BFS from one member back to itself, restricted to modules within the
//	component. A true SCC always yields a cycle from its first member;
//	the remaining members are tried anyway as a defensive fallback.
//
// Outputs:
//   - []Edge: the cycle edges in walk order, nil when the component has
//     no cycle.
func (g *ImportGraph) MinimalCycleExample(scc SCC) []Edge {
	if !scc.IsCycle() {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if scc.SelfLoop && len(scc.Modules) == 1 {
		m := scc.Modules[0]
		return []Edge{{Src: m, Dst: m}}
	}

	members := make(map[string]bool, len(scc.Modules))
	for _, m := range scc.Modules {
		members[m] = true
	}

	for _, start := range scc.Modules {
		if cycle := g.bfsCycleLocked(start, members); cycle != nil {
			return cycle
		}
	}
	return nil
}

// bfsCycleLocked finds the shortest closed walk from start back to start
// inside members. Caller must hold g.mu (read).
func (g *ImportGraph) bfsCycleLocked(start string, members map[string]bool) []Edge {
	parent := make(map[string]string)
	queue := []string{start}
	seen := map[string]bool{start: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nxt := range sortedKeys(g.forward[cur]) {
			if !members[nxt] {
				continue
			}
			if nxt == start {
				// Unwind cur -> ... -> start, then close the loop.
				var rev []Edge
				for n := cur; n != start; n = parent[n] {
					rev = append(rev, Edge{Src: parent[n], Dst: n})
				}
				edges := make([]Edge, 0, len(rev)+1)
				for i := len(rev) - 1; i >= 0; i-- {
					edges = append(edges, rev[i])
				}
				return append(edges, Edge{Src: cur, Dst: start})
			}
			if !seen[nxt] {
				seen[nxt] = true
				parent[nxt] = cur
				queue = append(queue, nxt)
			}
		}
	}
	return nil
}

// Stats returns summary counts for the graph.
func (g *ImportGraph) Stats() Stats {
	sccs := g.SCCs()

	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{
		Modules: len(g.modules),
		Edges:   g.edges,
		SCCs:    len(sccs),
	}
	for _, m := range g.modules {
		if m.IsProject {
			s.ProjectModules++
		} else {
			s.ExternalModules++
		}
	}
	for _, scc := range sccs {
		if scc.IsCycle() {
			s.Cycles++
		}
	}
	return s
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
