package depgraph

import (
	"slices"
	"sort"
	"strings"
)

// Kind classifies a dependency edge.
type Kind string

const (
	KindImport     Kind = "import"
	KindExtends    Kind = "extends"
	KindImplements Kind = "implements"
	KindUses       Kind = "uses"
	KindCalls      Kind = "calls"
)

// Dependency is one edge with its provenance.
type Dependency struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Kind   Kind   `json:"type" yaml:"type"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
	// Local is set when Target was resolved to a file or directory of the
	// analyzed tree.
	Local bool `json:"local" yaml:"local"`
}

// Graph is a directed multigraph of dependencies. The zero value is not
// usable; call New.
type Graph struct {
	nodes    map[string]struct{}
	edges    []Dependency
	outgoing map[string][]Dependency
	incoming map[string][]Dependency
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    map[string]struct{}{},
		outgoing: map[string][]Dependency{},
		incoming: map[string][]Dependency{},
	}
}

// AddNode registers a node without edges.
func (g *Graph) AddNode(node string) {
	g.nodes[node] = struct{}{}
}

// AddEdge adds dep and both of its endpoints.
func (g *Graph) AddEdge(dep Dependency) {
	g.AddNode(dep.Source)
	g.AddNode(dep.Target)
	g.edges = append(g.edges, dep)
	g.outgoing[dep.Source] = append(g.outgoing[dep.Source], dep)
	g.incoming[dep.Target] = append(g.incoming[dep.Target], dep)
}

// Nodes returns every node in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for node := range g.nodes {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Dependency {
	return slices.Clone(g.edges)
}

// Dependencies returns the outgoing edges of node.
func (g *Graph) Dependencies(node string) []Dependency {
	return slices.Clone(g.outgoing[node])
}

// ModuleCount is the number of edges pointing into one top-level module.
type ModuleCount struct {
	Module string `json:"module" yaml:"module"`
	Count  int    `json:"count" yaml:"count"`
}

// ImportStats counts edges by the top-level component of their target
// ("a.b.c" and "a/b" both count toward "a"), most used first.
func (g *Graph) ImportStats() []ModuleCount {
	counts := map[string]int{}
	for _, dep := range g.edges {
		counts[topModule(dep.Target)]++
	}
	out := make([]ModuleCount, 0, len(counts))
	for module, n := range counts {
		out = append(out, ModuleCount{Module: module, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Module < out[j].Module
	})
	return out
}

func topModule(target string) string {
	target = strings.TrimLeft(target, "./@")
	if i := strings.IndexAny(target, "./"); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return "."
	}
	return target
}

// Cycles returns the dependency cycles among local edges. Each cycle starts
// and ends with the same node. Traversal is in sorted node order so results
// are stable.
func (g *Graph) Cycles() [][]string {
	local := map[string][]string{}
	for _, dep := range g.edges {
		if dep.Local && !slices.Contains(local[dep.Source], dep.Target) {
			local[dep.Source] = append(local[dep.Source], dep.Target)
		}
	}
	for node := range local {
		sort.Strings(local[node])
	}

	var cycles [][]string
	visited := map[string]bool{}
	onStack := map[string]bool{}
	var path []string

	var visit func(node string)
	visit = func(node string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)
		for _, next := range local[node] {
			switch {
			case !visited[next]:
				visit(next)
			case onStack[next]:
				start := slices.Index(path, next)
				cycle := append(slices.Clone(path[start:]), next)
				cycles = append(cycles, cycle)
			}
		}
		path = path[:len(path)-1]
		onStack[node] = false
	}
	for _, node := range g.Nodes() {
		if !visited[node] {
			visit(node)
		}
	}
	return cycles
}
