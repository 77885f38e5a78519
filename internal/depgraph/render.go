package depgraph

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Report is the serializable form of a graph with its derived statistics.
type Report struct {
	Nodes  []string      `json:"nodes" yaml:"nodes"`
	Edges  []Dependency  `json:"edges" yaml:"edges"`
	Stats  []ModuleCount `json:"import_stats" yaml:"import_stats"`
	Cycles [][]string    `json:"cycles" yaml:"cycles"`
}

// Report snapshots the graph.
func (g *Graph) Report() Report {
	edges := g.Edges()
	if edges == nil {
		edges = []Dependency{}
	}
	cycles := g.Cycles()
	if cycles == nil {
		cycles = [][]string{}
	}
	return Report{Nodes: g.Nodes(), Edges: edges, Stats: g.ImportStats(), Cycles: cycles}
}

// JSON renders the report as indented JSON.
func (r Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal dependency report: %w", err)
	}
	return append(data, '\n'), nil
}

// YAML renders the report as YAML.
func (r Report) YAML() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal dependency report: %w", err)
	}
	return data, nil
}

// Mermaid renders the graph as a left-to-right flowchart. Local nodes are
// labelled with their base name; external modules with their full name.
// Edge labels name the dependency kind when it is not a plain import.
func (g *Graph) Mermaid() string {
	nodes := g.Nodes()
	ids := make(map[string]string, len(nodes))
	var b strings.Builder
	b.WriteString("graph LR\n")
	for i, node := range nodes {
		id := fmt.Sprintf("N%d", i)
		ids[node] = id
		label := node
		if strings.Contains(node, "/") && g.isLocal(node) {
			label = path.Base(node)
		}
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", id, strings.ReplaceAll(label, `"`, "'"))
	}
	seen := map[string]bool{}
	for _, dep := range g.edges {
		line := fmt.Sprintf("    %s --> %s", ids[dep.Source], ids[dep.Target])
		if dep.Kind != KindImport {
			line = fmt.Sprintf("    %s -->|%s| %s", ids[dep.Source], dep.Kind, ids[dep.Target])
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// isLocal reports whether node is a source file or a resolved target.
func (g *Graph) isLocal(node string) bool {
	if len(g.outgoing[node]) > 0 {
		return true
	}
	for _, dep := range g.incoming[node] {
		if dep.Local {
			return true
		}
	}
	return false
}
