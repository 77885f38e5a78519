package tree

import (
	"sort"
	"strings"
)

// Structure renders the subtree as an indented listing with box-drawing
// connectors, directories before files at every level.
func (n *Node) Structure() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(n.Name)
	if n.IsDir() {
		b.WriteString("/")
	}
	writeChildren(&b, n, "")
	return b.String()
}

func writeChildren(b *strings.Builder, n *Node, prefix string) {
	children := make([]*Node, len(n.Children))
	copy(children, n.Children)
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].IsDir() != children[j].IsDir() {
			return children[i].IsDir()
		}
		return strings.ToLower(children[i].Name) < strings.ToLower(children[j].Name)
	})
	for i, child := range children {
		last := i == len(children)-1
		connector := "├── "
		extension := "│   "
		if last {
			connector = "└── "
			extension = "    "
		}
		b.WriteString("\n")
		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(child.Name)
		if child.IsDir() {
			b.WriteString("/")
			writeChildren(b, child, prefix+extension)
		}
	}
}

// ImmediateCounts returns the number of direct child files and directories.
func (n *Node) ImmediateCounts() (files, dirs int) {
	for _, child := range n.Children {
		if child.IsDir() {
			dirs++
		} else {
			files++
		}
	}
	return files, dirs
}
