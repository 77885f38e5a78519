package tree

import (
	"path"
	"sort"
	"strings"
)

// Kind distinguishes files from directories.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Status tracks where a node is in the analysis lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Node is a file or directory in the scanned tree.
type Node struct {
	Path     string
	Name     string
	Kind     Kind
	Depth    int
	RelPath  string
	Parent   *Node
	Children []*Node

	Size     int64
	Language string

	Status  Status
	DocPath string
	Error   string
	HasAPI  bool
	APIInfo string
}

// NewFile constructs a pending file node.
func NewFile(absPath, relPath string, depth int) *Node {
	return newNode(absPath, relPath, depth, KindFile)
}

// NewDirectory constructs a pending directory node.
func NewDirectory(absPath, relPath string, depth int) *Node {
	return newNode(absPath, relPath, depth, KindDirectory)
}

func newNode(absPath, relPath string, depth int, kind Kind) *Node {
	relPath = normalizeRel(relPath)
	name := path.Base(relPath)
	if relPath == "" {
		name = path.Base(strings.ReplaceAll(absPath, "\\", "/"))
	}
	return &Node{
		Path:    absPath,
		Name:    name,
		Kind:    kind,
		Depth:   depth,
		RelPath: relPath,
		Status:  StatusPending,
	}
}

func normalizeRel(rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	rel = strings.Trim(rel, "/")
	if rel == "." {
		return ""
	}
	return rel
}

// RootKey is the stable identity of the tree root.
const RootKey = "."

// Key returns the node's stable identity: its slash-separated relative path,
// or RootKey for the root.
func (n *Node) Key() string {
	if n.RelPath == "" {
		return RootKey
	}
	return n.RelPath
}

// IsFile reports whether the node is a file.
func (n *Node) IsFile() bool { return n != nil && n.Kind == KindFile }

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n != nil && n.Kind == KindDirectory }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n != nil && n.Parent == nil }

// AddChild appends child to the parent's ordered children and links it back.
func (n *Node) AddChild(child *Node) {
	if n == nil || child == nil {
		return
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// AllFiles returns every file node in pre-order.
func (n *Node) AllFiles() []*Node {
	var out []*Node
	n.Walk(func(node *Node) {
		if node.IsFile() {
			out = append(out, node)
		}
	})
	return out
}

// AllDirs returns every directory node in pre-order, including n itself.
func (n *Node) AllDirs() []*Node {
	var out []*Node
	n.Walk(func(node *Node) {
		if node.IsDir() {
			out = append(out, node)
		}
	})
	return out
}

// Walk visits n and its descendants in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Prune removes directories that have no descendant files. Children are
// evaluated before their parent so emptied chains collapse in one pass. The
// root is never removed. It returns the number of directories pruned.
func (n *Node) Prune() int {
	if n == nil || !n.IsDir() {
		return 0
	}
	removed := 0
	kept := n.Children[:0]
	for _, child := range n.Children {
		if child.IsDir() {
			removed += child.Prune()
			if len(child.Children) == 0 {
				child.Parent = nil
				removed++
				continue
			}
		}
		kept = append(kept, child)
	}
	for i := len(kept); i < len(n.Children); i++ {
		n.Children[i] = nil
	}
	n.Children = kept
	return removed
}

// MaxDepth returns the deepest depth present under n.
func (n *Node) MaxDepth() int {
	maxDepth := 0
	n.Walk(func(node *Node) {
		if node.Depth > maxDepth {
			maxDepth = node.Depth
		}
	})
	return maxDepth
}

// Levels groups nodes by depth.
func (n *Node) Levels() map[int][]*Node {
	levels := make(map[int][]*Node)
	n.Walk(func(node *Node) {
		levels[node.Depth] = append(levels[node.Depth], node)
	})
	return levels
}

// SortChildren orders children directories first, then by case-insensitive name.
func (n *Node) SortChildren() {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

// Stats summarizes a tree.
type Stats struct {
	Files     int
	Dirs      int
	MaxDepth  int
	Bytes     int64
	Languages map[string]int
	ByStatus  map[Status]int
}

// CollectStats walks the tree once and aggregates counts.
func (n *Node) CollectStats() Stats {
	stats := Stats{Languages: map[string]int{}, ByStatus: map[Status]int{}}
	n.Walk(func(node *Node) {
		if node.Depth > stats.MaxDepth {
			stats.MaxDepth = node.Depth
		}
		stats.ByStatus[node.Status]++
		if node.IsDir() {
			stats.Dirs++
			return
		}
		stats.Files++
		stats.Bytes += node.Size
		lang := node.Language
		if lang == "" {
			lang = "Other"
		}
		stats.Languages[lang]++
	})
	return stats
}
