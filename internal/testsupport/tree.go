package testsupport

import (
	"path"
	"path/filepath"
	"strings"

	"codesummary/internal/tree"
)

var languages = map[string]string{
	".go": "Go",
	".py": "Python",
	".js": "JavaScript",
	".ts": "TypeScript",
}

// BuildTree assembles an in-memory tree rooted at root from slash-separated
// file paths, without touching the filesystem. Children are ordered the way
// the scanner orders them.
func BuildTree(root string, files ...string) *tree.Node {
	top := tree.NewDirectory(root, "", 0)
	dirs := map[string]*tree.Node{"": top}

	var ensureDir func(rel string) *tree.Node
	ensureDir = func(rel string) *tree.Node {
		if node, ok := dirs[rel]; ok {
			return node
		}
		parent := ensureDir(parentOf(rel))
		node := tree.NewDirectory(filepath.Join(root, filepath.FromSlash(rel)), rel, parent.Depth+1)
		parent.AddChild(node)
		dirs[rel] = node
		return node
	}

	for _, rel := range files {
		rel = strings.Trim(rel, "/")
		parent := ensureDir(parentOf(rel))
		file := tree.NewFile(filepath.Join(root, filepath.FromSlash(rel)), rel, parent.Depth+1)
		file.Language = languages[path.Ext(rel)]
		file.Size = int64(len(rel))
		parent.AddChild(file)
	}
	top.Walk(func(n *tree.Node) {
		if n.IsDir() {
			n.SortChildren()
		}
	})
	return top
}

// FindNode returns the node under root whose key is rel, or nil.
func FindNode(root *tree.Node, rel string) *tree.Node {
	rel = strings.Trim(rel, "/")
	if rel == "." {
		rel = ""
	}
	var found *tree.Node
	root.Walk(func(node *tree.Node) {
		if found == nil && node.RelPath == rel {
			found = node
		}
	})
	return found
}

func parentOf(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}
