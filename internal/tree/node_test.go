package tree

import (
	"strings"
	"testing"
)

func buildSample() *Node {
	root := NewDirectory("/src/app", "", 0)
	a := NewFile("/src/app/a.py", "a.py", 1)
	pkg := NewDirectory("/src/app/pkg", "pkg", 1)
	b := NewFile("/src/app/pkg/b.py", "pkg/b.py", 2)
	empty := NewDirectory("/src/app/empty", "empty", 1)
	nested := NewDirectory("/src/app/empty/nested", "empty/nested", 2)

	root.AddChild(a)
	root.AddChild(pkg)
	pkg.AddChild(b)
	root.AddChild(empty)
	empty.AddChild(nested)
	return root
}

func find(root *Node, rel string) *Node {
	var found *Node
	root.Walk(func(node *Node) {
		if found == nil && node.RelPath == rel {
			found = node
		}
	})
	return found
}

func TestAddChildLinksParent(t *testing.T) {
	root := buildSample()
	b := find(root, "pkg/b.py")
	if b == nil {
		t.Fatal("expected to find pkg/b.py")
	}
	if b.Parent == nil || b.Parent.RelPath != "pkg" {
		t.Fatalf("unexpected parent: %+v", b.Parent)
	}
	if b.Parent.Parent != root {
		t.Fatalf("pkg not linked to root")
	}
}

func TestAllFilesAndDirsPreOrder(t *testing.T) {
	root := buildSample()
	files := root.AllFiles()
	if len(files) != 2 || files[0].RelPath != "a.py" || files[1].RelPath != "pkg/b.py" {
		t.Fatalf("unexpected files: %v", relPaths(files))
	}
	dirs := root.AllDirs()
	want := []string{"", "pkg", "empty", "empty/nested"}
	if got := relPaths(dirs); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected dirs: got %v want %v", got, want)
	}
}

func TestPruneRemovesFilelessChains(t *testing.T) {
	root := buildSample()
	removed := root.Prune()
	if removed != 2 {
		t.Fatalf("expected 2 pruned directories, got %d", removed)
	}
	if find(root, "empty") != nil || find(root, "empty/nested") != nil {
		t.Fatal("expected empty chain to be pruned")
	}
	if find(root, "pkg") == nil {
		t.Fatal("expected pkg to survive pruning")
	}
	if root.MaxDepth() != 2 {
		t.Fatalf("unexpected max depth %d", root.MaxDepth())
	}
}

func TestLevelsGroupByDepth(t *testing.T) {
	root := buildSample()
	root.Prune()
	levels := root.Levels()
	if level1 := relPaths(levels[1]); strings.Join(level1, ",") != "a.py,pkg" {
		t.Fatalf("unexpected depth-1 nodes: %v", level1)
	}
	if got := relPaths(levels[0]); len(got) != 1 || got[0] != "" {
		t.Fatalf("unexpected depth-0 nodes: %v", got)
	}
	if len(levels) != 3 {
		t.Fatalf("levels = %d", len(levels))
	}
}

func TestStructureListsDirectoriesFirst(t *testing.T) {
	root := buildSample()
	root.Prune()
	got := root.Structure()
	want := "app/\n├── pkg/\n│   └── b.py\n└── a.py"
	if got != want {
		t.Fatalf("unexpected structure:\n%s\nwant:\n%s", got, want)
	}
}

func relPaths(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.RelPath)
	}
	return out
}

func TestKeyUsesDotForRoot(t *testing.T) {
	root := NewDirectory("/src/app", "", 0)
	child := NewFile("/src/app/pkg/b.py", "pkg/b.py", 2)
	if root.Key() != RootKey {
		t.Fatalf("root key = %q", root.Key())
	}
	if child.Key() != "pkg/b.py" {
		t.Fatalf("child key = %q", child.Key())
	}
}
