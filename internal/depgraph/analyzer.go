package depgraph

import (
	"log/slog"
	"os"
	"path"
	"strings"

	"codesummary/internal/logging"
	"codesummary/internal/tree"
)

// Analyzer builds dependency graphs from scanned trees.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer returns an analyzer. A nil logger discards output.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logging.NewComponentLogger(logger, "depgraph")}
}

// Analyze parses every supported file under root. Targets that name a file
// or directory of the tree are rewritten to that node's key and marked
// Local; everything else is kept verbatim as an external module.
func (a *Analyzer) Analyze(root *tree.Node) *Graph {
	g := New()
	idx := newIndex(root)
	parsed := 0
	for _, node := range root.AllFiles() {
		data, err := os.ReadFile(node.Path)
		if err != nil {
			a.logger.Debug("dependency parse skipped", logging.String(logging.FieldNode, node.Key()), logging.Error(err))
			continue
		}
		parser := ParserFor(node.Name, data)
		if parser == nil {
			continue
		}
		parsed++
		g.AddNode(node.Key())
		for _, dep := range parser(strings.ToValidUTF8(string(data), ""), node.Key()) {
			if target, ok := idx.resolve(node.Key(), dep); ok {
				dep.Target = target
				dep.Local = true
			}
			if dep.Target == dep.Source {
				continue
			}
			g.AddEdge(dep)
		}
	}
	a.logger.Info("dependency analysis complete",
		logging.Int("files", parsed),
		logging.Int("nodes", len(g.nodes)),
		logging.Int("edges", len(g.edges)),
	)
	return g
}

// index maps import spellings onto tree keys.
type index struct {
	files map[string]bool
	dirs  map[string]bool
	// bySuffix maps a slash path without extension to file keys ending in it.
	bySuffix map[string][]string
}

func newIndex(root *tree.Node) *index {
	idx := &index{files: map[string]bool{}, dirs: map[string]bool{}, bySuffix: map[string][]string{}}
	root.Walk(func(node *tree.Node) {
		if node.IsRoot() {
			return
		}
		if node.IsDir() {
			idx.dirs[node.RelPath] = true
			return
		}
		idx.files[node.RelPath] = true
		stem := strings.TrimSuffix(node.RelPath, path.Ext(node.RelPath))
		parts := strings.Split(stem, "/")
		for i := range parts {
			suffix := strings.Join(parts[i:], "/")
			idx.bySuffix[suffix] = append(idx.bySuffix[suffix], node.RelPath)
		}
	})
	return idx
}

var scriptExtensions = []string{"", ".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs", "/index.js", "/index.ts", "/index.jsx", "/index.tsx"}

func (idx *index) resolve(source string, dep Dependency) (string, bool) {
	target := dep.Target
	switch strings.ToLower(path.Ext(source)) {
	case ".py":
		return idx.resolvePython(source, target)
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return idx.resolveScript(source, target)
	case ".java":
		return idx.resolveJava(target)
	case ".go":
		return idx.resolveGo(target)
	}
	return "", false
}

func (idx *index) resolvePython(source, target string) (string, bool) {
	base := ""
	if trimmed := strings.TrimLeft(target, "."); trimmed != target {
		// Relative import: one dot is the current package, each extra dot
		// climbs one level.
		dots := len(target) - len(trimmed)
		base = path.Dir(source)
		for range dots - 1 {
			base = path.Dir(base)
		}
		if base == "." {
			base = ""
		}
		target = trimmed
	}
	parts := strings.Split(target, ".")
	// "pkg.mod.name" may name a module or a symbol inside pkg/mod.
	for n := len(parts); n > 0; n-- {
		rel := path.Join(base, strings.Join(parts[:n], "/"))
		if idx.files[rel+".py"] {
			return rel + ".py", true
		}
		if idx.files[rel+"/__init__.py"] {
			return rel + "/__init__.py", true
		}
		if idx.dirs[rel] {
			return rel, true
		}
	}
	return "", false
}

func (idx *index) resolveScript(source, target string) (string, bool) {
	if !strings.HasPrefix(target, "./") && !strings.HasPrefix(target, "../") {
		return "", false
	}
	rel := path.Join(path.Dir(source), target)
	if strings.HasPrefix(rel, "../") {
		return "", false
	}
	for _, ext := range scriptExtensions {
		if idx.files[rel+ext] {
			return rel + ext, true
		}
	}
	return "", false
}

func (idx *index) resolveJava(target string) (string, bool) {
	target = strings.TrimSuffix(target, ".*")
	if matches := idx.bySuffix[strings.ReplaceAll(target, ".", "/")]; len(matches) == 1 {
		return matches[0], true
	}
	// Bare extends/implements names resolve only when unambiguous.
	if matches := idx.bySuffix[target]; len(matches) == 1 && strings.HasSuffix(matches[0], ".java") {
		return matches[0], true
	}
	return "", false
}

// resolveGo maps an import path onto the deepest project directory that is
// a suffix of it, so "example.com/mod/internal/store" resolves to
// "internal/store" regardless of the module path.
func (idx *index) resolveGo(target string) (string, bool) {
	parts := strings.Split(target, "/")
	for i := range parts {
		rel := strings.Join(parts[i:], "/")
		if idx.dirs[rel] {
			return rel, true
		}
	}
	return "", false
}
