package docgen

import (
	"path"
	"path/filepath"
	"strings"

	"codesummary/internal/config"
	"codesummary/internal/tree"
)

// FinalDoc identifies one of the project-level documents.
type FinalDoc string

const (
	FinalReadme       FinalDoc = "readme"
	FinalReadingGuide FinalDoc = "reading_guide"
	FinalAPIDoc       FinalDoc = "api_doc"
	FinalAPIUsageDoc  FinalDoc = "api_usage_doc"
)

// FinalDocs lists the project-level documents in generation order.
func FinalDocs() []FinalDoc {
	return []FinalDoc{FinalReadme, FinalReadingGuide, FinalAPIDoc, FinalAPIUsageDoc}
}

// Names holds the configured file names of generated documents.
type Names struct {
	Readme       string
	ReadingGuide string
	APIDoc       string
	APIUsageDoc  string
	DirSummary   string
}

// NamesFromConfig reads document names from the [output] section.
func NamesFromConfig(cfg *config.Config) Names {
	return Names{
		Readme:       cfg.Output.ReadmeName,
		ReadingGuide: cfg.Output.ReadingGuideName,
		APIDoc:       cfg.Output.APIDocName,
		APIUsageDoc:  cfg.Output.APIUsageDocName,
		DirSummary:   cfg.Output.DirSummaryName,
	}
}

// Layout maps nodes to document paths under a docs root.
type Layout struct {
	Root  string
	Names Names
}

// NewLayout constructs a layout rooted at docsRoot.
func NewLayout(docsRoot string, names Names) Layout {
	return Layout{Root: docsRoot, Names: names}
}

// FilePath returns the document path for a file relative path.
func (l Layout) FilePath(rel string) string {
	return filepath.Join(l.Root, filepath.FromSlash(rel)+".md")
}

// DirPath returns the summary path for a directory relative path; "" or
// tree.RootKey address the root.
func (l Layout) DirPath(rel string) string {
	if rel == tree.RootKey {
		rel = ""
	}
	return filepath.Join(l.Root, filepath.FromSlash(rel), l.Names.DirSummary)
}

// NodePath returns the canonical document path of node.
func (l Layout) NodePath(node *tree.Node) string {
	if node.IsDir() {
		return l.DirPath(node.RelPath)
	}
	return l.FilePath(node.RelPath)
}

// FinalPath returns the path of a project-level document.
func (l Layout) FinalPath(doc FinalDoc) string {
	var name string
	switch doc {
	case FinalReadme:
		name = l.Names.Readme
	case FinalReadingGuide:
		name = l.Names.ReadingGuide
	case FinalAPIDoc:
		name = l.Names.APIDoc
	case FinalAPIUsageDoc:
		name = l.Names.APIUsageDoc
	}
	return filepath.Join(l.Root, name)
}

// Classify reverses the mapping for a slash-separated path relative to the
// docs root. It returns the originating node key and kind. Final documents
// at the root and anything that is not a .md file are rejected.
func (l Layout) Classify(docRel string) (key string, kind tree.Kind, ok bool) {
	docRel = strings.Trim(filepath.ToSlash(docRel), "/")
	if !strings.HasSuffix(docRel, ".md") {
		return "", 0, false
	}
	base := path.Base(docRel)
	dir := path.Dir(docRel)
	if base == l.Names.DirSummary {
		if dir == "." {
			return tree.RootKey, tree.KindDirectory, true
		}
		return dir, tree.KindDirectory, true
	}
	if dir == "." && l.isFinalName(base) {
		return "", 0, false
	}
	key = strings.TrimSuffix(docRel, ".md")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", 0, false
	}
	return key, tree.KindFile, true
}

func (l Layout) isFinalName(name string) bool {
	switch name {
	case l.Names.Readme, l.Names.ReadingGuide, l.Names.APIDoc, l.Names.APIUsageDoc:
		return true
	}
	return false
}
