package docgen

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"codesummary/internal/apidoc"
	"codesummary/internal/fileutil"
	"codesummary/internal/logging"
	"codesummary/internal/tree"
)

const readCacheSize = 512

// Generator formats and persists documents.
type Generator struct {
	layout  Layout
	project string
	cache   *lru.Cache[string, string]
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock overrides the timestamp source used in document headers.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates the docs root and returns a generator writing into it.
func New(layout Layout, project string, logger *slog.Logger, opts ...Option) (*Generator, error) {
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create docs root: %w", err)
	}
	cache, err := lru.New[string, string](readCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create read cache: %w", err)
	}
	g := &Generator{
		layout:  layout,
		project: project,
		cache:   cache,
		logger:  logging.NewComponentLogger(logger, "docgen"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Layout returns the path mapping used by the generator.
func (g *Generator) Layout() Layout { return g.layout }

// Project returns the display name used in final document headers.
func (g *Generator) Project() string { return g.project }

// SaveFileDoc writes a file analysis and returns its path.
func (g *Generator) SaveFileDoc(node *tree.Node, analysis string) (string, error) {
	docPath := g.layout.NodePath(node)
	return docPath, g.write(docPath, formatFileDoc(node, analysis, g.now()))
}

// SaveDirDoc writes a directory summary and returns its path.
func (g *Generator) SaveDirDoc(node *tree.Node, summary string) (string, error) {
	docPath := g.layout.NodePath(node)
	return docPath, g.write(docPath, formatDirDoc(node, summary, g.now()))
}

// SavePlaceholder writes the summary of a directory that has nothing to
// aggregate so ancestors can still be summarized.
func (g *Generator) SavePlaceholder(node *tree.Node) (string, error) {
	return g.SaveDirDoc(node, placeholderBody)
}

// SaveFinal writes a project-level document. Content for the API documents
// is expected to be fully assembled already.
func (g *Generator) SaveFinal(doc FinalDoc, content string) (string, error) {
	docPath := g.layout.FinalPath(doc)
	return docPath, g.write(docPath, formatFinalDoc(doc, g.project, content, g.now()))
}

// SaveReadingGuide writes the reading guide with the project structure
// rendered ahead of the model's text.
func (g *Generator) SaveReadingGuide(structure, guide string) (string, error) {
	body := "## Project structure\n\n```\n" + strings.TrimRight(structure, "\n") + "\n```\n\n" + strings.TrimSpace(guide)
	return g.SaveFinal(FinalReadingGuide, body)
}

// FinalHeader returns the title block for a project-level document. SaveFinal
// does not add it to the API documents, whose callers splice it in front of
// programmatic sections themselves.
func (g *Generator) FinalHeader(doc FinalDoc) string {
	return finalHeader(doc, g.project, g.now())
}

func (g *Generator) write(docPath, content string) error {
	g.cache.Remove(docPath)
	if err := fileutil.WriteFileAtomic(docPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", docPath, err)
	}
	g.cache.Add(docPath, content)
	return nil
}

// Read returns a document's contents, served from cache when possible.
func (g *Generator) Read(docPath string) (string, error) {
	if content, ok := g.cache.Get(docPath); ok {
		return content, nil
	}
	data, err := os.ReadFile(docPath)
	if err != nil {
		return "", err
	}
	content := string(data)
	g.cache.Add(docPath, content)
	return content, nil
}

// Invalidate drops a cached document.
func (g *Generator) Invalidate(docPath string) {
	g.cache.Remove(docPath)
}

// ReadNode returns the persisted document of node.
func (g *Generator) ReadNode(node *tree.Node) (string, error) {
	return g.Read(g.layout.NodePath(node))
}

// ChildDocuments concatenates the persisted documents of node's immediate
// children as "### <name>" sections separated by horizontal rules. API marker
// blocks are stripped. Unreadable children are logged and skipped; count is
// the number of documents included.
func (g *Generator) ChildDocuments(node *tree.Node) (text string, count int) {
	sections := make([]string, 0, len(node.Children))
	for _, child := range node.Children {
		content, err := g.ReadNode(child)
		if err != nil {
			logging.WarnWithContext(g.logger, "child document unreadable", "child_doc_unreadable",
				logging.String(logging.FieldNode, child.Key()),
				logging.String("parent", node.Key()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "directory summary omits this child"),
			)
			continue
		}
		sections = append(sections, "### "+child.Name+"\n\n"+strings.TrimSpace(apidoc.StripMarker(content)))
	}
	return strings.Join(sections, "\n\n---\n\n"), len(sections)
}

// Remove deletes a document if present and drops it from the cache.
func (g *Generator) Remove(docPath string) error {
	g.cache.Remove(docPath)
	if err := os.Remove(docPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
