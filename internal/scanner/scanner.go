package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"

	"codesummary/internal/config"
	"codesummary/internal/logging"
	"codesummary/internal/tree"
)

// Options controls which entries are included in the tree.
type Options struct {
	Extensions     []string
	IgnorePatterns []string
	MaxFileSize    int64
	SkipVendored   bool
}

// OptionsFromConfig reads scanner options from the [analysis] section.
// Extra ignore patterns are appended to the configured ones.
func OptionsFromConfig(cfg *config.Config, extraIgnores ...string) Options {
	ignores := append([]string(nil), cfg.Analysis.IgnorePatterns...)
	return Options{
		Extensions:     cfg.Analysis.FileExtensions,
		IgnorePatterns: append(ignores, extraIgnores...),
		MaxFileSize:    cfg.Analysis.MaxFileSize,
		SkipVendored:   cfg.Analysis.SkipVendored,
	}
}

// Scanner builds trees from directories on disk.
type Scanner struct {
	opts       Options
	matcher    *Matcher
	extensions map[string]struct{}
	logger     *slog.Logger
}

// New constructs a scanner. A nil logger discards output.
func New(opts Options, logger *slog.Logger) *Scanner {
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Scanner{
		opts:       opts,
		matcher:    NewMatcher(opts.IgnorePatterns),
		extensions: exts,
		logger:     logging.NewComponentLogger(logger, "scanner"),
	}
}

// Scan walks root and returns the pruned tree.
func (s *Scanner) Scan(root string) (*tree.Node, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("source root %s does not exist", abs)
		}
		return nil, fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", abs)
	}

	s.logger.Info("scanning source tree", logging.String("root", abs))
	rootNode := tree.NewDirectory(abs, "", 0)
	s.scanDir(abs, "", rootNode)

	pruned := rootNode.Prune()
	if pruned > 0 {
		s.logger.Info("pruned directories without analyzable files", logging.Int("count", pruned))
	}
	s.logger.Info("scan complete",
		logging.Int("files", len(rootNode.AllFiles())),
		logging.Int("dirs", len(rootNode.AllDirs())),
		logging.Int("max_depth", rootNode.MaxDepth()),
	)
	return rootNode, nil
}

func (s *Scanner) scanDir(absDir, relDir string, parent *tree.Node) {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		logging.WarnWithContext(s.logger, "directory unreadable; skipping", "scan_dir_unreadable",
			logging.String("path", absDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
			logging.String(logging.FieldImpact, "files below this directory are not analyzed"),
		)
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		rel := name
		if relDir != "" {
			rel = relDir + "/" + name
		}
		absPath := filepath.Join(absDir, name)

		if s.matcher.Ignored(rel, entry.IsDir()) {
			continue
		}
		if s.opts.SkipVendored && enry.IsVendor(rel) {
			s.logger.Debug("skipping vendored path", logging.String("path", rel))
			continue
		}

		if entry.IsDir() {
			dir := tree.NewDirectory(absPath, rel, parent.Depth+1)
			parent.AddChild(dir)
			s.scanDir(absPath, rel, dir)
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if !s.supported(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if s.opts.MaxFileSize > 0 && info.Size() > s.opts.MaxFileSize {
			s.logger.Debug("file exceeds size limit; skipping",
				logging.String("path", rel),
				logging.Int64("size", info.Size()),
			)
			continue
		}
		file := tree.NewFile(absPath, rel, parent.Depth+1)
		file.Size = info.Size()
		file.Language = DetectLanguage(name)
		parent.AddChild(file)
	}
	parent.SortChildren()
}

func (s *Scanner) supported(name string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// DetectLanguage names the programming language for a file name, or "" when unknown.
func DetectLanguage(name string) string {
	return enry.GetLanguage(filepath.Base(name), nil)
}
