package scanner

import (
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// compileGlob compiles pattern without separators, so `*` also matches `/`.
// A pattern that does not compile, such as an unterminated class, is matched
// literally.
func compileGlob(pattern string) glob.Glob {
	g, err := glob.Compile(pattern)
	if err != nil {
		g = glob.MustCompile(glob.QuoteMeta(pattern))
	}
	return g
}

type ignoreRule struct {
	pattern glob.Glob
	// dir matches a directory's own name for "dir/**" and "dir/" patterns.
	dir glob.Glob
}

// Matcher evaluates ignore patterns against entries.
type Matcher struct {
	rules []ignoreRule
}

// NewMatcher builds a matcher from the configured patterns.
func NewMatcher(patterns []string) *Matcher {
	rules := make([]ignoreRule, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
		if p == "" {
			continue
		}
		rule := ignoreRule{pattern: compileGlob(p)}
		if strings.HasSuffix(p, "/**") || strings.HasSuffix(p, "/") {
			if dirPattern := strings.TrimRight(p, "/*"); dirPattern != "" {
				rule.dir = compileGlob(dirPattern)
			}
		}
		rules = append(rules, rule)
	}
	return &Matcher{rules: rules}
}

// Ignored reports whether the entry at relPath should be skipped. Dotfiles are
// always ignored.
func (m *Matcher) Ignored(relPath string, isDir bool) bool {
	relPath = strings.ReplaceAll(relPath, "\\", "/")
	name := path.Base(relPath)
	if strings.HasPrefix(name, ".") {
		return true
	}
	if m == nil {
		return false
	}
	for _, rule := range m.rules {
		if rule.dir != nil {
			if isDir && rule.dir.Match(name) {
				return true
			}
			if rule.pattern.Match(relPath) {
				return true
			}
			continue
		}
		if rule.pattern.Match(name) || rule.pattern.Match(relPath) {
			return true
		}
	}
	return false
}
