package depgraph

import (
	"path"
	"regexp"
	"strings"

	"github.com/src-d/enry/v2"
)

// Parser extracts dependencies from the content of one file.
type Parser func(content, source string) []Dependency

var (
	pyImport       = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([\w. \t,]+?)[ \t]*(?:#.*)?$`)
	pyFromImport   = regexp.MustCompile(`(?m)^[ \t]*from[ \t]+(\.*[\w.]*)[ \t]+import[ \t]+\(?([\w, \t*]+)`)
	jsFromImport   = regexp.MustCompile(`(?m)^[ \t]*(?:import|export)[ \t]+(type[ \t]+)?[^'";]*?\s+from[ \t]+['"]([^'"]+)['"]`)
	jsBareImport   = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+['"]([^'"]+)['"]`)
	jsRequire      = regexp.MustCompile(`\brequire[ \t]*\([ \t]*['"]([^'"]+)['"][ \t]*\)`)
	jsDynamic      = regexp.MustCompile(`\bimport[ \t]*\([ \t]*['"]([^'"]+)['"][ \t]*\)`)
	javaImport     = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+(?:static[ \t]+)?([\w.]+(?:\.\*)?)[ \t]*;`)
	javaExtends    = regexp.MustCompile(`\b(?:class|interface)[ \t]+\w+(?:<[^>{]*>)?[ \t]+extends[ \t]+([\w.]+)`)
	javaImplements = regexp.MustCompile(`\bclass[ \t]+\w+[^{]*?\bimplements[ \t]+([\w.,<> \t]+?)[ \t]*\{`)
	goSingle       = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+(?:[\w.]+[ \t]+)?"([^"]+)"`)
	goBlock        = regexp.MustCompile(`(?s)\bimport[ \t]*\((.*?)\)`)
	goBlockPath    = regexp.MustCompile(`"([^"]+)"`)
)

// lineAt returns the 1-based line number of byte offset i.
func lineAt(content string, i int) int {
	return strings.Count(content[:i], "\n") + 1
}

// ParsePython extracts import and from-import statements.
func ParsePython(content, source string) []Dependency {
	var deps []Dependency
	for _, m := range pyImport.FindAllStringSubmatchIndex(content, -1) {
		line := lineAt(content, m[0])
		for _, part := range strings.Split(content[m[2]:m[3]], ",") {
			fields := strings.Fields(part)
			if len(fields) == 0 {
				continue
			}
			deps = append(deps, Dependency{
				Source: source, Target: fields[0], Kind: KindImport, Line: line,
				Detail: "import " + fields[0],
			})
		}
	}
	for _, m := range pyFromImport.FindAllStringSubmatchIndex(content, -1) {
		module := content[m[2]:m[3]]
		line := lineAt(content, m[0])
		for _, part := range strings.Split(content[m[4]:m[5]], ",") {
			fields := strings.Fields(part)
			if len(fields) == 0 {
				continue
			}
			name := fields[0]
			target := module + "." + name
			if name == "*" {
				target = module
			} else if strings.HasSuffix(module, ".") {
				target = module + name
			}
			deps = append(deps, Dependency{
				Source: source, Target: target, Kind: KindImport, Line: line,
				Detail: "from " + module + " import " + name,
			})
		}
	}
	return deps
}

// ParseJavaScript extracts ES module imports and re-exports, side-effect
// imports, dynamic imports and CommonJS requires.
func ParseJavaScript(content, source string) []Dependency {
	var deps []Dependency
	add := func(pattern *regexp.Regexp, group int, detail func(m []int) string) {
		for _, m := range pattern.FindAllStringSubmatchIndex(content, -1) {
			deps = append(deps, Dependency{
				Source: source,
				Target: content[m[2*group]:m[2*group+1]],
				Kind:   KindImport,
				Line:   lineAt(content, m[0]),
				Detail: detail(m),
			})
		}
	}
	add(jsFromImport, 2, func(m []int) string {
		if m[2] >= 0 {
			return "type import"
		}
		return strings.TrimSpace(content[m[0]:m[1]])
	})
	add(jsBareImport, 1, func([]int) string { return "side-effect import" })
	add(jsRequire, 1, func([]int) string { return "require" })
	add(jsDynamic, 1, func([]int) string { return "dynamic import" })
	return deps
}

// ParseJava extracts imports plus extends and implements relations.
func ParseJava(content, source string) []Dependency {
	var deps []Dependency
	for _, m := range javaImport.FindAllStringSubmatchIndex(content, -1) {
		deps = append(deps, Dependency{
			Source: source, Target: content[m[2]:m[3]], Kind: KindImport, Line: lineAt(content, m[0]),
		})
	}
	for _, m := range javaExtends.FindAllStringSubmatchIndex(content, -1) {
		deps = append(deps, Dependency{
			Source: source, Target: content[m[2]:m[3]], Kind: KindExtends, Line: lineAt(content, m[0]),
		})
	}
	for _, m := range javaImplements.FindAllStringSubmatchIndex(content, -1) {
		line := lineAt(content, m[0])
		for _, iface := range splitTypeList(content[m[2]:m[3]]) {
			deps = append(deps, Dependency{Source: source, Target: iface, Kind: KindImplements, Line: line})
		}
	}
	return deps
}

// splitTypeList splits "A, B<C, D>, E" at top-level commas and drops type
// arguments.
func splitTypeList(list string) []string {
	var out []string
	depth := 0
	var cur strings.Builder
	flush := func() {
		if name := strings.TrimSpace(cur.String()); name != "" {
			out = append(out, name)
		}
		cur.Reset()
	}
	for _, r := range list {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case r == ',' && depth == 0:
			flush()
		case depth == 0:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// ParseGo extracts single-line and grouped imports.
func ParseGo(content, source string) []Dependency {
	var deps []Dependency
	for _, m := range goSingle.FindAllStringSubmatchIndex(content, -1) {
		deps = append(deps, Dependency{
			Source: source, Target: content[m[2]:m[3]], Kind: KindImport, Line: lineAt(content, m[0]),
		})
	}
	for _, m := range goBlock.FindAllStringSubmatchIndex(content, -1) {
		block := content[m[2]:m[3]]
		for _, p := range goBlockPath.FindAllStringSubmatchIndex(block, -1) {
			deps = append(deps, Dependency{
				Source: source,
				Target: block[p[2]:p[3]],
				Kind:   KindImport,
				Line:   lineAt(content, m[2]+p[0]),
			})
		}
	}
	return deps
}

var parsersByLanguage = map[string]Parser{
	"Python":     ParsePython,
	"JavaScript": ParseJavaScript,
	"JSX":        ParseJavaScript,
	"TypeScript": ParseJavaScript,
	"TSX":        ParseJavaScript,
	"Java":       ParseJava,
	"Go":         ParseGo,
}

var parsersByExtension = map[string]Parser{
	".py":   ParsePython,
	".js":   ParseJavaScript,
	".jsx":  ParseJavaScript,
	".mjs":  ParseJavaScript,
	".cjs":  ParseJavaScript,
	".ts":   ParseJavaScript,
	".tsx":  ParseJavaScript,
	".java": ParseJava,
	".go":   ParseGo,
}

// ParserFor selects a parser for a file by its detected language, falling
// back to the extension. It returns nil for unsupported files.
func ParserFor(name string, content []byte) Parser {
	if parser, ok := parsersByLanguage[enry.GetLanguage(path.Base(name), content)]; ok {
		return parser
	}
	return parsersByExtension[strings.ToLower(path.Ext(name))]
}
