package apidoc

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

// DetailsHeading opens the assembled per-interface section of a usage document.
const DetailsHeading = "## Interface details"

// ReferenceList renders entries as the checklist given to the model for the
// single-call usage document.
func ReferenceList(entries []Entry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("- %s %s (%s)", entry.Method, entry.Path, entry.File))
	}
	return strings.Join(lines, "\n")
}

// UsageGroup is the set of interfaces from one source directory.
type UsageGroup struct {
	Dir   string
	Files []UsageFile
}

// UsageFile lists one file's interfaces with duplicates removed.
type UsageFile struct {
	File      string
	Endpoints []Endpoint
}

// GroupByDirectory groups entries by source directory in sorted path order.
// Within a file, repeated method+path pairs collapse to the first one.
func GroupByDirectory(entries []Entry) []UsageGroup {
	byFile := make(map[string][]Endpoint)
	seen := make(map[string]map[string]bool)
	for _, entry := range entries {
		if seen[entry.File] == nil {
			seen[entry.File] = make(map[string]bool)
		}
		key := entry.Key()
		if seen[entry.File][key] {
			continue
		}
		seen[entry.File][key] = true
		byFile[entry.File] = append(byFile[entry.File], entry.Endpoint)
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	var groups []UsageGroup
	index := make(map[string]int)
	for _, file := range files {
		dir := path.Dir(file)
		i, ok := index[dir]
		if !ok {
			i = len(groups)
			index[dir] = i
			groups = append(groups, UsageGroup{Dir: dir})
		}
		groups[i].Files = append(groups[i].Files, UsageFile{File: file, Endpoints: byFile[file]})
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Dir < groups[b].Dir })
	return groups
}

// AssembleUsage builds a usage document without a second model pass: the
// model-written preamble followed by one section per interface, each cut
// from that file's extracted usage details.
func AssembleUsage(header, preamble string, entries []Entry, details map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(header, "\n"))
	b.WriteString("\n\n")
	if p := strings.TrimSpace(NeutralizeHeadings(preamble)); p != "" {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	b.WriteString(DetailsHeading)
	b.WriteString("\n")
	for _, group := range GroupByDirectory(entries) {
		label := group.Dir
		if label == "." {
			label = "(project root)"
		}
		fmt.Fprintf(&b, "\n### Module `%s`\n", label)
		for _, file := range group.Files {
			for _, ep := range file.Endpoints {
				fmt.Fprintf(&b, "\n#### %s %s\n\n", ep.Method, ep.Path)
				fmt.Fprintf(&b, "Source: `%s`\n\n", file.File)
				if ep.Description != "" {
					fmt.Fprintf(&b, "%s\n\n", ep.Description)
				}
				excerpt := ExtractSection(details[file.File], ep)
				if excerpt == "" {
					fmt.Fprintf(&b, "_No extracted usage details; see the analysis of `%s`._\n", file.File)
				} else {
					b.WriteString(NeutralizeHeadings(excerpt))
					b.WriteString("\n")
				}
				b.WriteString("\n---\n")
			}
		}
	}
	return b.String()
}

var headingLine = regexp.MustCompile(`^(#{2,6})\s+(.*)$`)

// ExtractSection returns the body under the heading that names ep in
// details, stopping at the next heading of the same or higher level or a
// horizontal rule. It returns "" when no heading matches.
func ExtractSection(details string, ep Endpoint) string {
	lines := strings.Split(details, "\n")
	for i, line := range lines {
		match := headingLine.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil || !headingNames(match[2], ep) {
			continue
		}
		level := len(match[1])
		var body []string
		for _, next := range lines[i+1:] {
			trimmed := strings.TrimSpace(next)
			if trimmed == "---" {
				break
			}
			if m := headingLine.FindStringSubmatch(trimmed); m != nil && len(m[1]) <= level {
				break
			}
			body = append(body, next)
		}
		return strings.TrimSpace(strings.Join(body, "\n"))
	}
	return ""
}

func headingNames(heading string, ep Endpoint) bool {
	replacer := strings.NewReplacer("`", " ", "[", " ", "]", " ", "*", " ")
	fields := strings.Fields(replacer.Replace(heading))
	want := InterfaceKey(ep.Method, ep.Path)
	for i := 0; i+1 < len(fields); i++ {
		if InterfaceKey(fields[i], fields[i+1]) == want {
			return true
		}
	}
	return false
}

// NeutralizeHeadings rewrites lines that would be counted as interface
// headings into bold text so free-form model prose cannot add phantom
// interfaces to a usage document.
func NeutralizeHeadings(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if _, ok := usageHeadingKey(line); ok {
			lines[i] = "**" + strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#")) + "**"
		}
	}
	return strings.Join(lines, "\n")
}
