package docgen

import (
	"fmt"
	"strings"
	"time"

	"codesummary/internal/tree"
)

const timestampLayout = "2006-01-02 15:04:05"

const placeholderBody = "_No analyzable children: every entry in this directory was skipped._\n"

func formatFileDoc(node *tree.Node, analysis string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# File analysis: %s\n\n", node.Name)
	fmt.Fprintf(&b, "**Source**: `%s`\n", node.RelPath)
	if node.Language != "" {
		fmt.Fprintf(&b, "**Language**: %s\n", node.Language)
	}
	fmt.Fprintf(&b, "**Generated**: %s\n\n---\n\n", now.Format(timestampLayout))
	b.WriteString(strings.TrimSpace(analysis))
	b.WriteString("\n")
	return b.String()
}

func formatDirDoc(node *tree.Node, summary string, now time.Time) string {
	display := node.RelPath
	if display == "" {
		display = node.Name
	}
	files, dirs := node.ImmediateCounts()
	var b strings.Builder
	fmt.Fprintf(&b, "# Directory summary: %s\n\n", node.Name)
	fmt.Fprintf(&b, "**Path**: `%s`\n", display)
	fmt.Fprintf(&b, "**Files**: %d\n", files)
	fmt.Fprintf(&b, "**Subdirectories**: %d\n", dirs)
	fmt.Fprintf(&b, "**Generated**: %s\n\n---\n\n", now.Format(timestampLayout))
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")
	return b.String()
}

func finalHeader(doc FinalDoc, project string, now time.Time) string {
	stamp := now.Format(timestampLayout)
	switch doc {
	case FinalReadingGuide:
		return fmt.Sprintf("# %s - Reading Guide\n\n> A suggested order for reading the generated documents.\n> Generated: %s\n", project, stamp)
	case FinalAPIDoc:
		return fmt.Sprintf("# %s - API Reference\n\n> Generated: %s\n", project, stamp)
	case FinalAPIUsageDoc:
		return fmt.Sprintf("# %s - API Usage Guide\n\n> Generated: %s\n", project, stamp)
	default:
		return ""
	}
}

func formatFinalDoc(doc FinalDoc, project, content string, now time.Time) string {
	content = strings.TrimSpace(content)
	switch doc {
	case FinalReadme:
		return fmt.Sprintf("%s\n\n---\n\n*Generated by codesummary for %s on %s*\n", content, project, now.Format(timestampLayout))
	case FinalReadingGuide:
		return finalHeader(doc, project, now) + "\n" + content + "\n"
	default:
		return content + "\n"
	}
}
