package apidoc

import (
	"regexp"
	"sort"
	"strings"
)

var (
	inventoryRowPattern = regexp.MustCompile(`^\|\s*\d+\s*\|[^|]*\|\s*([A-Za-z][A-Za-z_-]*)\s*\|\s*((?:[^|\\]|\\.)+?)\s*\|`)
	usageHeadingPattern = regexp.MustCompile(`^#{3,4}\s+(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS|WS|WEBSOCKET)\s+(/\S*)`)
	toolHeadingPattern  = regexp.MustCompile(`(?i)^#{3,4}\s+\[?MCP(?:\s*tool)?\]?\s*:?\s+(\w+)`)
)

// Counts is a multiset of interface keys.
type Counts map[string]int

// Total sums the multiset.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// ParseInventoryDoc counts the rows of the overview table in an API
// inventory document. Only the overview section is read so tables in the
// module narrative are not double counted; without the overview heading the
// whole document is scanned. Rows are counted only when the same interface
// written as a usage heading would be recognized by ParseUsageDoc, keeping
// the two multisets comparable.
func ParseInventoryDoc(doc string) Counts {
	counts := Counts{}
	lines := strings.Split(doc, "\n")
	start := 0
	scoped := false
	for i, line := range lines {
		if strings.TrimSpace(line) == OverviewHeading {
			start = i + 1
			scoped = true
			break
		}
	}
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if scoped && strings.HasPrefix(trimmed, "## ") {
			break
		}
		match := inventoryRowPattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		heading := "#### " + match[1] + " " + strings.ReplaceAll(match[2], `\|`, "|")
		if key, ok := usageHeadingKey(heading); ok {
			counts[key]++
		}
	}
	return counts
}

// ParseUsageDoc counts interface headings (### METHOD /path or #### MCP name)
// in a usage document.
func ParseUsageDoc(doc string) Counts {
	counts := Counts{}
	for _, line := range strings.Split(doc, "\n") {
		if key, ok := usageHeadingKey(line); ok {
			counts[key]++
		}
	}
	return counts
}

func usageHeadingKey(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if match := usageHeadingPattern.FindStringSubmatch(trimmed); match != nil {
		return InterfaceKey(match[1], match[2]), true
	}
	if match := toolHeadingPattern.FindStringSubmatch(trimmed); match != nil {
		return InterfaceKey("MCP", match[1]), true
	}
	return "", false
}

// Diff is the reconciliation result between the two documents. A key
// appears once per missing or surplus occurrence.
type Diff struct {
	InventoryCount   int
	UsageCount       int
	MissingFromUsage []string
	ExtraInUsage     []string
}

// Consistent reports whether both documents list the same multiset.
func (d Diff) Consistent() bool {
	return len(d.MissingFromUsage) == 0 && len(d.ExtraInUsage) == 0
}

// Compare reconciles the inventory and usage documents.
func Compare(inventoryDoc, usageDoc string) Diff {
	inventory := ParseInventoryDoc(inventoryDoc)
	usage := ParseUsageDoc(usageDoc)
	diff := Diff{InventoryCount: inventory.Total(), UsageCount: usage.Total()}
	for key, n := range inventory {
		for i := usage[key]; i < n; i++ {
			diff.MissingFromUsage = append(diff.MissingFromUsage, key)
		}
	}
	for key, n := range usage {
		for i := inventory[key]; i < n; i++ {
			diff.ExtraInUsage = append(diff.ExtraInUsage, key)
		}
	}
	sort.Strings(diff.MissingFromUsage)
	sort.Strings(diff.ExtraInUsage)
	return diff
}
