package apidoc

import (
	"fmt"
	"regexp"
	"strings"
)

// Entry is one row of the interface inventory.
type Entry struct {
	File string
	Endpoint
}

// Inventory flattens per-file digests into entries. Files are visited in
// the given order and every endpoint is kept: two modules exposing the same
// method and path produce two rows.
func Inventory(order []string, info map[string]string) []Entry {
	var out []Entry
	for _, file := range order {
		for _, ep := range DecodeInfo(info[file]) {
			out = append(out, Entry{File: file, Endpoint: ep})
		}
	}
	return out
}

// OverviewHeading opens the programmatic inventory section.
const OverviewHeading = "## Interface overview"

// OverviewTable renders the fixed-format inventory section.
func OverviewTable(entries []Entry) string {
	var b strings.Builder
	b.WriteString(OverviewHeading)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Total interfaces: %d\n\n", len(entries))
	b.WriteString("| No. | Module | Method | Path | Description |\n")
	b.WriteString("|-----|--------|--------|------|-------------|\n")
	for i, entry := range entries {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			i+1,
			cell(entry.File),
			cell(entry.Method),
			cell(entry.Path),
			cell(entry.Description),
		)
	}
	return b.String()
}

func cell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "|", `\|`)
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

// MissingDetailsError reports API-bearing files without a cached stage-1
// extraction. Document generation stops rather than emit a partial result.
type MissingDetailsError struct {
	Document string
	Missing  []string
}

func (e *MissingDetailsError) Error() string {
	return fmt.Sprintf("%s: missing extracted details for %d file(s): %s",
		e.Document, len(e.Missing), strings.Join(e.Missing, ", "))
}

// CheckDetails returns a *MissingDetailsError when any file in apiFiles has
// no entry in details.
func CheckDetails(document string, apiFiles []string, details map[string]string) error {
	var missing []string
	for _, file := range apiFiles {
		if strings.TrimSpace(details[file]) == "" {
			missing = append(missing, file)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingDetailsError{Document: document, Missing: missing}
}

// moduleHeadingPattern finds where the model's module breakdown begins.
var moduleHeadingPattern = regexp.MustCompile(`(?im)^##\s+(?:\d+[.)]?\s*)?(?:(?:interfaces?|apis?|endpoints?)\s+)?by\s+module\b.*$`)

// Splice joins the programmatic overview with the model's narrative. When the
// narrative contains a module-breakdown heading only the text from that
// heading onward is kept, dropping any overview the model wrote itself.
// found reports whether the heading was located; when it was not, the whole
// narrative is appended.
func Splice(header, overview, narrative string) (doc string, found bool) {
	narrative = strings.TrimSpace(narrative)
	if loc := moduleHeadingPattern.FindStringIndex(narrative); loc != nil {
		narrative = narrative[loc[0]:]
		found = true
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(header, "\n"))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimRight(overview, "\n"))
	b.WriteString("\n\n")
	b.WriteString(narrative)
	b.WriteString("\n")
	return b.String(), found
}
