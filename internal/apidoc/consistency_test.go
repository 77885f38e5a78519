package apidoc

import (
	"reflect"
	"testing"
)

func TestCompareReportsStructuredDiff(t *testing.T) {
	inventory := OverviewTable([]Entry{
		{File: "a.py", Endpoint: Endpoint{Method: "GET", Path: "/health"}},
		{File: "a.py", Endpoint: Endpoint{Method: "GET", Path: "/health"}},
		{File: "b.py", Endpoint: Endpoint{Method: "POST", Path: "/items"}},
		{File: "t.py", Endpoint: Endpoint{Method: "MCP", Path: "lookup(term)"}},
	})
	usage := "### GET /health\n\n#### MCP tool: lookup\n\n#### DELETE /items\n"

	diff := Compare(inventory, usage)
	if diff.Consistent() {
		t.Fatal("expected a discrepancy")
	}
	if !reflect.DeepEqual(diff.MissingFromUsage, []string{"GET /health", "POST /items"}) {
		t.Fatalf("missing = %v", diff.MissingFromUsage)
	}
	if !reflect.DeepEqual(diff.ExtraInUsage, []string{"DELETE /items"}) {
		t.Fatalf("extra = %v", diff.ExtraInUsage)
	}
	if diff.InventoryCount != 4 || diff.UsageCount != 3 {
		t.Fatalf("counts = %d/%d", diff.InventoryCount, diff.UsageCount)
	}
}

func TestParseUsageDocIgnoresOtherHeadings(t *testing.T) {
	doc := "## GET /top-level is level two\n### Module `api`\n#### GET /ok\n##### GET /too-deep\n#### GET relative\n"
	counts := ParseUsageDoc(doc)
	if !reflect.DeepEqual(counts, Counts{"GET /ok": 1}) {
		t.Fatalf("unexpected counts %v", counts)
	}
}
