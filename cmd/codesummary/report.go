package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"codesummary/internal/docgen"
	"codesummary/internal/incremental"
	"codesummary/internal/workflow"
)

const maxListedFailures = 10

func renderReport(report *workflow.Report) string {
	var b strings.Builder

	pairs := [][2]string{
		{"Project", report.Project},
		{"Source", report.SourceRoot},
		{"Docs", report.DocsRoot},
		{"Run ID", report.RunID},
		{"Files", strconv.Itoa(report.Tree.Files)},
		{"Directories", strconv.Itoa(report.Tree.Dirs)},
		{"Max depth", strconv.Itoa(report.Tree.MaxDepth)},
		{"Source size", humanize.Bytes(uint64(max(report.Tree.Bytes, 0)))},
		{"Files analyzed", strconv.Itoa(report.Processor.FilesAnalyzed)},
		{"Directories summarized", strconv.Itoa(report.Processor.DirsSummarized)},
		{"Reused documents", strconv.Itoa(report.Processor.Reused)},
		{"Placeholders", strconv.Itoa(report.Processor.Skipped)},
		{"Failed", strconv.Itoa(len(report.Processor.Failed))},
		{"Model calls", strconv.Itoa(report.ModelCalls)},
		{"Peak concurrent requests", strconv.Itoa(report.GatePeak)},
		{"Duration", report.Duration.Round(100 * time.Millisecond).String()},
	}
	if report.Changes != nil {
		pairs = append(pairs, [2]string{"Changes", describeChanges(*report.Changes)})
	}
	b.WriteString(keyValueTable("Analysis", pairs))
	b.WriteString("\n")

	if report.Final != nil {
		b.WriteString(renderFinalDocs(report.Final))
		b.WriteString("\n")
	}

	if diff := report.Consistency; diff != nil {
		if diff.Consistent() {
			okColor.Fprintf(&b, "API documents consistent: %d interface(s)\n", diff.InventoryCount)
		} else {
			warnColor.Fprintf(&b, "API documents differ: %d in reference, %d in usage guide\n", diff.InventoryCount, diff.UsageCount)
			for _, sig := range diff.MissingFromUsage {
				fmt.Fprintf(&b, "  missing from usage: %s\n", sig)
			}
			for _, sig := range diff.ExtraInUsage {
				fmt.Fprintf(&b, "  only in usage: %s\n", sig)
			}
		}
	}

	b.WriteString(renderFailures(report.Processor.Failed))
	return b.String()
}

func describeChanges(plan incremental.Plan) string {
	if !plan.HasPrevious {
		return "no previous fingerprints"
	}
	if plan.Empty() {
		return "none"
	}
	return fmt.Sprintf("%d added, %d modified, %d deleted",
		plan.Count(incremental.ChangeAdded),
		plan.Count(incremental.ChangeModified),
		plan.Count(incremental.ChangeDeleted),
	)
}

func renderFinalDocs(outcome *workflow.FinalOutcome) string {
	rows := make([][]string, 0, len(docgen.FinalDocs()))
	for _, doc := range docgen.FinalDocs() {
		state := "not requested"
		switch {
		case slices.Contains(outcome.Written, doc):
			state = okColor.Sprint("written")
		case slices.Contains(outcome.Reused, doc):
			state = "up to date"
		case outcome.Skipped[doc] != "":
			state = "skipped: " + outcome.Skipped[doc]
		case outcome.Failed[doc] != "":
			state = failColor.Sprint("failed: " + outcome.Failed[doc])
		}
		rows = append(rows, []string{string(doc), state})
	}
	return renderTable("Project documents", []string{"Document", "State"}, rows, nil)
}

// renderFailures lists up to maxListedFailures failed nodes in key order.
func renderFailures(failed map[string]string) string {
	if len(failed) == 0 {
		return ""
	}
	var b strings.Builder
	failColor.Fprintf(&b, "%d node(s) failed:\n", len(failed))
	keys := slices.Sorted(maps.Keys(failed))
	for i, key := range keys {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "  ... and %d more\n", len(keys)-maxListedFailures)
			break
		}
		fmt.Fprintf(&b, "  %s: %s\n", key, failed[key])
	}
	return b.String()
}
