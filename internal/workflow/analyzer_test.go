package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"codesummary/internal/checkpoint"
	"codesummary/internal/config"
	"codesummary/internal/docgen"
	"codesummary/internal/incremental"
	"codesummary/internal/testsupport"
	"codesummary/internal/workflow"
)

type harness struct {
	cfg  *config.Config
	src  string
	docs string
	fake *testsupport.FakeSummarizer
}

func newHarness(t *testing.T, files map[string]string, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithDocsDir("docs")}, opts...)...)
	src := testsupport.WriteTree(t, "", files)
	return &harness{cfg: cfg, src: src, docs: cfg.Output.DocsDir, fake: testsupport.NewFakeSummarizer()}
}

func (h *harness) run(t *testing.T, opts workflow.RunOptions) (*workflow.Report, error) {
	t.Helper()
	return workflow.NewAnalyzer(h.cfg, h.fake, nil).Run(context.Background(), h.src, opts)
}

func (h *harness) mustRun(t *testing.T, opts workflow.RunOptions) *workflow.Report {
	t.Helper()
	report, err := h.run(t, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report
}

func (h *harness) doc(name string) string {
	return filepath.Join(h.docs, filepath.FromSlash(name))
}

func indexOf(t *testing.T, order []string, entry string) int {
	t.Helper()
	i := slices.Index(order, entry)
	if i < 0 {
		t.Fatalf("call %q not found in %v", entry, order)
	}
	return i
}

func apiFiles(n int) map[string]string {
	files := map[string]string{"main.py": "print('hi')\n"}
	for i := range n {
		files[fmt.Sprintf("svc/h%02d.py", i)] = fmt.Sprintf("route %d\n", i)
	}
	return files
}

func scriptEndpoints(fake *testsupport.FakeSummarizer, n int) {
	for i := range n {
		fake.SetEndpoints(fmt.Sprintf("svc/h%02d.py", i), testsupport.Endpoint{
			Method:      "GET",
			Path:        fmt.Sprintf("/r%02d", i),
			Description: fmt.Sprintf("route %d", i),
		})
	}
}

func TestRunProcessesDeepestLevelFirst(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.py":     "x = 1\n",
		"pkg/b.py": "def health(): pass\n",
	})
	h.fake.SetEndpoints("pkg/b.py", testsupport.Endpoint{Method: "GET", Path: "/health", Description: "liveness"})

	report := h.mustRun(t, workflow.RunOptions{})

	order := h.fake.Order()
	b := indexOf(t, order, "AnalyzeFile pkg/b.py")
	pkg := indexOf(t, order, "SummarizeDirectory pkg")
	a := indexOf(t, order, "AnalyzeFile a.py")
	root := indexOf(t, order, "SummarizeDirectory .")
	if b > pkg || b > a {
		t.Fatalf("depth 2 file did not run first: %v", order)
	}
	if pkg > root || a > root {
		t.Fatalf("root summarized before its children: %v", order)
	}

	apiDoc := testsupport.ReadFile(t, h.doc("API_DOC.md"))
	if !strings.Contains(apiDoc, "Total interfaces: 1") || !strings.Contains(apiDoc, "| 1 | pkg/b.py | GET | /health | liveness |") {
		t.Fatalf("unexpected API doc:\n%s", apiDoc)
	}
	if report.Consistency == nil || !report.Consistency.Consistent() {
		t.Fatalf("expected consistent API documents, got %+v", report.Consistency)
	}
	for _, name := range []string{"README.md", "READING_GUIDE.md", "API_USAGE.md", "_dir_summary.md", "pkg/_dir_summary.md", "pkg/b.py.md", "a.py.md"} {
		if _, err := os.Stat(h.doc(name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if report.Processor.FilesAnalyzed != 2 || report.Processor.DirsSummarized != 2 {
		t.Fatalf("stats = %+v", report.Processor)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.py":     "x = 1\n",
		"pkg/b.py": "y = 2\n",
	})
	h.fake.SetEndpoints("pkg/b.py", testsupport.Endpoint{Method: "POST", Path: "/items"})
	h.mustRun(t, workflow.RunOptions{})

	h.fake.Reset()
	report := h.mustRun(t, workflow.RunOptions{})
	if calls := h.fake.Order(); len(calls) != 0 {
		t.Fatalf("rerun made model calls: %v", calls)
	}
	if report.Processor.Reused != 4 {
		t.Fatalf("reused = %d, want 4", report.Processor.Reused)
	}
	if len(report.Final.Reused) != 4 {
		t.Fatalf("final docs reused = %v", report.Final.Reused)
	}
}

func TestRunRegeneratesOnlyDeletedDocument(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.py":     "x = 1\n",
		"pkg/b.py": "y = 2\n",
		"pkg/c.py": "z = 3\n",
	})
	h.mustRun(t, workflow.RunOptions{})
	if err := os.Remove(h.doc("pkg/b.py.md")); err != nil {
		t.Fatalf("remove doc: %v", err)
	}

	h.fake.Reset()
	h.mustRun(t, workflow.RunOptions{})
	if got := h.fake.Order(); !slices.Equal(got, []string{"AnalyzeFile pkg/b.py"}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestRunReanalyzedFileRefreshesAPIDocs(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.py":     "x = 1\n",
		"pkg/b.py": "def health(): pass\n",
	})
	h.fake.SetEndpoints("pkg/b.py", testsupport.Endpoint{Method: "GET", Path: "/health", Description: "liveness"})
	h.mustRun(t, workflow.RunOptions{})

	if err := os.Remove(h.doc("pkg/b.py.md")); err != nil {
		t.Fatalf("remove doc: %v", err)
	}
	h.fake.SetEndpoints("pkg/b.py",
		testsupport.Endpoint{Method: "GET", Path: "/health", Description: "liveness"},
		testsupport.Endpoint{Method: "POST", Path: "/items", Description: "create item"},
	)

	h.fake.Reset()
	report := h.mustRun(t, workflow.RunOptions{})
	if h.fake.Calls(testsupport.CallAnalyzeFile) != 1 {
		t.Fatalf("calls = %v", h.fake.Order())
	}
	if h.fake.Calls(testsupport.CallExtractAPI) != 1 || h.fake.Calls(testsupport.CallExtractUsage) != 1 {
		t.Fatalf("stale extractions reused: %v", h.fake.Order())
	}
	apiDoc := testsupport.ReadFile(t, h.doc("API_DOC.md"))
	if !strings.Contains(apiDoc, "Total interfaces: 2") || !strings.Contains(apiDoc, "/items") {
		t.Fatalf("API doc missing new interface:\n%s", apiDoc)
	}
	if usage := testsupport.ReadFile(t, h.doc("API_USAGE.md")); !strings.Contains(usage, "/items") {
		t.Fatalf("usage doc missing new interface:\n%s", usage)
	}
	if report.Consistency == nil || !report.Consistency.Consistent() {
		t.Fatalf("expected consistent API documents, got %+v", report.Consistency)
	}
}

func TestRunDropsInterfacesOfDeletedSourceFile(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.py":     "x = 1\n",
		"pkg/b.py": "def health(): pass\n",
		"pkg/c.py": "def items(): pass\n",
	})
	h.fake.SetEndpoints("pkg/b.py", testsupport.Endpoint{Method: "GET", Path: "/health", Description: "liveness"})
	h.fake.SetEndpoints("pkg/c.py", testsupport.Endpoint{Method: "POST", Path: "/items", Description: "create item"})
	h.mustRun(t, workflow.RunOptions{})

	if err := os.Remove(filepath.Join(h.src, "pkg", "c.py")); err != nil {
		t.Fatalf("remove source: %v", err)
	}
	if err := os.Remove(h.doc("pkg/c.py.md")); err != nil {
		t.Fatalf("remove doc: %v", err)
	}

	h.fake.Reset()
	h.mustRun(t, workflow.RunOptions{})
	if h.fake.Calls(testsupport.CallSummarizeAPI) != 1 || h.fake.Calls(testsupport.CallExtractAPI) != 0 {
		t.Fatalf("calls = %v", h.fake.Order())
	}
	apiDoc := testsupport.ReadFile(t, h.doc("API_DOC.md"))
	if strings.Contains(apiDoc, "/items") || !strings.Contains(apiDoc, "Total interfaces: 1") {
		t.Fatalf("API doc still lists deleted file:\n%s", apiDoc)
	}
	if usage := testsupport.ReadFile(t, h.doc("API_USAGE.md")); strings.Contains(usage, "/items") {
		t.Fatalf("usage doc still lists deleted file:\n%s", usage)
	}
}

func TestRunStopsAtFailedLevelAndResumes(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.py":     "x = 1\n",
		"pkg/b.py": "y = 2\n",
	}, testsupport.WithMaxRetries(0))
	h.fake.Fail(testsupport.CallAnalyzeFile, "pkg/b.py", 1)

	report, err := h.run(t, workflow.RunOptions{})
	if !errors.Is(err, workflow.ErrLevelFailed) {
		t.Fatalf("expected ErrLevelFailed, got %v", err)
	}
	if _, ok := report.Processor.Failed["pkg/b.py"]; !ok {
		t.Fatalf("failed nodes = %v", report.Processor.Failed)
	}
	if h.fake.Calls(testsupport.CallSummarizeDirectory) != 0 || h.fake.Calls(testsupport.CallAnalyzeFile) != 1 {
		t.Fatalf("shallower levels ran after failure: %v", h.fake.Order())
	}

	h.fake.Reset()
	h.mustRun(t, workflow.RunOptions{})
	if h.fake.Calls(testsupport.CallAnalyzeFile) != 2 || h.fake.Calls(testsupport.CallSummarizeDirectory) != 2 {
		t.Fatalf("resume calls = %v", h.fake.Order())
	}
}

func TestRunNoResumeRegeneratesEverything(t *testing.T) {
	h := newHarness(t, map[string]string{"a.py": "x\n", "pkg/b.py": "y\n"}, testsupport.WithoutAPIDocs())
	h.mustRun(t, workflow.RunOptions{})

	h.fake.Reset()
	h.mustRun(t, workflow.RunOptions{NoResume: true})
	if h.fake.Calls(testsupport.CallAnalyzeFile) != 2 || h.fake.Calls(testsupport.CallSummarizeDirectory) != 2 {
		t.Fatalf("no-resume calls = %v", h.fake.Order())
	}
}

func TestRunAssemblesUsageDocAboveThreshold(t *testing.T) {
	h := newHarness(t, apiFiles(25), testsupport.WithMaxConcurrent(3), testsupport.WithUsageThreshold(20))
	scriptEndpoints(h.fake, 25)
	h.fake.Delay = 2 * time.Millisecond

	report := h.mustRun(t, workflow.RunOptions{})

	if h.fake.Calls(testsupport.CallUsageDoc) != 0 {
		t.Fatalf("single-call usage generation used above threshold")
	}
	if h.fake.Calls(testsupport.CallUsagePreamble) != 1 {
		t.Fatalf("preamble calls = %d", h.fake.Calls(testsupport.CallUsagePreamble))
	}
	usage := testsupport.ReadFile(t, h.doc("API_USAGE.md"))
	if !strings.Contains(usage, "### Module `svc`") || !strings.Contains(usage, "#### GET /r24") {
		t.Fatalf("usage doc not assembled per directory:\n%s", usage)
	}
	if report.Consistency == nil || !report.Consistency.Consistent() || report.Consistency.InventoryCount != 25 {
		t.Fatalf("consistency = %+v", report.Consistency)
	}
	if peak := h.fake.Peak(); peak > 3 {
		t.Fatalf("model calls overlapped %d times, gate is 3", peak)
	}
	if report.GatePeak > 3 || report.GatePeak < 1 {
		t.Fatalf("gate peak = %d", report.GatePeak)
	}
}

func TestRunUsesSingleCallBelowThreshold(t *testing.T) {
	h := newHarness(t, apiFiles(3))
	scriptEndpoints(h.fake, 3)

	report := h.mustRun(t, workflow.RunOptions{})
	if h.fake.Calls(testsupport.CallUsageDoc) != 1 || h.fake.Calls(testsupport.CallUsagePreamble) != 0 {
		t.Fatalf("calls = %v", h.fake.Order())
	}
	if report.Consistency == nil || report.Consistency.UsageCount != 3 {
		t.Fatalf("consistency = %+v", report.Consistency)
	}
}

func TestRunWithholdsAPIDocWhenDetailsMissing(t *testing.T) {
	h := newHarness(t, apiFiles(10))
	scriptEndpoints(h.fake, 10)
	h.fake.Fail(testsupport.CallExtractAPI, "svc/h03.py", -1)

	report := h.mustRun(t, workflow.RunOptions{})

	reason, failed := report.Final.Failed[docgen.FinalAPIDoc]
	if !failed {
		t.Fatalf("API doc not reported failed: %+v", report.Final)
	}
	if !strings.Contains(reason, workflow.ErrMissingAPIDetails.Error()) || !strings.Contains(reason, "1 file(s): svc/h03.py") {
		t.Fatalf("failure reason = %q", reason)
	}
	if _, err := os.Stat(h.doc("API_DOC.md")); !os.IsNotExist(err) {
		t.Fatalf("partial API doc written: %v", err)
	}
	if h.fake.Calls(testsupport.CallSummarizeAPI) != 0 {
		t.Fatalf("stage two ran with missing details")
	}
	if report.Consistency != nil {
		t.Fatalf("consistency check ran without an API doc")
	}

	h.fake.Fail(testsupport.CallExtractAPI, "svc/h03.py", 0)
	h.fake.Reset()
	h.mustRun(t, workflow.RunOptions{})
	if got := h.fake.Calls(testsupport.CallExtractAPI); got != 1 {
		t.Fatalf("rerun extracted %d files, want only the missing one", got)
	}
	if _, err := os.Stat(h.doc("API_DOC.md")); err != nil {
		t.Fatalf("API doc after rerun: %v", err)
	}
}

func TestRunSkipsAPIDocsWithoutAPIFiles(t *testing.T) {
	h := newHarness(t, map[string]string{"a.py": "x\n"})
	report := h.mustRun(t, workflow.RunOptions{})
	if _, ok := report.Final.Skipped[docgen.FinalAPIDoc]; !ok {
		t.Fatalf("API doc not skipped: %+v", report.Final)
	}
	if h.fake.Calls(testsupport.CallExtractAPI) != 0 || h.fake.Calls(testsupport.CallExtractUsage) != 0 {
		t.Fatalf("extraction ran without API files")
	}
}

func TestRunIncrementalInvalidatesChangedFiles(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a.py":     "x = 1\n",
		"pkg/b.py": "y = 2\n",
		"pkg/c.py": "z = 3\n",
	}, testsupport.WithoutAPIDocs())
	h.mustRun(t, workflow.RunOptions{Incremental: true})

	testsupport.WriteFile(t, filepath.Join(h.src, "pkg", "b.py"), "y = 2\nprint(y)\n")
	h.fake.Reset()
	report := h.mustRun(t, workflow.RunOptions{Incremental: true})

	if report.Changes == nil || report.Changes.Count(incremental.ChangeModified) != 1 {
		t.Fatalf("changes = %+v", report.Changes)
	}
	if got := h.fake.Calls(testsupport.CallAnalyzeFile); got != 1 {
		t.Fatalf("analyzed %d files, want 1: %v", got, h.fake.Order())
	}
	if got := h.fake.Calls(testsupport.CallSummarizeDirectory); got != 2 {
		t.Fatalf("summarized %d directories, want pkg and root: %v", got, h.fake.Order())
	}
	if h.fake.Calls(testsupport.CallReadme) != 1 {
		t.Fatalf("README not regenerated after change")
	}
}

func TestRunRejectsEmptySource(t *testing.T) {
	h := newHarness(t, map[string]string{"notes.txt": "no code here"})
	if _, err := h.run(t, workflow.RunOptions{}); !errors.Is(err, workflow.ErrNoSourceFiles) {
		t.Fatalf("expected ErrNoSourceFiles, got %v", err)
	}
}

func TestRunFailsWhenDocsRootLocked(t *testing.T) {
	h := newHarness(t, map[string]string{"a.py": "x\n"})
	lock, err := checkpoint.Lock(h.docs)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer lock.Unlock()

	if _, err := h.run(t, workflow.RunOptions{}); !errors.Is(err, checkpoint.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunKeepsDocsInsideSourceOutOfScan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Analysis.FileExtensions = append(cfg.Analysis.FileExtensions, ".md")
	src := testsupport.WriteTree(t, "", map[string]string{"a.py": "x\n", "notes.md": "# notes\n"})
	fake := testsupport.NewFakeSummarizer()
	analyzer := workflow.NewAnalyzer(cfg, fake, nil)

	first, err := analyzer.Run(context.Background(), src, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := analyzer.Run(context.Background(), src, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.Tree.Files != 2 || second.Tree.Files != 2 {
		t.Fatalf("docs leaked into the scan: %d then %d files", first.Tree.Files, second.Tree.Files)
	}
	if first.DocsRoot != filepath.Join(src, "project_docs") {
		t.Fatalf("docs root = %s", first.DocsRoot)
	}
}
