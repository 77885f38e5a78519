package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codesummary/internal/checkpoint"
	"codesummary/internal/docgen"
	"codesummary/internal/gate"
	"codesummary/internal/testsupport"
	"codesummary/internal/tree"
	"codesummary/internal/workflow"
)

type recordingObserver struct {
	mu       sync.Mutex
	percents []float64
	statuses map[string][]string
}

func (o *recordingObserver) OnProgress(_ string, percent float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.percents = append(o.percents, percent)
}

func (o *recordingObserver) OnNodeStatus(node *tree.Node, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.statuses == nil {
		o.statuses = map[string][]string{}
	}
	o.statuses[node.Key()] = append(o.statuses[node.Key()], status)
}

type processorFixture struct {
	root  *tree.Node
	gen   *docgen.Generator
	store *checkpoint.Store
	gate  *gate.Gate
	fake  *testsupport.FakeSummarizer
}

func newProcessorFixture(t *testing.T, capacity int, files map[string]string) processorFixture {
	t.Helper()
	src := testsupport.WriteTree(t, "", files)
	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	root := testsupport.BuildTree(src, rels...)
	layout := docgen.NewLayout(filepath.Join(t.TempDir(), "docs"), docgen.Names{
		Readme:       "README.md",
		ReadingGuide: "READING_GUIDE.md",
		APIDoc:       "API_DOC.md",
		APIUsageDoc:  "API_USAGE.md",
		DirSummary:   "_dir_summary.md",
	})
	gen, err := docgen.New(layout, "Demo", nil)
	if err != nil {
		t.Fatalf("docgen.New: %v", err)
	}
	return processorFixture{
		root:  root,
		gen:   gen,
		store: checkpoint.Open(layout, src, nil),
		gate:  gate.New(capacity),
		fake:  testsupport.NewFakeSummarizer(),
	}
}

func (f processorFixture) processor(opts ...workflow.ProcessorOption) *workflow.Processor {
	return workflow.NewProcessor(f.gen, f.store, f.gate, f.fake, nil, opts...)
}

func TestProcessAllWritesPlaceholderForDirectoryWithoutDocs(t *testing.T) {
	f := newProcessorFixture(t, 2, map[string]string{"a.py": "x\n"})
	empty := tree.NewDirectory(filepath.Join(f.root.Path, "empty"), "empty", 1)
	f.root.AddChild(empty)

	p := f.processor()
	if err := p.ProcessAll(context.Background(), f.root); err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	if empty.Status != tree.StatusSkipped {
		t.Fatalf("empty directory status = %s", empty.Status)
	}
	if !f.store.IsCompleted(empty) {
		t.Fatalf("placeholder not recorded complete")
	}
	if f.fake.Calls(testsupport.CallSummarizeDirectory) != 1 {
		t.Fatalf("directory calls = %v", f.fake.Order())
	}
	if stats := p.Stats(); stats.Skipped != 1 || stats.DirsSummarized != 1 || stats.FilesAnalyzed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestProcessAllRecordsAPIFlags(t *testing.T) {
	f := newProcessorFixture(t, 2, map[string]string{"api/routes.py": "r\n", "util.py": "u\n"})
	f.fake.SetEndpoints("api/routes.py",
		testsupport.Endpoint{Method: "GET", Path: "/users"},
		testsupport.Endpoint{Method: "POST", Path: "/users"},
	)

	if err := f.processor().ProcessAll(context.Background(), f.root); err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	if got := f.store.APIFiles(); len(got) != 1 || got[0] != "api/routes.py" {
		t.Fatalf("API files = %v", got)
	}
	info := f.store.APIInfo()["api/routes.py"]
	if !strings.Contains(info, "[GET] /users") || !strings.Contains(info, "[POST] /users") {
		t.Fatalf("API info = %q", info)
	}
	routes := testsupport.FindNode(f.root, "api/routes.py")
	if routes == nil || !routes.HasAPI {
		t.Fatalf("node not flagged as API-bearing")
	}
}

func TestProcessAllReportsProgressAcrossSpan(t *testing.T) {
	f := newProcessorFixture(t, 2, map[string]string{"a.py": "a\n", "pkg/b.py": "b\n"})
	observer := &recordingObserver{}

	p := f.processor(workflow.WithObserver(observer), workflow.WithProgressSpan(10, 85))
	if err := p.ProcessAll(context.Background(), f.root); err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	if len(observer.percents) != 4 {
		t.Fatalf("progress calls = %v", observer.percents)
	}
	if observer.percents[0] != 10 || observer.percents[3] != 85 {
		t.Fatalf("progress = %v", observer.percents)
	}
	if got := observer.statuses["pkg/b.py"]; len(got) == 0 || !strings.HasPrefix(got[len(got)-1], "done") {
		t.Fatalf("statuses for pkg/b.py = %v", got)
	}
}

func TestProcessAllStopsOnCancellation(t *testing.T) {
	f := newProcessorFixture(t, 1, map[string]string{"a.py": "a\n", "pkg/b.py": "b\n"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.fake.Hook = func(call, key string) {
		if key == "pkg/b.py" {
			cancel()
		}
	}

	err := f.processor().ProcessAll(ctx, f.root)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, workflow.ErrLevelFailed) {
		t.Fatalf("cancellation reported as a level failure")
	}
	if f.fake.Calls(testsupport.CallSummarizeDirectory) != 0 {
		t.Fatalf("directories summarized after cancellation")
	}
	if f.store.IsCompleted(testsupport.FindNode(f.root, "pkg/b.py")) {
		t.Fatalf("cancelled file recorded complete")
	}
}

func TestProcessAllBoundsConcurrencyByGate(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files["x/"+name+".py"] = name
		files["y/"+name+".py"] = name
		files["z/"+name+"/m.py"] = name
	}
	f := newProcessorFixture(t, 2, files)
	f.fake.Delay = 2 * time.Millisecond

	if err := f.processor().ProcessAll(context.Background(), f.root); err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	if peak := f.fake.Peak(); peak > 2 {
		t.Fatalf("peak concurrency %d exceeds gate 2", peak)
	}
	if f.gate.Peak() != 2 {
		t.Fatalf("gate peak = %d, want saturation at 2", f.gate.Peak())
	}
}
