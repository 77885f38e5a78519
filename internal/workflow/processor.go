package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"codesummary/internal/apidoc"
	"codesummary/internal/checkpoint"
	"codesummary/internal/docgen"
	"codesummary/internal/gate"
	"codesummary/internal/logging"
	"codesummary/internal/queue"
	"codesummary/internal/retry"
	"codesummary/internal/services"
	"codesummary/internal/tree"
)

// DefaultUsageThreshold is the interface count at which the usage guide
// switches to programmatic assembly.
const DefaultUsageThreshold = 20

// Stats counts what a Processor did during its lifetime.
type Stats struct {
	FilesAnalyzed  int
	DirsSummarized int
	Reused         int
	Skipped        int
	Failed         map[string]string
	Duration       time.Duration
}

// Processor runs the level-synchronized pipeline over one tree.
type Processor struct {
	gen            *docgen.Generator
	store          *checkpoint.Store
	gate           *gate.Gate
	queue          *queue.Queue
	summarizer     Summarizer
	observer       Observer
	logger         *slog.Logger
	usageThreshold int
	spanLo         float64
	spanHi         float64

	mu    sync.Mutex
	stats Stats
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithObserver installs a progress observer.
func WithObserver(observer Observer) ProcessorOption {
	return func(p *Processor) {
		if observer != nil {
			p.observer = observer
		}
	}
}

// WithUsageThreshold sets the interface count at which the usage guide is
// assembled programmatically.
func WithUsageThreshold(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.usageThreshold = n
		}
	}
}

// WithProgressSpan maps level progress onto [lo, hi] percent.
func WithProgressSpan(lo, hi float64) ProcessorOption {
	return func(p *Processor) {
		p.spanLo, p.spanHi = lo, hi
	}
}

// NewProcessor wires the pipeline. The gate bounds every model call the
// processor makes, including those issued through its internal queue.
func NewProcessor(gen *docgen.Generator, store *checkpoint.Store, g *gate.Gate, summarizer Summarizer, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		gen:            gen,
		store:          store,
		gate:           g,
		summarizer:     summarizer,
		observer:       NopObserver{},
		logger:         logging.NewComponentLogger(logger, "processor"),
		usageThreshold: DefaultUsageThreshold,
		spanLo:         0,
		spanHi:         100,
		stats:          Stats{Failed: map[string]string{}},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = queue.New(g, g.Capacity(), p.analyzeFile, logger)
	return p
}

// Stats returns a snapshot of the processor's counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.stats
	out.Failed = maps.Clone(p.stats.Failed)
	return out
}

func (p *Processor) count(fn func(*Stats)) {
	p.mu.Lock()
	fn(&p.stats)
	p.mu.Unlock()
}

// ProcessAll processes every level from the deepest to the root. It returns
// an error wrapping ErrLevelFailed when a level ends with failures, or the
// context error when the run is cancelled; in both cases the checkpoint is
// saved first.
func (p *Processor) ProcessAll(ctx context.Context, root *tree.Node) error {
	start := time.Now()
	defer func() {
		p.count(func(s *Stats) { s.Duration += time.Since(start) })
	}()

	levels := root.Levels()
	maxDepth := root.MaxDepth()
	missingFiles, missingDirs := p.store.MissingNodes(root)
	stats := root.CollectStats()
	p.logger.Info("level processing started",
		logging.String(logging.FieldEventType, "levels_start"),
		logging.Int("levels", maxDepth+1),
		logging.Int("files", stats.Files),
		logging.Int("dirs", stats.Dirs),
		logging.Int("pending_files", len(missingFiles)),
		logging.Int("pending_dirs", len(missingDirs)),
	)

	for depth := maxDepth; depth >= 0; depth-- {
		if err := ctx.Err(); err != nil {
			p.store.Save()
			return err
		}
		nodes := levels[depth]
		p.observer.OnProgress(
			fmt.Sprintf("Processing level %d (%d nodes)", depth, len(nodes)),
			p.span(maxDepth-depth, maxDepth+1),
		)
		failed, err := p.processLevel(ctx, depth, nodes)
		if err != nil {
			p.store.Save()
			return err
		}
		if failed > 0 {
			p.store.Save()
			logging.ErrorWithContext(p.logger, "level failed; stopping before shallower levels", "level_failed",
				logging.Int(logging.FieldDepth, depth),
				logging.Int("failed", failed),
				logging.Int("nodes", len(nodes)),
				logging.String(logging.FieldErrorHint, "rerun to retry failed nodes; completed work is kept"),
			)
			return fmt.Errorf("%w: depth %d: %d of %d node(s) failed", ErrLevelFailed, depth, failed, len(nodes))
		}
	}
	p.store.Save()
	p.observer.OnProgress("All levels processed", p.spanHi)
	return nil
}

func (p *Processor) span(done, total int) float64 {
	if total <= 0 {
		return p.spanHi
	}
	return p.spanLo + (p.spanHi-p.spanLo)*float64(done)/float64(total)
}

func (p *Processor) processLevel(ctx context.Context, depth int, nodes []*tree.Node) (int, error) {
	ctx = services.WithDepth(ctx, depth)
	logger := logging.WithContext(ctx, p.logger)

	var files, dirs []*tree.Node
	for _, node := range nodes {
		if node.IsFile() {
			files = append(files, node)
		} else {
			dirs = append(dirs, node)
		}
	}
	logger.Info("level started",
		logging.Int("files", len(files)),
		logging.Int("dirs", len(dirs)),
	)

	failed := p.processFiles(ctx, files)
	if err := ctx.Err(); err != nil {
		return failed, err
	}
	failed += p.processDirectories(ctx, dirs)
	if err := ctx.Err(); err != nil {
		return failed, err
	}

	logger.Info("level finished",
		logging.Int("nodes", len(nodes)),
		logging.Int("failed", failed),
	)
	return failed, nil
}

// reuse marks a node verified complete on disk as done without a model call.
func (p *Processor) reuse(node *tree.Node) {
	node.Status = tree.StatusCompleted
	node.DocPath = p.gen.Layout().NodePath(node)
	node.Error = ""
	p.count(func(s *Stats) { s.Reused++ })
	p.observer.OnNodeStatus(node, "already documented")
}

func (p *Processor) fail(ctx context.Context, node *tree.Node, err error) {
	message := err.Error()
	node.Status = tree.StatusFailed
	node.Error = message
	p.store.MarkFailed(node, message)
	p.count(func(s *Stats) { s.Failed[node.Key()] = message })
	logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "node failed", "node_failed",
		logging.String(logging.FieldNode, node.Key()),
		logging.String("kind", node.Kind.String()),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the LLM endpoint and rerun; the node is retried on resume"),
	)
	p.observer.OnNodeStatus(node, "failed: "+message)
}

func (p *Processor) processFiles(ctx context.Context, files []*tree.Node) int {
	tasks := make([]queue.Task, 0, len(files))
	for _, node := range files {
		if p.store.IsCompleted(node) {
			p.reuse(node)
			continue
		}
		tasks = append(tasks, queue.NewTask(node))
	}
	if len(tasks) == 0 {
		return 0
	}

	p.queue.Reset()
	p.queue.SetCallbacks(p.observer.OnNodeStatus, p.completeFile)
	p.queue.SubmitBatch(tasks...)
	p.logger.Debug("file level queued",
		logging.Int("files", p.queue.Pending()),
		logging.Int("reused", len(files)-len(tasks)),
	)
	p.queue.ProcessAll(ctx)
	p.queue.Reset()

	failed := 0
	for _, task := range tasks {
		if task.Node.Status == tree.StatusFailed {
			failed++
		}
	}
	return failed
}

func (p *Processor) analyzeFile(ctx context.Context, task queue.Task) (string, error) {
	node := task.Node
	node.Status = tree.StatusInProgress
	data, err := os.ReadFile(node.Path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	ctx = services.WithNode(ctx, node.Key())
	return p.summarizer.AnalyzeFile(ctx, node.Key(), node.Language, strings.ToValidUTF8(string(data), "�"))
}

// completeFile persists one finished analysis: document first, then API
// flags, then completion, so a crash never records a file as complete
// without its interfaces.
func (p *Processor) completeFile(ctx context.Context, result queue.Result) error {
	node := result.Task.Node
	if !result.Success {
		p.fail(ctx, node, result.Err)
		return nil
	}
	docPath, err := p.gen.SaveFileDoc(node, result.Content)
	if err != nil {
		p.fail(ctx, node, err)
		return nil
	}
	p.recordAPI(ctx, node, result.Content)
	p.store.MarkCompleted(node, docPath)
	node.Status = tree.StatusCompleted
	node.DocPath = docPath
	node.Error = ""
	p.count(func(s *Stats) { s.FilesAnalyzed++ })
	p.observer.OnNodeStatus(node, fmt.Sprintf("done (%.1fs)", result.Elapsed.Seconds()))
	return nil
}

func (p *Processor) recordAPI(ctx context.Context, node *tree.Node, content string) {
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldNode, node.Key()))
	block := apidoc.ParseMarker(content)
	if block.Truncated {
		logging.WarnWithContext(logger, "API marker block not closed; parsed to end of document", "api_marker_truncated",
			logging.String(logging.FieldErrorHint, "raise max_tokens if analyses are being cut off"),
			logging.String(logging.FieldImpact, "endpoint list may be incomplete"),
		)
	}
	switch {
	case block.APIBearing():
		info := apidoc.EncodeInfo(block.Endpoints)
		node.HasAPI = true
		node.APIInfo = info
		if p.store.MarkHasAPI(node, info) {
			logger.Info("API-bearing file found", logging.Int("endpoints", len(block.Endpoints)))
		}
	case block.Outcome == apidoc.MarkerMalformed:
		logging.WarnWithContext(logger, "API marker block unparseable", "api_marker_malformed",
			logging.String(logging.FieldImpact, "file is treated as exposing no interfaces"),
		)
		fallthrough
	default:
		if block.Outcome == apidoc.MarkerAbsent {
			logger.Debug("analysis has no API marker block")
		}
		node.HasAPI = false
		node.APIInfo = ""
		p.store.ClearAPI(node)
	}
}

func (p *Processor) processDirectories(ctx context.Context, dirs []*tree.Node) int {
	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(max(p.gate.Capacity(), 1))
	for _, node := range dirs {
		g.Go(func() error {
			if !p.processDirectory(ctx, node) {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// processDirectory reports false only for a real failure; cancellation is
// left to the caller to detect.
func (p *Processor) processDirectory(ctx context.Context, node *tree.Node) bool {
	if p.store.IsCompleted(node) {
		p.reuse(node)
		return true
	}
	if ctx.Err() != nil {
		return true
	}
	ctx = services.WithNode(ctx, node.Key())
	node.Status = tree.StatusInProgress
	p.observer.OnNodeStatus(node, "reading child documents")

	childDocs, count := p.gen.ChildDocuments(node)
	if count == 0 {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "directory has no child documents; writing placeholder", "dir_no_children",
			logging.String(logging.FieldNode, node.Key()),
			logging.String(logging.FieldImpact, "directory summary is a placeholder"),
		)
		docPath, err := p.gen.SavePlaceholder(node)
		if err != nil {
			p.fail(ctx, node, err)
			return false
		}
		p.store.MarkCompleted(node, docPath)
		node.Status = tree.StatusSkipped
		node.DocPath = docPath
		p.count(func(s *Stats) { s.Skipped++ })
		p.observer.OnNodeStatus(node, "skipped")
		return true
	}

	summary, err := p.gated(ctx, func(ctx context.Context) (string, error) {
		p.observer.OnNodeStatus(node, "summarizing")
		return p.summarizer.SummarizeDirectory(ctx, node.Key(), childDocs)
	})
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return true
		}
		p.fail(ctx, node, err)
		return false
	}
	docPath, err := p.gen.SaveDirDoc(node, summary)
	if err != nil {
		p.fail(ctx, node, err)
		return false
	}
	p.store.MarkCompleted(node, docPath)
	node.Status = tree.StatusCompleted
	node.DocPath = docPath
	node.Error = ""
	p.count(func(s *Stats) { s.DirsSummarized++ })
	p.observer.OnNodeStatus(node, "done")
	return true
}

// gated runs one model call under the gate and rejects whitespace-only output.
func (p *Processor) gated(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	var text string
	err := p.gate.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = call(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", retry.ErrEmptyOutput
	}
	return text, nil
}
