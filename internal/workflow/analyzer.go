package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"codesummary/internal/apidoc"
	"codesummary/internal/checkpoint"
	"codesummary/internal/config"
	"codesummary/internal/docgen"
	"codesummary/internal/gate"
	"codesummary/internal/incremental"
	"codesummary/internal/logging"
	"codesummary/internal/scanner"
	"codesummary/internal/services"
	"codesummary/internal/textutil"
	"codesummary/internal/tree"
)

// ErrNoSourceFiles reports a source root with nothing to analyze.
var ErrNoSourceFiles = errors.New("no supported source files found")

// RunOptions are the per-invocation switches of an analysis.
type RunOptions struct {
	// DocsDir overrides the configured docs location.
	DocsDir string
	// NoResume discards the checkpoint and regenerates every document.
	NoResume bool
	// Incremental invalidates documents of files changed since the last run.
	Incremental bool
	// MaxConcurrent overrides llm.max_concurrent when positive.
	MaxConcurrent int
}

// Report summarizes one analysis run.
type Report struct {
	RunID       string
	SourceRoot  string
	DocsRoot    string
	Project     string
	Tree        tree.Stats
	Processor   Stats
	Final       *FinalOutcome
	Consistency *apidoc.Diff
	Changes     *incremental.Plan
	Resumed     int
	GatePeak    int
	ModelCalls  int
	Duration    time.Duration
}

// Analyzer runs complete analyses with one configuration.
type Analyzer struct {
	cfg        *config.Config
	summarizer Summarizer
	observer   Observer
	logger     *slog.Logger
}

// AnalyzerOption customizes an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithAnalyzerObserver installs a progress observer for every run.
func WithAnalyzerObserver(observer Observer) AnalyzerOption {
	return func(a *Analyzer) {
		if observer != nil {
			a.observer = observer
		}
	}
}

// NewAnalyzer returns an analyzer using summarizer for every model call.
func NewAnalyzer(cfg *config.Config, summarizer Summarizer, logger *slog.Logger, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		cfg:        cfg,
		summarizer: summarizer,
		observer:   NopObserver{},
		logger:     logging.NewComponentLogger(logger, "analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run analyzes sourceRoot. The returned report is non-nil whenever the docs
// root was resolved, including when err is non-nil.
func (a *Analyzer) Run(ctx context.Context, sourceRoot string, opts RunOptions) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, a.logger)
	defer func() { report.Duration = time.Since(start) }()

	abs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", abs)
	}
	docsRoot, err := a.cfg.DocsRoot(abs, opts.DocsDir)
	if err != nil {
		return nil, err
	}
	report.SourceRoot = abs
	report.DocsRoot = docsRoot

	a.observer.OnProgress("Scanning source tree", 0)
	root, err := scanner.New(scanner.OptionsFromConfig(a.cfg, DocsIgnorePatterns(abs, docsRoot)...), a.logger).Scan(abs)
	if err != nil {
		return report, err
	}
	report.Tree = root.CollectStats()
	report.Project = textutil.Title(root.Name)
	if report.Tree.Files == 0 {
		return report, fmt.Errorf("%w under %s", ErrNoSourceFiles, abs)
	}
	logger.Info("analysis started",
		logging.String(logging.FieldEventType, "analysis_start"),
		logging.String("source", abs),
		logging.String("docs", docsRoot),
		logging.Int("files", report.Tree.Files),
		logging.Int("dirs", report.Tree.Dirs),
		logging.Int("max_depth", report.Tree.MaxDepth),
	)

	lock, err := checkpoint.Lock(docsRoot)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.WarnWithContext(logger, "failed to release docs lock", "lock_release_failed",
				logging.String("path", lock.Path()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the lock file if no analysis is running"),
			)
		}
	}()

	layout := docgen.NewLayout(docsRoot, docgen.NamesFromConfig(a.cfg))
	gen, err := docgen.New(layout, report.Project, a.logger)
	if err != nil {
		return report, err
	}

	a.observer.OnProgress("Loading checkpoint", 5)
	store := checkpoint.Open(layout, abs, a.logger)
	store.SetRunID(report.RunID)

	fingerprints, detector := a.openFingerprints(ctx, docsRoot)
	if fingerprints != nil {
		defer fingerprints.Close()
	}

	if opts.NoResume {
		logger.Info("resume disabled; discarding checkpoint")
		store.Reset()
	} else {
		if opts.Incremental {
			if detector == nil {
				return report, errors.New("incremental mode requires the fingerprint store")
			}
			plan, err := detector.Detect(ctx, root)
			if err != nil {
				return report, fmt.Errorf("detect changes: %w", err)
			}
			report.Changes = &plan
			a.invalidate(ctx, gen, store, plan)
		}
		if _, err := store.ScanExistingDocs(); err != nil {
			logging.WarnWithContext(logger, "scanning existing documents failed", "docs_scan_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "only checkpointed nodes are reused"),
			)
		}
		if !store.Loaded() {
			a.restoreAPIFlags(gen, store, root)
		}
		if dropped := store.PruneAPI(root); len(dropped) > 0 {
			logging.WarnWithContext(logger, "recorded API files missing from source tree", "api_files_pruned",
				logging.Int("files", len(dropped)),
				logging.String("first", dropped[0]),
				logging.String(logging.FieldImpact, "their interfaces are removed from the API documents"),
			)
		}
		report.Resumed = store.UpdateNodeStatus(root)
		if report.Resumed > 0 {
			logger.Info("resuming from existing documents", logging.Int("nodes", report.Resumed))
		}
	}

	capacity := a.cfg.LLM.MaxConcurrent
	if opts.MaxConcurrent > 0 {
		capacity = opts.MaxConcurrent
	}
	g := gate.New(capacity)
	processor := NewProcessor(gen, store, g, a.summarizer, a.logger,
		WithObserver(a.observer),
		WithUsageThreshold(a.cfg.Output.APIUsageBatchThreshold),
		WithProgressSpan(10, 85),
	)

	a.observer.OnProgress("Analyzing", 10)
	err = processor.ProcessAll(ctx, root)
	report.Processor = processor.Stats()
	report.GatePeak = g.Peak()
	report.ModelCalls = g.Total()
	if err != nil {
		return report, err
	}

	store.ScanFinalDocs()
	report.Final, err = processor.GenerateFinalDocs(ctx, root, a.cfg.Output.GenerateAPIDoc, a.cfg.Output.GenerateAPIUsageDoc)
	report.GatePeak = g.Peak()
	report.ModelCalls = g.Total()
	if err != nil {
		return report, err
	}
	if report.Final.Has(docgen.FinalAPIDoc) && report.Final.Has(docgen.FinalAPIUsageDoc) {
		if diff, ok := processor.CheckConsistency(); ok {
			report.Consistency = &diff
		}
	}
	store.Save()

	if detector != nil {
		if err := detector.Record(ctx, root); err != nil {
			logging.WarnWithContext(logger, "recording fingerprints failed", "fingerprint_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next incremental run treats all files as new"),
			)
		}
	}

	a.observer.OnProgress("Analysis complete", 100)
	logger.Info("analysis finished",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.Int("files_analyzed", report.Processor.FilesAnalyzed),
		logging.Int("dirs_summarized", report.Processor.DirsSummarized),
		logging.Int("reused", report.Processor.Reused),
		logging.Int("gate_peak", report.GatePeak),
		logging.Int("model_calls", report.ModelCalls),
		logging.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// openFingerprints opens the change-detection store. Failure is not fatal
// unless incremental mode needs it, which Run checks.
func (a *Analyzer) openFingerprints(ctx context.Context, docsRoot string) (*incremental.Store, *incremental.Detector) {
	store, err := incremental.Open(ctx, docsRoot)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "fingerprint store unavailable", "fingerprint_store_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "incremental change detection is disabled for this run"),
		)
		return nil, nil
	}
	return store, incremental.NewDetector(store, a.logger)
}

// invalidate drops the documents and checkpoint entries made stale by plan.
func (a *Analyzer) invalidate(ctx context.Context, gen *docgen.Generator, store *checkpoint.Store, plan incremental.Plan) {
	logger := logging.WithContext(ctx, a.logger)
	if !plan.HasPrevious {
		logger.Info("no previous fingerprints; incremental run behaves like a resume")
		return
	}
	if plan.Empty() {
		logger.Info("no source changes since last run")
		return
	}
	layout := gen.Layout()
	remove := func(docPath string) {
		if err := gen.Remove(docPath); err != nil {
			logging.WarnWithContext(logger, "failed to remove stale document", "stale_doc_remove_failed",
				logging.String("path", docPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale document may be reused"),
			)
		}
	}
	for _, key := range plan.StaleFiles {
		remove(layout.FilePath(key))
	}
	for _, key := range plan.StaleDirs {
		remove(layout.DirPath(key))
	}
	// Final documents on disk would otherwise be adopted again by ScanFinalDocs.
	for _, doc := range docgen.FinalDocs() {
		remove(layout.FinalPath(doc))
	}
	store.Invalidate(plan.StaleFiles, plan.StaleDirs)
	logger.Info("stale documents invalidated",
		logging.Int("files", len(plan.StaleFiles)),
		logging.Int("dirs", len(plan.StaleDirs)),
	)
}

// restoreAPIFlags rebuilds API flags from the marker blocks of documents
// adopted from disk when no checkpoint was loaded.
func (a *Analyzer) restoreAPIFlags(gen *docgen.Generator, store *checkpoint.Store, root *tree.Node) {
	restored := 0
	for _, node := range root.AllFiles() {
		if !store.IsCompleted(node) {
			continue
		}
		doc, err := gen.ReadNode(node)
		if err != nil {
			continue
		}
		block := apidoc.ParseMarker(doc)
		if block.APIBearing() {
			store.MarkHasAPI(node, apidoc.EncodeInfo(block.Endpoints))
			restored++
		}
	}
	if restored > 0 {
		a.logger.Info("API flags restored from existing documents", logging.Int("files", restored))
	}
}

// DocsIgnorePatterns returns the scanner ignore patterns that keep a docs
// root placed inside the source tree out of the scan. It is nil when the docs
// root lies elsewhere.
func DocsIgnorePatterns(sourceRoot, docsRoot string) []string {
	rel, err := filepath.Rel(sourceRoot, docsRoot)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	rel = filepath.ToSlash(rel)
	return []string{rel, rel + "/**"}
}
