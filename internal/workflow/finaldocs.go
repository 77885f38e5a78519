package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"codesummary/internal/apidoc"
	"codesummary/internal/docgen"
	"codesummary/internal/logging"
	"codesummary/internal/services"
	"codesummary/internal/textutil"
	"codesummary/internal/tree"
)

const (
	usageSampleFiles = 3
	usageSampleChars = 6000
)

// GenerateReadme writes the project README from the root's child documents.
func (p *Processor) GenerateReadme(ctx context.Context, root *tree.Node) error {
	ctx = services.WithStage(ctx, string(docgen.FinalReadme))
	childDocs, count := p.gen.ChildDocuments(root)
	if count == 0 {
		return ErrNoChildDocuments
	}
	text, err := p.gated(ctx, func(ctx context.Context) (string, error) {
		return p.summarizer.GenerateReadme(ctx, p.gen.Project(), root.Structure(), childDocs)
	})
	if err != nil {
		return fmt.Errorf("generate readme: %w", err)
	}
	docPath, err := p.gen.SaveFinal(docgen.FinalReadme, text)
	if err != nil {
		return err
	}
	p.store.MarkFinalCompleted(docgen.FinalReadme)
	p.logger.Info("readme written", logging.String("path", docPath))
	return nil
}

// GenerateReadingGuide writes the reading-order guide.
func (p *Processor) GenerateReadingGuide(ctx context.Context, root *tree.Node) error {
	ctx = services.WithStage(ctx, string(docgen.FinalReadingGuide))
	childDocs, count := p.gen.ChildDocuments(root)
	if count == 0 {
		return ErrNoChildDocuments
	}
	structure := root.Structure()
	text, err := p.gated(ctx, func(ctx context.Context) (string, error) {
		return p.summarizer.GenerateReadingGuide(ctx, p.gen.Project(), structure, childDocs)
	})
	if err != nil {
		return fmt.Errorf("generate reading guide: %w", err)
	}
	docPath, err := p.gen.SaveReadingGuide(structure, text)
	if err != nil {
		return err
	}
	p.store.MarkFinalCompleted(docgen.FinalReadingGuide)
	p.logger.Info("reading guide written", logging.String("path", docPath))
	return nil
}

// apiFiles returns the recorded API-bearing files in tree pre-order.
func (p *Processor) apiFiles(root *tree.Node) []string {
	recorded := p.store.APIFiles()
	known := make(map[string]bool, len(recorded))
	for _, key := range recorded {
		known[key] = true
	}
	order := make([]string, 0, len(recorded))
	for _, node := range root.AllFiles() {
		if known[node.Key()] {
			order = append(order, node.Key())
		}
	}
	return order
}

type extractFunc func(ctx context.Context, fileKey, analysis string) (string, error)

// extractAll runs stage one for every file without a cached extraction.
// Failures are logged; the caller's integrity check decides whether the
// document can still be produced.
func (p *Processor) extractAll(ctx context.Context, stage string, files []string, cached map[string]string, extract extractFunc, save func(key, details string)) {
	var missing []string
	for _, key := range files {
		if strings.TrimSpace(cached[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		p.logger.Debug("stage one fully cached", logging.String(logging.FieldStage, stage), logging.Int("files", len(files)))
		return
	}
	p.logger.Info("extracting interface details",
		logging.String(logging.FieldStage, stage),
		logging.Int("files", len(missing)),
		logging.Int("cached", len(files)-len(missing)),
	)

	var g errgroup.Group
	g.SetLimit(max(p.gate.Capacity(), 1))
	for _, key := range missing {
		g.Go(func() error {
			ctx := services.WithNode(ctx, key)
			analysis, err := p.gen.Read(p.gen.Layout().FilePath(key))
			if err == nil {
				var details string
				details, err = p.gated(ctx, func(ctx context.Context) (string, error) {
					return extract(ctx, key, analysis)
				})
				if err == nil {
					save(key, details)
					return nil
				}
			}
			if ctx.Err() == nil {
				logging.WarnWithContext(logging.WithContext(ctx, p.logger), "interface extraction failed", "api_extract_failed",
					logging.String(logging.FieldNode, key),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "rerun to retry; completed extractions are cached"),
					logging.String(logging.FieldImpact, "document is withheld while details are missing"),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Processor) requireDetails(ctx context.Context, doc docgen.FinalDoc, files []string, details map[string]string) error {
	err := apidoc.CheckDetails(string(doc), files, details)
	if err == nil {
		return nil
	}
	var missing *apidoc.MissingDetailsError
	if errors.As(err, &missing) {
		logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "document withheld: extracted details missing", "api_details_missing",
			logging.String("document", string(doc)),
			logging.Int("missing", len(missing.Missing)),
			logging.Int("api_files", len(files)),
			logging.String("files", strings.Join(missing.Missing, ", ")),
			logging.String(logging.FieldErrorHint, "rerun to retry the failed extractions"),
			logging.String(logging.FieldImpact, "no partial document is written"),
		)
	}
	return fmt.Errorf("%w: %w", ErrMissingAPIDetails, err)
}

// GenerateAPIDoc writes the API reference: a programmatic overview table
// spliced ahead of the model's by-module narrative.
func (p *Processor) GenerateAPIDoc(ctx context.Context, root *tree.Node) error {
	ctx = services.WithStage(ctx, string(docgen.FinalAPIDoc))
	files := p.apiFiles(root)
	if len(files) == 0 {
		return ErrNoAPIFiles
	}
	p.extractAll(ctx, "api_extract", files, p.store.APIDetails(), p.summarizer.ExtractAPIDetails, p.store.SaveAPIDetails)
	if err := ctx.Err(); err != nil {
		return err
	}
	details := p.store.APIDetails()
	if err := p.requireDetails(ctx, docgen.FinalAPIDoc, files, details); err != nil {
		return err
	}

	entries := apidoc.Inventory(files, p.store.APIInfo())
	narrative, err := p.gated(ctx, func(ctx context.Context) (string, error) {
		return p.summarizer.SummarizeAPIDetails(ctx, p.gen.Project(), joinDetails(files, details))
	})
	if err != nil {
		return fmt.Errorf("summarize api details: %w", err)
	}
	doc, found := apidoc.Splice(p.gen.FinalHeader(docgen.FinalAPIDoc), apidoc.OverviewTable(entries), narrative)
	if !found {
		logging.WarnWithContext(p.logger, "narrative has no by-module heading; appended whole", "api_splice_heading_missing",
			logging.String(logging.FieldImpact, "document may repeat an overview written by the model"),
		)
	}
	docPath, err := p.gen.SaveFinal(docgen.FinalAPIDoc, doc)
	if err != nil {
		return err
	}
	p.store.MarkFinalCompleted(docgen.FinalAPIDoc)
	p.logger.Info("api reference written",
		logging.String("path", docPath),
		logging.Int("interfaces", len(entries)),
		logging.Int("files", len(files)),
	)
	return nil
}

// GenerateUsageDoc writes the API usage guide. Below the threshold one call
// writes the whole guide; at or above it the model writes only a preamble
// and the per-interface sections are assembled from the extraction cache.
func (p *Processor) GenerateUsageDoc(ctx context.Context, root *tree.Node) error {
	ctx = services.WithStage(ctx, string(docgen.FinalAPIUsageDoc))
	files := p.apiFiles(root)
	if len(files) == 0 {
		return ErrNoAPIFiles
	}
	p.extractAll(ctx, "usage_extract", files, p.store.UsageDetails(), p.summarizer.ExtractUsageDetails, p.store.SaveUsageDetails)
	if err := ctx.Err(); err != nil {
		return err
	}
	details := p.store.UsageDetails()
	if err := p.requireDetails(ctx, docgen.FinalAPIUsageDoc, files, details); err != nil {
		return err
	}

	entries := apidoc.Inventory(files, p.store.APIInfo())
	header := p.gen.FinalHeader(docgen.FinalAPIUsageDoc)
	var doc, strategy string
	if len(entries) < p.usageThreshold {
		strategy = "single_call"
		body, err := p.gated(ctx, func(ctx context.Context) (string, error) {
			return p.summarizer.GenerateUsageDoc(ctx, p.gen.Project(), apidoc.ReferenceList(entries), joinDetails(files, details))
		})
		if err != nil {
			return fmt.Errorf("generate usage doc: %w", err)
		}
		doc = strings.TrimRight(header, "\n") + "\n\n" + body
	} else {
		strategy = "assembled"
		sample := textutil.Truncate(joinDetails(files[:min(len(files), usageSampleFiles)], details), usageSampleChars)
		preamble, err := p.gated(ctx, func(ctx context.Context) (string, error) {
			return p.summarizer.GenerateUsagePreamble(ctx, p.gen.Project(), sample)
		})
		if err != nil {
			return fmt.Errorf("generate usage preamble: %w", err)
		}
		doc = apidoc.AssembleUsage(header, preamble, entries, details)
	}
	docPath, err := p.gen.SaveFinal(docgen.FinalAPIUsageDoc, doc)
	if err != nil {
		return err
	}
	p.store.MarkFinalCompleted(docgen.FinalAPIUsageDoc)
	p.logger.Info("api usage guide written",
		logging.String("path", docPath),
		logging.String("strategy", strategy),
		logging.Int("interfaces", len(entries)),
		logging.Int("threshold", p.usageThreshold),
	)
	return nil
}

// CheckConsistency reconciles the interfaces listed by the two API documents.
// ok is false when either document is unreadable.
func (p *Processor) CheckConsistency() (diff apidoc.Diff, ok bool) {
	layout := p.gen.Layout()
	inventory, err := p.gen.Read(layout.FinalPath(docgen.FinalAPIDoc))
	if err != nil {
		p.logger.Debug("consistency check skipped", logging.Error(err))
		return apidoc.Diff{}, false
	}
	usage, err := p.gen.Read(layout.FinalPath(docgen.FinalAPIUsageDoc))
	if err != nil {
		p.logger.Debug("consistency check skipped", logging.Error(err))
		return apidoc.Diff{}, false
	}
	diff = apidoc.Compare(inventory, usage)
	if diff.Consistent() {
		p.logger.Info("api documents consistent",
			logging.String(logging.FieldEventType, "api_consistency_ok"),
			logging.Int("interfaces", diff.InventoryCount),
		)
		return diff, true
	}
	logging.WarnWithContext(p.logger, "api documents disagree", "api_consistency_mismatch",
		logging.Int("inventory", diff.InventoryCount),
		logging.Int("usage", diff.UsageCount),
		logging.String("missing_from_usage", strings.Join(diff.MissingFromUsage, ", ")),
		logging.String("extra_in_usage", strings.Join(diff.ExtraInUsage, ", ")),
		logging.String(logging.FieldErrorHint, "a file listing one interface twice appears as missing from usage"),
		logging.String(logging.FieldImpact, "usage guide may omit or repeat interfaces"),
	)
	return diff, true
}

func joinDetails(files []string, details map[string]string) string {
	sections := make([]string, 0, len(files))
	for _, key := range files {
		sections = append(sections, "### "+key+"\n\n"+strings.TrimSpace(details[key]))
	}
	return strings.Join(sections, "\n\n---\n\n")
}

// finalDocTask is one project-level document and how to produce it.
type finalDocTask struct {
	doc      docgen.FinalDoc
	percent  float64
	label    string
	generate func(context.Context, *tree.Node) error
}

func (p *Processor) finalDocTasks(apiDoc, usageDoc bool) []finalDocTask {
	tasks := []finalDocTask{
		{docgen.FinalReadme, 85, "Generating README", p.GenerateReadme},
		{docgen.FinalReadingGuide, 90, "Generating reading guide", p.GenerateReadingGuide},
	}
	if apiDoc {
		tasks = append(tasks, finalDocTask{docgen.FinalAPIDoc, 93, "Generating API reference", p.GenerateAPIDoc})
	}
	if usageDoc {
		tasks = append(tasks, finalDocTask{docgen.FinalAPIUsageDoc, 97, "Generating API usage guide", p.GenerateUsageDoc})
	}
	return tasks
}

// FinalOutcome records what happened to each project-level document.
type FinalOutcome struct {
	Written []docgen.FinalDoc
	Reused  []docgen.FinalDoc
	Skipped map[docgen.FinalDoc]string
	Failed  map[docgen.FinalDoc]string
}

// GenerateFinalDocs produces every enabled project-level document not yet
// recorded complete. Failures are logged and reported in the outcome; they
// never fail the run, except cancellation.
func (p *Processor) GenerateFinalDocs(ctx context.Context, root *tree.Node, apiDoc, usageDoc bool) (*FinalOutcome, error) {
	outcome := &FinalOutcome{Skipped: map[docgen.FinalDoc]string{}, Failed: map[docgen.FinalDoc]string{}}
	for _, task := range p.finalDocTasks(apiDoc, usageDoc) {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		p.observer.OnProgress(task.label, task.percent)
		if p.store.FinalCompleted(task.doc) {
			outcome.Reused = append(outcome.Reused, task.doc)
			p.logger.Debug("final document already complete", logging.String("document", string(task.doc)))
			continue
		}
		err := task.generate(ctx, root)
		switch {
		case err == nil:
			outcome.Written = append(outcome.Written, task.doc)
		case ctx.Err() != nil:
			return outcome, ctx.Err()
		case errors.Is(err, ErrNoAPIFiles), errors.Is(err, ErrNoChildDocuments):
			outcome.Skipped[task.doc] = err.Error()
			p.logger.Info("final document skipped",
				logging.String("document", string(task.doc)),
				logging.String("reason", err.Error()),
			)
		default:
			outcome.Failed[task.doc] = err.Error()
			logging.ErrorWithContext(p.logger, "final document failed", "final_doc_failed",
				logging.String("document", string(task.doc)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun to retry; node documents are kept"),
				logging.String(logging.FieldImpact, "document not written this run"),
			)
		}
	}
	return outcome, nil
}

// Has reports whether doc was produced or reused.
func (o *FinalOutcome) Has(doc docgen.FinalDoc) bool {
	return slices.Contains(o.Written, doc) || slices.Contains(o.Reused, doc)
}
