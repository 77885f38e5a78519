package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codesummary/internal/config"
	"codesummary/internal/logging"
	"codesummary/internal/retry"
)

// Completer performs one completion attempt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Budgets are the completion token limits per request kind. Zero leaves the
// limit to the provider.
type Budgets struct {
	FileAnalysis int
	Directory    int
	FinalDoc     int
	Preamble     int
}

// BudgetsFromConfig derives token limits from the [llm] section.
func BudgetsFromConfig(cfg *config.Config) Budgets {
	final := max(cfg.LLM.MaxTokens, cfg.LLM.FinalDocMaxTokens)
	if final <= 0 {
		final = FinalDocMaxTokens
	}
	preamble := cfg.LLM.MaxTokens
	if preamble <= 0 {
		preamble = preambleMaxTokens
	}
	return Budgets{
		FileAnalysis: cfg.FileAnalysisMaxTokens(),
		Directory:    cfg.LLM.MaxTokens,
		FinalDoc:     final,
		Preamble:     preamble,
	}
}

// Service produces every model-written text of an analysis run. Each call
// runs through the retry handler, so transient failures and empty output are
// retried and exhaustion surfaces as *retry.ExhaustedError.
type Service struct {
	completer Completer
	retry     *retry.Handler
	budgets   Budgets
	logger    *slog.Logger
}

// NewService wires a completer to a retry handler.
func NewService(completer Completer, handler *retry.Handler, budgets Budgets, logger *slog.Logger) *Service {
	if handler == nil {
		handler = retry.New(retry.DefaultPolicy(), retry.WithLogger(logger))
	}
	return &Service{
		completer: completer,
		retry:     handler,
		budgets:   budgets,
		logger:    logging.NewComponentLogger(logger, "llm"),
	}
}

// NewServiceFromConfig builds the HTTP client, retry policy and budgets from cfg.
func NewServiceFromConfig(cfg *config.Config, logger *slog.Logger) *Service {
	client := NewClient(ConfigFromSettings(cfg.GetLLM()))
	handler := retry.New(PolicyFromConfig(cfg), retry.WithLogger(logger))
	return NewService(client, handler, BudgetsFromConfig(cfg), logger)
}

// PolicyFromConfig maps the retry settings of the [llm] section.
func PolicyFromConfig(cfg *config.Config) retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.LLM.MaxRetries
	policy.BaseDelay = cfg.RetryDelay()
	policy.MaxDelay = cfg.MaxRetryDelay()
	return policy
}

// Retry exposes the handler so callers can report its policy.
func (s *Service) Retry() *retry.Handler { return s.retry }

func (s *Service) call(ctx context.Context, op, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	text, attempts, err := retry.Text(ctx, s.retry, op, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, Request{System: SystemPrompt, Prompt: prompt, MaxTokens: maxTokens})
	})
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, s.logger).Debug("completion finished",
		logging.String("op", op),
		logging.Int("attempts", attempts),
		logging.Int("chars", len(text)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return strings.TrimSpace(text), nil
}

// AnalyzeFile writes the analysis of one source file, ending in the API marker block.
func (s *Service) AnalyzeFile(ctx context.Context, relPath, language, content string) (string, error) {
	if language == "" {
		language = "text"
	}
	prompt := fmt.Sprintf(fileAnalysisPrompt, relPath, strings.ToLower(language), content)
	return s.call(ctx, "analyze file "+relPath, prompt, s.budgets.FileAnalysis)
}

// SummarizeDirectory writes a directory summary from its children's documents.
func (s *Service) SummarizeDirectory(ctx context.Context, relPath, childDocs string) (string, error) {
	prompt := fmt.Sprintf(directorySummaryPrompt, relPath, childDocs)
	return s.call(ctx, "summarize directory "+relPath, prompt, s.budgets.Directory)
}

// GenerateReadme writes the project README.
func (s *Service) GenerateReadme(ctx context.Context, project, structure, childDocs string) (string, error) {
	prompt := fmt.Sprintf(readmePrompt, project, structure, childDocs)
	return s.call(ctx, "generate readme", prompt, s.budgets.FinalDoc)
}

// GenerateReadingGuide writes the reading-order guide.
func (s *Service) GenerateReadingGuide(ctx context.Context, project, structure, childDocs string) (string, error) {
	prompt := fmt.Sprintf(readingGuidePrompt, project, structure, childDocs)
	return s.call(ctx, "generate reading guide", prompt, s.budgets.FinalDoc)
}

// ExtractAPIDetails runs stage one of the API reference for a single file.
func (s *Service) ExtractAPIDetails(ctx context.Context, fileKey, analysis string) (string, error) {
	prompt := fmt.Sprintf(apiExtractPrompt, fileKey, analysis)
	return s.call(ctx, "extract api details "+fileKey, prompt, s.budgets.FinalDoc)
}

// SummarizeAPIDetails runs stage two: the by-module narrative.
func (s *Service) SummarizeAPIDetails(ctx context.Context, project, details string) (string, error) {
	prompt := fmt.Sprintf(apiSummaryPrompt, project, details)
	return s.call(ctx, "summarize api details", prompt, s.budgets.FinalDoc)
}

// ExtractUsageDetails extracts per-interface usage sections for one file.
func (s *Service) ExtractUsageDetails(ctx context.Context, fileKey, analysis string) (string, error) {
	prompt := fmt.Sprintf(usageExtractPrompt, fileKey, analysis)
	return s.call(ctx, "extract usage details "+fileKey, prompt, s.budgets.FinalDoc)
}

// GenerateUsageDoc writes the whole usage guide for small interface sets.
func (s *Service) GenerateUsageDoc(ctx context.Context, project, reference, details string) (string, error) {
	prompt := fmt.Sprintf(usageDocPrompt, project, reference, details)
	return s.call(ctx, "generate usage doc", prompt, s.budgets.FinalDoc)
}

// GenerateUsagePreamble writes the general part of a programmatically assembled usage guide.
func (s *Service) GenerateUsagePreamble(ctx context.Context, project, sample string) (string, error) {
	prompt := fmt.Sprintf(usagePreamblePrompt, project, sample)
	return s.call(ctx, "generate usage preamble", prompt, s.budgets.Preamble)
}
