package workflow

import (
	"context"
	"errors"

	"codesummary/internal/tree"
)

var (
	// ErrLevelFailed reports a level that finished with failed nodes.
	ErrLevelFailed = errors.New("level finished with failed nodes")
	// ErrMissingAPIDetails reports an API document withheld because some
	// API-bearing files have no extracted details.
	ErrMissingAPIDetails = errors.New("missing extracted API details")
	// ErrNoAPIFiles reports that no analyzed file exposes interfaces.
	ErrNoAPIFiles = errors.New("no API-bearing files")
	// ErrNoChildDocuments reports a project document with nothing to summarize.
	ErrNoChildDocuments = errors.New("no child documents to summarize")
)

// Summarizer produces every model-written text of a run. Implementations
// handle their own retries; an error means the call is given up.
type Summarizer interface {
	AnalyzeFile(ctx context.Context, relPath, language, content string) (string, error)
	SummarizeDirectory(ctx context.Context, relPath, childDocs string) (string, error)
	GenerateReadme(ctx context.Context, project, structure, childDocs string) (string, error)
	GenerateReadingGuide(ctx context.Context, project, structure, childDocs string) (string, error)
	ExtractAPIDetails(ctx context.Context, fileKey, analysis string) (string, error)
	SummarizeAPIDetails(ctx context.Context, project, details string) (string, error)
	ExtractUsageDetails(ctx context.Context, fileKey, analysis string) (string, error)
	GenerateUsageDoc(ctx context.Context, project, reference, details string) (string, error)
	GenerateUsagePreamble(ctx context.Context, project, sample string) (string, error)
}

// Observer receives progress notifications. Calls are fire-and-forget and may
// arrive from several goroutines at once.
type Observer interface {
	OnProgress(message string, percent float64)
	OnNodeStatus(node *tree.Node, status string)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) OnProgress(string, float64) {}

func (NopObserver) OnNodeStatus(*tree.Node, string) {}
