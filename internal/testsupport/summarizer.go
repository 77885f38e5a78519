package testsupport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrInjected is returned by FakeSummarizer for scripted failures.
var ErrInjected = errors.New("injected summarizer failure")

// Summarizer call names recorded by FakeSummarizer.
const (
	CallAnalyzeFile        = "AnalyzeFile"
	CallSummarizeDirectory = "SummarizeDirectory"
	CallReadme             = "GenerateReadme"
	CallReadingGuide       = "GenerateReadingGuide"
	CallExtractAPI         = "ExtractAPIDetails"
	CallSummarizeAPI       = "SummarizeAPIDetails"
	CallExtractUsage       = "ExtractUsageDetails"
	CallUsageDoc           = "GenerateUsageDoc"
	CallUsagePreamble      = "GenerateUsagePreamble"
)

// Endpoint is a scripted interface reported by a file analysis.
type Endpoint struct {
	Method      string
	Path        string
	Description string
}

// FakeSummarizer is a deterministic, concurrency-safe summarizer. It emits
// well-formed marker blocks for scripted endpoints, records every call, and
// tracks how many calls overlap.
type FakeSummarizer struct {
	// Delay is slept inside each call so overlapping calls can be observed.
	Delay time.Duration
	// Hook runs at the start of each call with the call name and its key.
	Hook func(call, key string)

	mu        sync.Mutex
	endpoints map[string][]Endpoint
	failures  map[string]int
	calls     map[string]int
	order     []string
	inFlight  int
	peak      int
}

// NewFakeSummarizer returns an empty fake.
func NewFakeSummarizer() *FakeSummarizer {
	return &FakeSummarizer{
		endpoints: map[string][]Endpoint{},
		failures:  map[string]int{},
		calls:     map[string]int{},
	}
}

// SetEndpoints scripts the interfaces reported for file rel.
func (f *FakeSummarizer) SetEndpoints(rel string, endpoints ...Endpoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoints[rel] = endpoints
}

// Fail makes the next times calls of call for key fail; a negative count
// fails forever. Key is the relative path for file and directory calls and
// the project name for final documents.
func (f *FakeSummarizer) Fail(call, key string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[call+"|"+key] = times
}

// Calls returns how many times call ran.
func (f *FakeSummarizer) Calls(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

// Order returns "call key" entries in invocation order.
func (f *FakeSummarizer) Order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// Peak returns the highest number of overlapping calls.
func (f *FakeSummarizer) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// Reset clears call history but keeps scripted endpoints and failures.
func (f *FakeSummarizer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.calls)
	f.order = nil
	f.peak = 0
}

func (f *FakeSummarizer) enter(ctx context.Context, call, key string) error {
	if f.Hook != nil {
		f.Hook(call, key)
	}
	f.mu.Lock()
	f.calls[call]++
	f.order = append(f.order, call+" "+key)
	f.inFlight++
	f.peak = max(f.peak, f.inFlight)
	failKey := call + "|" + key
	remaining, scripted := f.failures[failKey]
	if scripted && remaining > 0 {
		f.failures[failKey] = remaining - 1
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if scripted && remaining != 0 {
		return fmt.Errorf("%s %s: %w", call, key, ErrInjected)
	}
	return nil
}

func (f *FakeSummarizer) endpointsFor(rel string) []Endpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Endpoint(nil), f.endpoints[rel]...)
}

// AnalyzeFile implements the summarizer.
func (f *FakeSummarizer) AnalyzeFile(ctx context.Context, relPath, language, content string) (string, error) {
	if err := f.enter(ctx, CallAnalyzeFile, relPath); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Overview\n\n`%s` is a %s file of %d bytes.\n\n", relPath, orDefault(language, "plain"), len(content))
	b.WriteString("<!-- API_START -->\n")
	eps := f.endpointsFor(relPath)
	if len(eps) == 0 {
		b.WriteString("contains API: no\n")
	} else {
		b.WriteString("contains API: yes\nEndpoints:\n")
		for _, ep := range eps {
			fmt.Fprintf(&b, "- [%s] %s - %s\n", ep.Method, ep.Path, ep.Description)
		}
	}
	b.WriteString("<!-- API_END -->")
	return b.String(), nil
}

// SummarizeDirectory implements the summarizer.
func (f *FakeSummarizer) SummarizeDirectory(ctx context.Context, relPath, childDocs string) (string, error) {
	if err := f.enter(ctx, CallSummarizeDirectory, relPath); err != nil {
		return "", err
	}
	sections := strings.Count(childDocs, "### ")
	return fmt.Sprintf("Directory `%s` groups %d documented children.", relPath, sections), nil
}

// GenerateReadme implements the summarizer.
func (f *FakeSummarizer) GenerateReadme(ctx context.Context, project, structure, childDocs string) (string, error) {
	if err := f.enter(ctx, CallReadme, project); err != nil {
		return "", err
	}
	return fmt.Sprintf("# %s\n\nGenerated overview.\n\n```\n%s\n```", project, structure), nil
}

// GenerateReadingGuide implements the summarizer.
func (f *FakeSummarizer) GenerateReadingGuide(ctx context.Context, project, structure, childDocs string) (string, error) {
	if err := f.enter(ctx, CallReadingGuide, project); err != nil {
		return "", err
	}
	return fmt.Sprintf("Start with the root summary of %s, then read each module.", project), nil
}

// ExtractAPIDetails implements the summarizer.
func (f *FakeSummarizer) ExtractAPIDetails(ctx context.Context, fileKey, analysis string) (string, error) {
	if err := f.enter(ctx, CallExtractAPI, fileKey); err != nil {
		return "", err
	}
	eps := f.endpointsFor(fileKey)
	if len(eps) == 0 {
		return "No interfaces defined", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "### Interfaces of %s\n\n| Method | Path | Description | Auth |\n|---|---|---|---|\n", fileKey)
	for _, ep := range eps {
		fmt.Fprintf(&b, "| %s | %s | %s | none |\n", ep.Method, ep.Path, ep.Description)
	}
	return b.String(), nil
}

// SummarizeAPIDetails implements the summarizer.
func (f *FakeSummarizer) SummarizeAPIDetails(ctx context.Context, project, details string) (string, error) {
	if err := f.enter(ctx, CallSummarizeAPI, project); err != nil {
		return "", err
	}
	return "Preface the model wrote.\n\n## By module\n\nEach module serves its own routes.", nil
}

// ExtractUsageDetails implements the summarizer.
func (f *FakeSummarizer) ExtractUsageDetails(ctx context.Context, fileKey, analysis string) (string, error) {
	if err := f.enter(ctx, CallExtractUsage, fileKey); err != nil {
		return "", err
	}
	eps := f.endpointsFor(fileKey)
	if len(eps) == 0 {
		return "No interfaces defined", nil
	}
	var b strings.Builder
	for _, ep := range eps {
		fmt.Fprintf(&b, "#### [%s] %s\n\nCall %s %s from %s.\n\n---\n\n", ep.Method, ep.Path, ep.Method, ep.Path, fileKey)
	}
	return b.String(), nil
}

// GenerateUsageDoc implements the summarizer. It documents every line of the
// reference list under a "#### METHOD /path" heading.
func (f *FakeSummarizer) GenerateUsageDoc(ctx context.Context, project, reference, details string) (string, error) {
	if err := f.enter(ctx, CallUsageDoc, project); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("## Quick start\n\nSend JSON.\n\n## Interface details\n\n")
	for _, line := range strings.Split(reference, "\n") {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if len(fields) < 2 {
			continue
		}
		fmt.Fprintf(&b, "#### %s %s\n\nExample request.\n\n", fields[0], fields[1])
	}
	return b.String(), nil
}

// GenerateUsagePreamble implements the summarizer.
func (f *FakeSummarizer) GenerateUsagePreamble(ctx context.Context, project, sample string) (string, error) {
	if err := f.enter(ctx, CallUsagePreamble, project); err != nil {
		return "", err
	}
	return "## Quick start\n\nAuthenticate with a bearer token.\n\n## Error handling\n\nErrors are JSON.", nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
