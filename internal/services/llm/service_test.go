package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"codesummary/internal/config"
	"codesummary/internal/retry"
	"codesummary/internal/services"
)

type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	requests  []Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.requests)
	s.requests = append(s.requests, req)
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	if err != nil {
		return "", err
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "default response", nil
}

func instantHandler(maxRetries int) *retry.Handler {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = maxRetries
	return retry.New(policy, retry.WithSleeper(func(context.Context, time.Duration) error { return nil }))
}

func TestServiceAnalyzeFileUsesFileBudget(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"  file doc  "}}
	svc := NewService(completer, instantHandler(0), Budgets{FileAnalysis: 9000, FinalDoc: 16384}, nil)

	got, err := svc.AnalyzeFile(context.Background(), "pkg/a.go", "Go", "package a")
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	if got != "file doc" {
		t.Fatalf("result = %q", got)
	}
	req := completer.requests[0]
	if req.MaxTokens != 9000 {
		t.Fatalf("max tokens = %d", req.MaxTokens)
	}
	if req.System != SystemPrompt {
		t.Fatalf("system prompt not set")
	}
	for _, want := range []string{"File path: pkg/a.go", "package a", "<!-- API_START -->", "contains API: no"} {
		if !strings.Contains(req.Prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestServiceRetriesEmptyOutput(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"", "   ", "summary"}}
	svc := NewService(completer, instantHandler(3), Budgets{}, nil)

	got, err := svc.SummarizeDirectory(context.Background(), "pkg", "### a.go\n\nbody")
	if err != nil {
		t.Fatalf("SummarizeDirectory: %v", err)
	}
	if got != "summary" || len(completer.requests) != 3 {
		t.Fatalf("got %q after %d requests", got, len(completer.requests))
	}
}

func TestServiceStopsOnPermanentError(t *testing.T) {
	permanent := &StatusError{StatusCode: 401, Body: "bad key"}
	completer := &scriptedCompleter{errs: []error{permanent, nil}}
	svc := NewService(completer, instantHandler(3), Budgets{}, nil)

	_, err := svc.GenerateReadme(context.Background(), "demo", ".", "docs")
	if err == nil || !services.Permanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("permanent error retried %d times", len(completer.requests))
	}
}

func TestServiceExhaustionReportsAttempts(t *testing.T) {
	transient := &StatusError{StatusCode: 503, Body: "busy"}
	completer := &scriptedCompleter{errs: []error{transient, transient, transient}}
	svc := NewService(completer, instantHandler(2), Budgets{}, nil)

	_, err := svc.ExtractAPIDetails(context.Background(), "api/routes.py", "analysis")
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("attempts = %d", exhausted.Attempts)
	}
}

func TestServicePromptsCarryArguments(t *testing.T) {
	completer := &scriptedCompleter{}
	svc := NewService(completer, instantHandler(0), Budgets{FinalDoc: 100, Preamble: 50}, nil)
	ctx := context.Background()

	calls := []struct {
		run  func() (string, error)
		want []string
	}{
		{func() (string, error) { return svc.GenerateReadingGuide(ctx, "demo", "tree-text", "child-docs") }, []string{"demo", "tree-text", "child-docs"}},
		{func() (string, error) { return svc.SummarizeAPIDetails(ctx, "demo", "details-text") }, []string{"## By module", "details-text"}},
		{func() (string, error) { return svc.ExtractUsageDetails(ctx, "srv/app.py", "doc") }, []string{"#### [METHOD] /path", "srv/app.py"}},
		{func() (string, error) { return svc.GenerateUsageDoc(ctx, "demo", "- GET /a (x.py)", "usage") }, []string{"- GET /a (x.py)", "usage"}},
		{func() (string, error) { return svc.GenerateUsagePreamble(ctx, "demo", "sample-text") }, []string{"sample-text", "do not use interface headings"}},
	}
	for i, call := range calls {
		if _, err := call.run(); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		prompt := completer.requests[i].Prompt
		for _, want := range call.want {
			if !strings.Contains(prompt, want) {
				t.Fatalf("call %d prompt missing %q", i, want)
			}
		}
	}
	if completer.requests[4].MaxTokens != 50 || completer.requests[0].MaxTokens != 100 {
		t.Fatalf("unexpected budgets: %d, %d", completer.requests[4].MaxTokens, completer.requests[0].MaxTokens)
	}
}

func TestBudgetsFromConfig(t *testing.T) {
	cfg := config.Default()
	budgets := BudgetsFromConfig(&cfg)
	if budgets.FileAnalysis != 8192 || budgets.FinalDoc != 16384 || budgets.Directory != 0 || budgets.Preamble != preambleMaxTokens {
		t.Fatalf("default budgets = %+v", budgets)
	}

	cfg.LLM.MaxTokens = 32000
	budgets = BudgetsFromConfig(&cfg)
	if budgets.FileAnalysis != 32000 || budgets.FinalDoc != 32000 || budgets.Directory != 32000 {
		t.Fatalf("raised budgets = %+v", budgets)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.MaxRetries = 5
	cfg.LLM.RetryDelaySeconds = 0.5
	cfg.LLM.MaxRetryDelaySeconds = 10
	policy := PolicyFromConfig(&cfg)
	if policy.MaxRetries != 5 || policy.BaseDelay != 500*time.Millisecond || policy.MaxDelay != 10*time.Second {
		t.Fatalf("policy = %+v", policy)
	}
}
