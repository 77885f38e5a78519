package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codesummary/internal/checkpoint"
	"codesummary/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDocsRoot_MissingUnderWritableParent(t *testing.T) {
	result := CheckDocsRoot("docs", filepath.Join(t.TempDir(), "a", "b_docs"))
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckDocsRoot_ParentIsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDocsRoot("docs", filepath.Join(f, "docs"))
	if result.Passed {
		t.Fatal("expected failure when the parent is a file")
	}
}

func TestCheckLLMSettings(t *testing.T) {
	result := CheckLLMSettings("llm", config.LLMSettings{Model: "gpt-4"})
	if result.Passed || !strings.Contains(result.Detail, "API key missing") {
		t.Fatalf("expected missing key failure, got %+v", result)
	}

	result = CheckLLMSettings("llm", config.LLMSettings{Model: "claude-sonnet", APIKey: "k", APIFormat: "auto"})
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if !strings.Contains(result.Detail, "anthropic") || !strings.Contains(result.Detail, "/v1/messages") {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func llmServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "OK"}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckLLM_OK(t *testing.T) {
	srv := llmServer(t, http.StatusOK)
	result := CheckLLM(context.Background(), "LLM", config.LLMSettings{
		Model: "gpt-test", APIKey: "good", BaseURL: srv.URL, APIFormat: "openai", VerifySSL: true,
	})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_BadKey(t *testing.T) {
	srv := llmServer(t, http.StatusUnauthorized)
	result := CheckLLM(context.Background(), "LLM", config.LLMSettings{
		Model: "gpt-test", APIKey: "bad", BaseURL: srv.URL, APIFormat: "openai", VerifySSL: true,
	})
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if !strings.Contains(result.Detail, "auth failed") {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM", config.LLMSettings{Model: "gpt-test"})
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, Options{})
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "key"

	results := RunAll(context.Background(), &cfg, Options{DocsRoot: t.TempDir()})
	// Docs directory plus LLM configuration; no ping.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if err := Err(results); err != nil {
		t.Fatalf("Err = %v", err)
	}
}

func TestRunAll_SkipsPingWithoutKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""

	results := RunAll(context.Background(), &cfg, Options{Ping: true})
	if len(results) != 1 || results[0].Passed {
		t.Fatalf("unexpected results: %+v", results)
	}
	err := Err(results)
	if !errors.Is(err, ErrNotReady) || !strings.Contains(err.Error(), "LLM configuration") {
		t.Fatalf("Err = %v", err)
	}
}

func TestRunAll_IncludesPingWhenRequested(t *testing.T) {
	srv := llmServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.LLM.APIKey = "key"
	cfg.LLM.BaseURL = srv.URL
	cfg.LLM.Model = "gpt-test"

	results := RunAll(context.Background(), &cfg, Options{Ping: true})
	found := false
	for _, r := range results {
		if r.Name == "LLM endpoint" {
			found = true
			if !r.Passed {
				t.Errorf("ping failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected LLM endpoint check in results")
	}
}

func TestProbeDocs(t *testing.T) {
	missing := ProbeDocs(filepath.Join(t.TempDir(), "none"))
	if missing.Exists || !strings.Contains(missing.Detail(), "not created yet") {
		t.Fatalf("missing probe = %+v", missing)
	}

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, checkpoint.FileName), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	probe := ProbeDocs(root)
	if !probe.Exists || !probe.Checkpoint || probe.Locked {
		t.Fatalf("probe = %+v", probe)
	}

	lock, err := checkpoint.Lock(root)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer lock.Unlock()
	if probe := ProbeDocs(root); !probe.Locked {
		t.Fatalf("expected locked probe, got %+v", probe)
	}
}
