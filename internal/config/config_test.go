package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"codesummary/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("CODESUMMARY_API_KEY", "")
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := isolate(t)
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	want := filepath.Join(home, ".config", "codesummary", "config.toml")
	if resolved != want {
		t.Fatalf("resolved path = %q, want %q", resolved, want)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected api key from OPENAI_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.MaxConcurrent != 5 || cfg.LLM.MaxRetries != 3 || cfg.LLM.TimeoutSeconds != 120 {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if !cfg.LLM.VerifySSL || cfg.LLM.SimulateBrowser {
		t.Fatalf("unexpected tls/browser defaults: verify=%v simulate=%v", cfg.LLM.VerifySSL, cfg.LLM.SimulateBrowser)
	}
	if cfg.Output.DirSummaryName != "_dir_summary.md" || cfg.Output.APIUsageBatchThreshold != 20 {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.Analysis.MaxFileSize != 100*1024 {
		t.Fatalf("unexpected max file size %d", cfg.Analysis.MaxFileSize)
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolate(t)
	t.Setenv("RELAY_KEY", "from-env")
	configPath := filepath.Join(t.TempDir(), "codesummary.toml")

	type payload struct {
		LLM struct {
			Model         string  `toml:"model"`
			APIKey        string  `toml:"api_key"`
			MaxConcurrent int     `toml:"max_concurrent"`
			Temperature   float64 `toml:"temperature"`
		} `toml:"llm"`
		Analysis struct {
			FileExtensions []string `toml:"file_extensions"`
		} `toml:"analysis"`
		Output struct {
			DocsSuffix string `toml:"docs_suffix"`
		} `toml:"output"`
	}
	custom := payload{}
	custom.LLM.Model = "claude-sonnet"
	custom.LLM.APIKey = "${RELAY_KEY}"
	custom.LLM.MaxConcurrent = 2
	custom.LLM.Temperature = 0.3
	custom.Analysis.FileExtensions = []string{"PY", ".go", ".py"}
	custom.Output.DocsSuffix = "-notes"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Fatalf("expected ${RELAY_KEY} expansion, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.MaxConcurrent != 2 {
		t.Fatalf("max_concurrent = %d", cfg.LLM.MaxConcurrent)
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 0.3 {
		t.Fatalf("temperature not loaded: %v", cfg.LLM.Temperature)
	}
	if got := strings.Join(cfg.Analysis.FileExtensions, ","); got != ".py,.go" {
		t.Fatalf("extensions not normalized: %q", got)
	}
	if cfg.Output.DocsSuffix != "-notes" {
		t.Fatalf("docs suffix = %q", cfg.Output.DocsSuffix)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(".env", []byte("CODESUMMARY_API_KEY=dotenv-key\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CODESUMMARY_API_KEY") })
	os.Unsetenv("CODESUMMARY_API_KEY")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "dotenv-key" {
		t.Fatalf("expected key from .env, got %q", cfg.LLM.APIKey)
	}
}

func TestDocsRoot(t *testing.T) {
	cfg := config.Default()
	src := filepath.Join(t.TempDir(), "app")

	inside, err := cfg.DocsRoot(src, "")
	if err != nil {
		t.Fatalf("DocsRoot: %v", err)
	}
	if inside != filepath.Join(src, "app_docs") {
		t.Fatalf("inside docs root = %q", inside)
	}

	cfg.Output.DocsInsideSource = false
	beside, err := cfg.DocsRoot(src, "")
	if err != nil {
		t.Fatalf("DocsRoot: %v", err)
	}
	if beside != filepath.Join(filepath.Dir(src), "app_docs") {
		t.Fatalf("beside docs root = %q", beside)
	}

	override := filepath.Join(t.TempDir(), "out")
	got, err := cfg.DocsRoot(src, override)
	if err != nil {
		t.Fatalf("DocsRoot: %v", err)
	}
	if got != override {
		t.Fatalf("override ignored: %q", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "${OPENAI_API_KEY}") {
		t.Fatalf("sample config missing api key placeholder: %s", contents)
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Output.APIUsageBatchThreshold != 20 {
		t.Fatalf("unexpected sample threshold %d", cfg.Output.APIUsageBatchThreshold)
	}
}

func TestLLMHelpers(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.RetryDelaySeconds = 1.5
	cfg.LLM.MaxTokens = 2000
	if cfg.RetryDelay() != 1500*time.Millisecond {
		t.Fatalf("retry delay = %s", cfg.RetryDelay())
	}
	if cfg.FileAnalysisMaxTokens() != 8192 {
		t.Fatalf("file analysis budget should use the minimum, got %d", cfg.FileAnalysisMaxTokens())
	}
	cfg.LLM.MaxTokens = 20000
	if cfg.FileAnalysisMaxTokens() != 20000 {
		t.Fatalf("file analysis budget should use max_tokens, got %d", cfg.FileAnalysisMaxTokens())
	}
	if got := cfg.GetLLM().Timeout; got != 120*time.Second {
		t.Fatalf("timeout = %s", got)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"api format", func(c *config.Config) { c.LLM.APIFormat = "grpc" }},
		{"concurrency", func(c *config.Config) { c.LLM.MaxConcurrent = 0 }},
		{"timeout", func(c *config.Config) { c.LLM.TimeoutSeconds = 5 }},
		{"retries", func(c *config.Config) { c.LLM.MaxRetries = 11 }},
		{"retry ceiling", func(c *config.Config) { c.LLM.MaxRetryDelaySeconds = 0.5 }},
		{"temperature", func(c *config.Config) { v := 3.0; c.LLM.Temperature = &v }},
		{"extensions", func(c *config.Config) { c.Analysis.FileExtensions = nil }},
		{"nested name", func(c *config.Config) { c.Output.ReadmeName = "docs/README.md" }},
		{"duplicate names", func(c *config.Config) { c.Output.APIDocName = c.Output.ReadmeName }},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
