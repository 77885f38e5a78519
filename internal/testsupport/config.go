package testsupport

import (
	"path/filepath"
	"testing"

	"codesummary/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays are shrunk to a millisecond so failure paths run quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.LLM.Model = "test-model"
	cfgVal.LLM.RetryDelaySeconds = 0.001
	cfgVal.LLM.MaxRetryDelaySeconds = 0.001
	cfgVal.Logging.Dir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMaxConcurrent sets the LLM gate capacity.
func WithMaxConcurrent(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.MaxConcurrent = n
	}
}

// WithMaxRetries sets the retry budget per model call.
func WithMaxRetries(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.MaxRetries = n
	}
}

// WithDocsOutside places the docs directory beside the source root.
func WithDocsOutside() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.DocsInsideSource = false
	}
}

// WithDocsDir pins the docs directory to a subdirectory of the test's temp dir.
func WithDocsDir(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.DocsDir = filepath.Join(b.baseDir, name)
	}
}

// WithUsageThreshold sets the interface count above which the usage guide is
// assembled programmatically.
func WithUsageThreshold(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.APIUsageBatchThreshold = n
	}
}

// WithoutAPIDocs disables both API documents.
func WithoutAPIDocs() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.GenerateAPIDoc = false
		b.cfg.Output.GenerateAPIUsageDoc = false
	}
}
