package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeLLM()
	c.normalizeAnalysis()
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultProvider
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel
	}
	c.LLM.APIFormat = strings.ToLower(strings.TrimSpace(c.LLM.APIFormat))
	if c.LLM.APIFormat == "" {
		c.LLM.APIFormat = defaultAPIFormat
	}
	c.LLM.APIKey = resolveEnvReference(strings.TrimSpace(c.LLM.APIKey))
	c.LLM.BaseURL = resolveEnvReference(strings.TrimSpace(c.LLM.BaseURL))
	if c.LLM.APIKey == "" {
		for _, name := range providerKeyEnv(c.LLM.Provider) {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	if c.LLM.MaxConcurrent <= 0 {
		c.LLM.MaxConcurrent = defaultMaxConcurrent
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.LLM.MaxRetries < 0 {
		c.LLM.MaxRetries = 0
	}
	if c.LLM.RetryDelaySeconds <= 0 {
		c.LLM.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	if c.LLM.MaxRetryDelaySeconds <= 0 {
		c.LLM.MaxRetryDelaySeconds = defaultMaxRetryDelaySeconds
	}
	if c.LLM.FinalDocMaxTokens <= 0 {
		c.LLM.FinalDocMaxTokens = defaultFinalDocMaxTokens
	}
	if c.LLM.CodeAnalysisMinTokens <= 0 {
		c.LLM.CodeAnalysisMinTokens = defaultCodeAnalysisMinTokens
	}
	if c.LLM.RequestsPerMinute < 0 {
		c.LLM.RequestsPerMinute = 0
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultTitle
	}
}

// resolveEnvReference replaces a whole-value ${NAME} reference with the
// variable's value. Unset variables resolve to the empty string.
func resolveEnvReference(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") && len(value) > 3 {
		return strings.TrimSpace(os.Getenv(value[2 : len(value)-1]))
	}
	return value
}

func providerKeyEnv(provider string) []string {
	switch provider {
	case "anthropic":
		return []string{"ANTHROPIC_API_KEY", "CODESUMMARY_API_KEY"}
	case "openai":
		return []string{"OPENAI_API_KEY", "CODESUMMARY_API_KEY"}
	default:
		return []string{"CODESUMMARY_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"}
	}
}

func (c *Config) normalizeAnalysis() {
	if len(c.Analysis.FileExtensions) == 0 {
		c.Analysis.FileExtensions = DefaultFileExtensions()
	}
	exts := make([]string, 0, len(c.Analysis.FileExtensions))
	seen := make(map[string]struct{}, len(c.Analysis.FileExtensions))
	for _, ext := range c.Analysis.FileExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.Analysis.FileExtensions = exts

	patterns := make([]string, 0, len(c.Analysis.IgnorePatterns))
	for _, pattern := range c.Analysis.IgnorePatterns {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	c.Analysis.IgnorePatterns = patterns
	if c.Analysis.MaxFileSize <= 0 {
		c.Analysis.MaxFileSize = defaultMaxFileSize
	}
}

func (c *Config) normalizeOutput() error {
	var err error
	if c.Output.DocsDir, err = expandPath(strings.TrimSpace(c.Output.DocsDir)); err != nil {
		return fmt.Errorf("output.docs_dir: %w", err)
	}
	c.Output.DocsSuffix = strings.TrimSpace(c.Output.DocsSuffix)
	if c.Output.DocsSuffix == "" {
		c.Output.DocsSuffix = defaultDocsSuffix
	}
	fillName := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fillName(&c.Output.ReadmeName, defaultReadmeName)
	fillName(&c.Output.ReadingGuideName, defaultReadingGuideName)
	fillName(&c.Output.APIDocName, defaultAPIDocName)
	fillName(&c.Output.APIUsageDocName, defaultAPIUsageDocName)
	fillName(&c.Output.DirSummaryName, defaultDirSummaryName)
	if c.Output.APIUsageBatchThreshold <= 0 {
		c.Output.APIUsageBatchThreshold = defaultAPIUsageBatchThreshold
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
