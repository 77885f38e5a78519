package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are not required
// here so commands that never call the model (scan, deps, status) keep working;
// the analyze preflight checks them instead.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	switch c.LLM.APIFormat {
	case "auto", "openai", "anthropic":
	default:
		return fmt.Errorf("llm.api_format must be one of auto, openai, anthropic (got %q)", c.LLM.APIFormat)
	}
	if c.LLM.MaxConcurrent < 1 || c.LLM.MaxConcurrent > 50 {
		return errors.New("llm.max_concurrent must be between 1 and 50")
	}
	if c.LLM.TimeoutSeconds < 10 || c.LLM.TimeoutSeconds > 600 {
		return errors.New("llm.timeout_seconds must be between 10 and 600")
	}
	if c.LLM.MaxRetries > 10 {
		return errors.New("llm.max_retries must be at most 10")
	}
	if c.LLM.RetryDelaySeconds < 0.1 || c.LLM.RetryDelaySeconds > 30 {
		return errors.New("llm.retry_delay_seconds must be between 0.1 and 30")
	}
	if c.LLM.MaxRetryDelaySeconds < c.LLM.RetryDelaySeconds {
		return errors.New("llm.max_retry_delay_seconds must be >= llm.retry_delay_seconds")
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 0 || c.LLM.MaxTokens > 128000 {
		return errors.New("llm.max_tokens must be between 1 and 128000 when set")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if len(c.Analysis.FileExtensions) == 0 {
		return errors.New("analysis.file_extensions must include at least one extension")
	}
	if c.Analysis.MaxFileSize <= 0 {
		return errors.New("analysis.max_file_size must be positive")
	}
	return nil
}

func (c *Config) validateOutput() error {
	names := map[string]string{
		"output.readme_name":        c.Output.ReadmeName,
		"output.reading_guide_name": c.Output.ReadingGuideName,
		"output.api_doc_name":       c.Output.APIDocName,
		"output.api_usage_doc_name": c.Output.APIUsageDocName,
		"output.dir_summary_name":   c.Output.DirSummaryName,
	}
	seen := make(map[string]string, len(names))
	for key, value := range names {
		if strings.ContainsAny(value, `/\`) {
			return fmt.Errorf("%s must be a plain file name", key)
		}
		if !strings.HasSuffix(strings.ToLower(value), ".md") {
			return fmt.Errorf("%s must end in .md", key)
		}
		if other, dup := seen[value]; dup {
			return fmt.Errorf("%s and %s must differ", other, key)
		}
		seen[value] = key
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "critical":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
