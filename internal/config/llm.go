package config

import (
	"strings"
	"time"
)

// LLMSettings is the resolved connection view of the [llm] section.
type LLMSettings struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	APIFormat         string
	Timeout           time.Duration
	Temperature       *float64
	MaxTokens         int
	VerifySSL         bool
	SimulateBrowser   bool
	RequestsPerMinute int
	Referer           string
	Title             string
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMSettings {
	return LLMSettings{
		Provider:          c.LLM.Provider,
		Model:             strings.TrimSpace(c.LLM.Model),
		APIKey:            strings.TrimSpace(c.LLM.APIKey),
		BaseURL:           strings.TrimSpace(c.LLM.BaseURL),
		APIFormat:         c.LLM.APIFormat,
		Timeout:           time.Duration(c.LLM.TimeoutSeconds) * time.Second,
		Temperature:       c.LLM.Temperature,
		MaxTokens:         c.LLM.MaxTokens,
		VerifySSL:         c.LLM.VerifySSL,
		SimulateBrowser:   c.LLM.SimulateBrowser,
		RequestsPerMinute: c.LLM.RequestsPerMinute,
		Referer:           c.LLM.Referer,
		Title:             c.LLM.Title,
	}
}

// RetryDelay returns the configured initial backoff.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.LLM.RetryDelaySeconds * float64(time.Second))
}

// MaxRetryDelay returns the configured backoff ceiling.
func (c *Config) MaxRetryDelay() time.Duration {
	return time.Duration(c.LLM.MaxRetryDelaySeconds * float64(time.Second))
}

// FileAnalysisMaxTokens is the completion budget for a single file analysis.
func (c *Config) FileAnalysisMaxTokens() int {
	if c.LLM.MaxTokens > c.LLM.CodeAnalysisMinTokens {
		return c.LLM.MaxTokens
	}
	return c.LLM.CodeAnalysisMinTokens
}
