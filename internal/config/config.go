package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// LLM contains model connection, concurrency and retry settings.
type LLM struct {
	Provider              string   `toml:"provider"`
	Model                 string   `toml:"model"`
	APIKey                string   `toml:"api_key"`
	BaseURL               string   `toml:"base_url"`
	APIFormat             string   `toml:"api_format"`
	MaxConcurrent         int      `toml:"max_concurrent"`
	TimeoutSeconds        int      `toml:"timeout_seconds"`
	MaxRetries            int      `toml:"max_retries"`
	RetryDelaySeconds     float64  `toml:"retry_delay_seconds"`
	MaxRetryDelaySeconds  float64  `toml:"max_retry_delay_seconds"`
	Temperature           *float64 `toml:"temperature"`
	MaxTokens             int      `toml:"max_tokens"`
	FinalDocMaxTokens     int      `toml:"final_doc_max_tokens"`
	CodeAnalysisMinTokens int      `toml:"code_analysis_min_tokens"`
	VerifySSL             bool     `toml:"verify_ssl"`
	SimulateBrowser       bool     `toml:"simulate_browser"`
	RequestsPerMinute     int      `toml:"requests_per_minute"`
	Referer               string   `toml:"referer"`
	Title                 string   `toml:"title"`
}

// Analysis controls which files the scanner admits into the tree.
type Analysis struct {
	FileExtensions []string `toml:"file_extensions"`
	IgnorePatterns []string `toml:"ignore_patterns"`
	MaxFileSize    int64    `toml:"max_file_size"`
	SkipVendored   bool     `toml:"skip_vendored"`
}

// Output controls where documents are written and which final documents exist.
type Output struct {
	DocsDir                string `toml:"docs_dir"`
	DocsSuffix             string `toml:"docs_suffix"`
	DocsInsideSource       bool   `toml:"docs_inside_source"`
	ReadmeName             string `toml:"readme_name"`
	ReadingGuideName       string `toml:"reading_guide_name"`
	APIDocName             string `toml:"api_doc_name"`
	APIUsageDocName        string `toml:"api_usage_doc_name"`
	DirSummaryName         string `toml:"dir_summary_name"`
	GenerateAPIDoc         bool   `toml:"generate_api_doc"`
	GenerateAPIUsageDoc    bool   `toml:"generate_api_usage_doc"`
	APIUsageBatchThreshold int    `toml:"api_usage_batch_threshold"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	Dir           string `toml:"dir"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for codesummary.
//
// Configuration sections:
//   - LLM: model endpoint, credentials, concurrency gate size and retry policy
//   - Analysis: extension allowlist, ignore globs and size limits for scanning
//   - Output: docs directory placement and final document names
//   - Logging: log format, level, optional file output and retention
type Config struct {
	LLM      LLM      `toml:"llm"`
	Analysis Analysis `toml:"analysis"`
	Output   Output   `toml:"output"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is loaded first; variables already present in the
// environment are left untouched.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DocsRoot resolves the documentation directory for a source root. An explicit
// override wins; otherwise the directory is named after the source directory
// plus the configured suffix, placed inside or beside the source root.
func (c *Config) DocsRoot(sourceRoot, override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return expandPath(override)
	}
	if strings.TrimSpace(c.Output.DocsDir) != "" {
		return expandPath(c.Output.DocsDir)
	}
	abs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return "", fmt.Errorf("resolve source root: %w", err)
	}
	name := filepath.Base(abs) + c.Output.DocsSuffix
	if c.Output.DocsInsideSource {
		return filepath.Join(abs, name), nil
	}
	return filepath.Join(filepath.Dir(abs), name), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
