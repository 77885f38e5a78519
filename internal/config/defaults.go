package config

const (
	defaultConfigPath   = "~/.config/codesummary/config.toml"
	projectConfigName   = "codesummary.toml"
	defaultProvider     = "openai"
	defaultModel        = "gpt-4"
	defaultAPIFormat    = "auto"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultLogRetention = 30

	defaultMaxConcurrent         = 5
	defaultTimeoutSeconds        = 120
	defaultMaxRetries            = 3
	defaultRetryDelaySeconds     = 1.0
	defaultMaxRetryDelaySeconds  = 60.0
	defaultFinalDocMaxTokens     = 16384
	defaultCodeAnalysisMinTokens = 8192
	defaultTitle                 = "codesummary"

	defaultMaxFileSize = 100 * 1024

	defaultDocsSuffix             = "_docs"
	defaultReadmeName             = "README.md"
	defaultReadingGuideName       = "READING_GUIDE.md"
	defaultAPIDocName             = "API_DOC.md"
	defaultAPIUsageDocName        = "API_USAGE.md"
	defaultDirSummaryName         = "_dir_summary.md"
	defaultAPIUsageBatchThreshold = 20
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:              defaultProvider,
			Model:                 defaultModel,
			APIFormat:             defaultAPIFormat,
			MaxConcurrent:         defaultMaxConcurrent,
			TimeoutSeconds:        defaultTimeoutSeconds,
			MaxRetries:            defaultMaxRetries,
			RetryDelaySeconds:     defaultRetryDelaySeconds,
			MaxRetryDelaySeconds:  defaultMaxRetryDelaySeconds,
			FinalDocMaxTokens:     defaultFinalDocMaxTokens,
			CodeAnalysisMinTokens: defaultCodeAnalysisMinTokens,
			VerifySSL:             true,
			Title:                 defaultTitle,
		},
		Analysis: Analysis{
			FileExtensions: DefaultFileExtensions(),
			IgnorePatterns: DefaultIgnorePatterns(),
			MaxFileSize:    defaultMaxFileSize,
		},
		Output: Output{
			DocsSuffix:             defaultDocsSuffix,
			DocsInsideSource:       true,
			ReadmeName:             defaultReadmeName,
			ReadingGuideName:       defaultReadingGuideName,
			APIDocName:             defaultAPIDocName,
			APIUsageDocName:        defaultAPIUsageDocName,
			DirSummaryName:         defaultDirSummaryName,
			GenerateAPIDoc:         true,
			GenerateAPIUsageDoc:    true,
			APIUsageBatchThreshold: defaultAPIUsageBatchThreshold,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}

// DefaultFileExtensions lists the source extensions analyzed when none are configured.
func DefaultFileExtensions() []string {
	return []string{
		".py", ".js", ".ts", ".jsx", ".tsx",
		".java", ".go", ".rs", ".cpp", ".c", ".h",
		".cs", ".rb", ".php", ".swift", ".kt",
		".scala", ".vue", ".svelte",
	}
}

// DefaultIgnorePatterns lists the globs skipped when none are configured.
func DefaultIgnorePatterns() []string {
	return []string{
		"node_modules/**",
		"__pycache__/**",
		".git/**",
		".venv/**",
		"venv/**",
		"*.pyc",
		"*.pyo",
		"*.log",
		"*.tmp",
		".DS_Store",
		"Thumbs.db",
		"*.egg-info/**",
		"dist/**",
		"build/**",
		".idea/**",
		".vscode/**",
	}
}
