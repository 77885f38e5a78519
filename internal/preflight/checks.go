package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"codesummary/internal/config"
	"codesummary/internal/services"
	"codesummary/internal/services/llm"
)

// CheckLLMSettings verifies that a model and credentials are configured
// without contacting the endpoint.
func CheckLLMSettings(name string, s config.LLMSettings) Result {
	if s.Model == "" {
		return Result{Name: name, Detail: "model missing (set llm.model)"}
	}
	if s.APIKey == "" {
		return Result{Name: name, Detail: "API key missing (set llm.api_key or the provider key variable)"}
	}
	format := llm.ResolveFormat(s.APIFormat, s.Model)
	endpoint := llm.ChatCompletionsURL(s.BaseURL)
	if format == llm.FormatAnthropic {
		endpoint = llm.MessagesURL(s.BaseURL)
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s via %s (%s)", s.Model, format, endpoint)}
}

// CheckLLM verifies that the LLM endpoint is reachable and the key is valid.
// It uses a 30-second timeout and a single request.
func CheckLLM(ctx context.Context, name string, s config.LLMSettings) Result {
	if s.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.ConfigFromSettings(s))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDocsRoot accepts an existing writable directory or a missing one whose
// nearest existing ancestor is writable, since the run creates it.
func CheckDocsRoot(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		parent = next
	}
	check := CheckDirectoryAccess(name, parent)
	if !check.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s)", path, parent)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case errors.Is(err, services.ErrConfiguration):
			return fmt.Sprintf("auth failed (http %d, check the API key)", statusErr.StatusCode)
		case errors.Is(err, services.ErrNotFound):
			return fmt.Sprintf("endpoint or model not found (http %d)", statusErr.StatusCode)
		}
		return fmt.Sprintf("health check failed (http %d)", statusErr.StatusCode)
	}
	return err.Error()
}
