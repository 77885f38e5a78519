package llm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"codesummary/internal/config"
	"codesummary/internal/retry"
	"codesummary/internal/services"
)

const (
	defaultHTTPTimeout      = 120 * time.Second
	defaultAnthropicTokens  = 8192
	anthropicVersion        = "2023-06-01"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
)

// API formats understood by the client.
const (
	FormatAuto      = "auto"
	FormatOpenAI    = "openai"
	FormatAnthropic = "anthropic"
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Format            string
	Temperature       *float64
	Timeout           time.Duration
	VerifySSL         bool
	SimulateBrowser   bool
	RequestsPerMinute int
	Referer           string
	Title             string
}

// ConfigFromSettings converts the resolved [llm] section into client settings.
func ConfigFromSettings(s config.LLMSettings) Config {
	return Config{
		APIKey:            s.APIKey,
		BaseURL:           s.BaseURL,
		Model:             s.Model,
		Format:            s.APIFormat,
		Temperature:       s.Temperature,
		Timeout:           s.Timeout,
		VerifySSL:         s.VerifySSL,
		SimulateBrowser:   s.SimulateBrowser,
		RequestsPerMinute: s.RequestsPerMinute,
		Referer:           s.Referer,
		Title:             s.Title,
	}
}

// ResolveFormat picks the wire format for model. An explicit format wins;
// "auto" selects Anthropic Messages for Claude models and OpenAI otherwise.
func ResolveFormat(format, model string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatOpenAI:
		return FormatOpenAI
	case FormatAnthropic:
		return FormatAnthropic
	}
	if strings.Contains(strings.ToLower(model), "claude") {
		return FormatAnthropic
	}
	return FormatOpenAI
}

// FixBaseURL drops trailing slashes and collapses doubled slashes in front of
// the well-known path segments.
func FixBaseURL(base string) string {
	fixed := strings.TrimRight(strings.TrimSpace(base), "/")
	if fixed == "" {
		return fixed
	}
	scheme := ""
	rest := fixed
	if idx := strings.Index(fixed, "://"); idx >= 0 {
		scheme, rest = fixed[:idx+3], fixed[idx+3:]
	}
	for strings.Contains(rest, "//") {
		rest = strings.ReplaceAll(rest, "//", "/")
	}
	return scheme + rest
}

// ChatCompletionsURL builds the OpenAI-compatible chat completions endpoint.
func ChatCompletionsURL(base string) string {
	base = FixBaseURL(base)
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	switch {
	case strings.HasSuffix(base, "/chat/completions"):
		return base
	case strings.HasSuffix(base, "/v1"):
		return base + "/chat/completions"
	default:
		return base + "/v1/chat/completions"
	}
}

// MessagesURL builds the Anthropic Messages endpoint.
func MessagesURL(base string) string {
	base = FixBaseURL(base)
	if base == "" {
		base = defaultAnthropicBaseURL
	}
	switch {
	case strings.HasSuffix(base, "/messages"):
		return base
	case strings.HasSuffix(base, "/v1"):
		return base + "/messages"
	default:
		return base + "/v1/messages"
	}
}

// browserHeaders mimic a desktop browser for relays that sit behind bot checks.
// Accept-Encoding is left to the transport so responses are still decompressed.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"DNT":             "1",
	"Sec-Fetch-Dest":  "empty",
	"Sec-Fetch-Mode":  "cors",
	"Sec-Fetch-Site":  "same-origin",
}

// Client talks to an OpenAI-compatible or Anthropic Messages endpoint. Each
// call is a single attempt; retries belong to the caller.
type Client struct {
	cfg        Config
	format     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}

	client := &Client{
		cfg:    cfg,
		format: ResolveFormat(cfg.Format, cfg.Model),
	}
	if client.format == FormatAnthropic {
		client.endpoint = MessagesURL(cfg.BaseURL)
	} else {
		client.endpoint = ChatCompletionsURL(cfg.BaseURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed relays
	}
	client.httpClient = &http.Client{Timeout: cfg.Timeout, Transport: transport}
	if cfg.RequestsPerMinute > 0 {
		client.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return client
}

// Format reports the resolved wire format.
func (c *Client) Format() string { return c.format }

// Endpoint reports the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Model reports the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Request is one single-turn completion.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// StatusError reports a non-2xx response. Client errors other than 408 and
// 429 unwrap to a permanent services marker so retry handlers give up early.
type StatusError struct {
	StatusCode int
	Body       string
	After      time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, e.Body)
}

// RetryAfter returns the server-provided wait, if any.
func (e *StatusError) RetryAfter() time.Duration { return e.After }

func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return services.ErrConfiguration
	case e.StatusCode == http.StatusNotFound:
		return services.ErrNotFound
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return services.ErrTransient
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return services.ErrValidation
	default:
		return services.ErrExternalService
	}
}

type emptyContentError struct {
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"llm complete: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

func (e *emptyContentError) Unwrap() error { return retry.ErrEmptyOutput }

// Complete sends req and returns the model's text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	}
	if c.cfg.Model == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "model required", nil)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm complete: rate limit wait: %w", err)
		}
	}
	if c.format == FormatAnthropic {
		return c.completeAnthropic(ctx, req.System, prompt, req.MaxTokens)
	}
	return c.completeOpenAI(ctx, req.System, prompt, req.MaxTokens)
}

// HealthCheck issues a tiny completion to verify the key, model and endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.Complete(ctx, Request{
		System:    "You are a connectivity probe.",
		Prompt:    "Reply with the single word OK.",
		MaxTokens: 16,
	})
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return errors.New("llm health: unexpected empty response")
	}
	return nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some relays return the streaming schema (delta) even when
		// stream=false, so tolerate it as a fallback.
		Delta chatCompletionMessage `json:"delta"`
		// Legacy "text" field (completion-style responses).
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *Client) completeOpenAI(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   maxTokens,
	}
	if system = strings.TrimSpace(system); system != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: system})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: prompt})

	body, err := c.post(ctx, payload, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	})
	if err != nil {
		return "", err
	}
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}

	var finishReason, refusal string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if refusal == "" {
			refusal = firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content, nil
		}
	}
	return "", &emptyContentError{FinishReason: finishReason, Refusal: refusal, Snippet: summarizePayloadSnippet(string(body))}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string    `json:"stop_reason"`
	Error      *apiError `json:"error"`
}

func (c *Client) completeAnthropic(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicTokens
	}
	payload := messagesRequest{
		Model:       c.cfg.Model,
		System:      strings.TrimSpace(system),
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
	}
	body, err := c.post(ctx, payload, func(req *http.Request) {
		req.Header.Set("x-api-key", c.cfg.APIKey)
		// Relays in front of Anthropic usually authenticate with a bearer token.
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	})
	if err != nil {
		return "", err
	}
	var message messagesResponse
	if err := json.Unmarshal(body, &message); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if message.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s: %s", message.Error.Type, strings.TrimSpace(message.Error.Message))
	}
	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if content := strings.TrimSpace(text.String()); content != "" {
		return content, nil
	}
	return "", &emptyContentError{FinishReason: message.StopReason, Snippet: summarizePayloadSnippet(string(body))}
}

func (c *Client) post(ctx context.Context, payload any, authorize func(*http.Request)) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("llm request: new request: %w", err)
	}
	if c.cfg.SimulateBrowser {
		for key, value := range browserHeaders {
			req.Header.Set(key, value)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	authorize(req)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm request: read body (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		after, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return body, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       summarizePayloadSnippet(string(body)),
			After:      after,
		}
	}
	return body, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
