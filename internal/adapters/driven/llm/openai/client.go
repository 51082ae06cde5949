// Package openai provides a chat completions client for the OpenAI API and
// compatible endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.ChatClient = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 60 * time.Second

	// MaxAttempts is the initial call plus two retries.
	MaxAttempts = 3

	maxResponseBytes = 4 << 20
	maxDetailLength  = 300
)

// backoff is the wait before each retry.
var backoff = []time.Duration{time.Second, 2 * time.Second}

// User message classes per failure code.
var userMessages = map[domain.ErrorCode]string{
	domain.CodeTimeout:           "service slow, try again",
	domain.CodeConnectionFailed:  "could not connect",
	domain.CodeProviderRateLimit: "rate limit exceeded",
	domain.CodeUnavailable:       "temporarily unavailable",
	domain.CodeUnauthorized:      "invalid credentials",
	domain.CodeBadRequest:        "request rejected",
	domain.CodeServiceError:      "service error",
	domain.CodeMalformedResponse: "could not understand response",
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config holds configuration for the client.
type Config struct {
	// APIKey is used when a request carries no key of its own.
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Timeout bounds each attempt when the request sets none (default: 60s).
	Timeout time.Duration

	// HTTPClient overrides the transport. Mostly useful in tests.
	HTTPClient *http.Client
}

// Client calls the chat completions endpoint with retry and failure
// classification.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	sleep   Sleeper
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model               string              `json:"model"`
	Messages            []chatCompletionMsg `json:"messages"`
	Temperature         *float64            `json:"temperature,omitempty"`
	MaxTokens           int                 `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                 `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *responseFormat     `json:"response_format,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewClient creates a client. The API key may be left empty when every
// request supplies one.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		sleep:   sleepContext,
	}
}

// WithSleeper replaces the backoff wait.
func (c *Client) WithSleeper(sleep Sleeper) *Client {
	if sleep != nil {
		c.sleep = sleep
	}
	return c
}

// Complete sends req, retrying retryable failures with 1s then 2s backoff.
// Failures are *domain.ProviderError annotated with the attempt count.
func (c *Client) Complete(ctx context.Context, req driven.ChatRequest) (*driven.ChatResult, error) {
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return nil, newProviderError(domain.CodeUnauthorized, 0, "api key missing")
	}

	baseURL := c.baseURL
	if req.BaseURL != "" {
		baseURL = strings.TrimRight(req.BaseURL, "/")
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := baseURL + "/chat/completions"
	var last *domain.ProviderError
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoff[attempt-2]
			logger.Debug("Retrying OpenAI request in %s (attempt %d/%d)", delay, attempt, MaxAttempts)
			if err := c.sleep(ctx, delay); err != nil {
				last.Detail = fmt.Sprintf("%s; retry abandoned: %v", last.Detail, err)
				return nil, last
			}
		}

		result, perr := c.attempt(ctx, endpoint, apiKey, body, timeout)
		if perr == nil {
			result.Attempts = attempt
			result.RetryCount = attempt - 1
			if attempt > 1 {
				logger.Info("OpenAI request succeeded after %d retries", attempt-1)
			}
			return result, nil
		}

		perr.Attempts = attempt
		last = perr
		logger.Warn("OpenAI attempt %d/%d failed: %v", attempt, MaxAttempts, perr)
		if !perr.Retryable {
			return nil, perr
		}
	}
	return nil, last
}

// attempt performs one HTTP round trip.
func (c *Client) attempt(
	ctx context.Context,
	endpoint string,
	apiKey string,
	body []byte,
	timeout time.Duration,
) (*driven.ChatResult, *domain.ProviderError) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newProviderError(domain.CodeServiceError, 0, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	logger.Debug("OpenAI request: %s", describeRequest(httpReq))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, errorDetail(data))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, newProviderError(domain.CodeMalformedResponse, resp.StatusCode, "decode response: "+err.Error())
	}
	if parsed.Error != nil {
		return nil, newProviderError(domain.CodeServiceError, resp.StatusCode, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, newProviderError(domain.CodeMalformedResponse, resp.StatusCode, "no response choices returned")
	}

	choice := parsed.Choices[0]
	return &driven.ChatResult{
		Content:      choice.Message.Content,
		Refusal:      choice.Message.Refusal,
		FinishReason: choice.FinishReason,
	}, nil
}

// buildPayload converts a port request to the wire format.
func buildPayload(req driven.ChatRequest) chatCompletionRequest {
	payload := chatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]chatCompletionMsg, len(req.Messages)),
		Temperature: req.Temperature,
	}
	for i, msg := range req.Messages {
		payload.Messages[i] = chatCompletionMsg{Role: msg.Role, Content: msg.Content}
	}
	if req.UseCompletionTokens {
		payload.MaxCompletionTokens = req.MaxTokens
	} else {
		payload.MaxTokens = req.MaxTokens
	}
	if req.JSONResponse {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return payload
}

// statusError classifies a non-2xx response.
func statusError(status int, detail string) *domain.ProviderError {
	switch {
	case status == http.StatusTooManyRequests:
		return newProviderError(domain.CodeProviderRateLimit, status, detail)
	case status >= 500:
		return newProviderError(domain.CodeUnavailable, status, detail)
	case status == http.StatusUnauthorized:
		return newProviderError(domain.CodeUnauthorized, status, detail)
	case status == http.StatusBadRequest:
		return newProviderError(domain.CodeBadRequest, status, detail)
	default:
		return newProviderError(domain.CodeServiceError, status, detail)
	}
}

// transportError classifies a failure below HTTP.
func transportError(err error) *domain.ProviderError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newProviderError(domain.CodeTimeout, 0, err.Error())
	}
	return newProviderError(domain.CodeConnectionFailed, 0, err.Error())
}

func newProviderError(code domain.ErrorCode, status int, detail string) *domain.ProviderError {
	return &domain.ProviderError{
		Code:       code,
		StatusCode: status,
		Retryable:  isRetryable(code),
		Message:    userMessages[code],
		Detail:     logger.Redact(detail),
	}
}

func isRetryable(code domain.ErrorCode) bool {
	switch code {
	case domain.CodeTimeout, domain.CodeConnectionFailed, domain.CodeProviderRateLimit,
		domain.CodeUnavailable, domain.CodeMalformedResponse:
		return true
	default:
		return false
	}
}

// errorDetail extracts error.message from a failure body, falling back to
// the truncated raw body.
func errorDetail(data []byte) string {
	var parsed chatCompletionResponse
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	detail := strings.TrimSpace(string(data))
	if len(detail) > maxDetailLength {
		detail = detail[:maxDetailLength] + "..."
	}
	return detail
}

// describeRequest renders a request for diagnostics with credentials redacted.
func describeRequest(req *http.Request) string {
	names := make([]string, 0, len(req.Header))
	for name := range req.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", req.Method, req.URL)
	for _, name := range names {
		value := strings.Join(req.Header.Values(name), ", ")
		if strings.EqualFold(name, "Authorization") {
			value = logger.RedactedBearer
		}
		fmt.Fprintf(&b, " %s=%q", name, value)
	}
	return b.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
