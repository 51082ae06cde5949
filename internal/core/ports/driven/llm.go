package driven

import (
	"context"
	"time"
)

// ChatClient performs a single logical chat completion against the LLM provider,
// including any transport-level retries.
//
// Failures are returned as *domain.ProviderError so callers can tell
// retryable from fatal conditions.
type ChatClient interface {
	// Complete sends the request and returns the first choice.
	Complete(ctx context.Context, req ChatRequest) (*ChatResult, error)
}

// ChatRequest is the provider-agnostic completion request.
type ChatRequest struct {
	// Model is the provider model id.
	Model string

	// Messages is the conversation, system message first.
	Messages []ChatMessage

	// MaxTokens is the completion budget.
	MaxTokens int

	// UseCompletionTokens sends the budget as max_completion_tokens
	// instead of max_tokens.
	UseCompletionTokens bool

	// Temperature is sent when non-nil.
	Temperature *float64

	// JSONResponse requests strict JSON object output.
	JSONResponse bool

	// Timeout bounds each HTTP attempt. Zero uses the client default.
	Timeout time.Duration

	// APIKey overrides the client's key. Settings reloads take effect
	// without rebuilding the client.
	APIKey string

	// BaseURL overrides the client's API base when non-empty.
	BaseURL string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatResult is the first choice of a successful provider response.
type ChatResult struct {
	// Content is the message text, possibly empty.
	Content string

	// Refusal is set when the model declined to answer.
	Refusal string

	// FinishReason is the provider finish reason (stop, length, content_filter...).
	FinishReason string

	// Attempts is the number of HTTP attempts made.
	Attempts int

	// RetryCount is Attempts-1 when a retry succeeded.
	RetryCount int
}
