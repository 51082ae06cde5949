package domain

import "fmt"

// OutcomeKind tags the variant of an Outcome.
type OutcomeKind int

// Outcome variants.
const (
	// OutcomeSuccess carries an answer.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeRetryable is a failure the caller may retry later.
	OutcomeRetryable

	// OutcomeFatal is a failure retrying will not fix.
	OutcomeFatal
)

// String returns the string representation.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return unknownDescription
	}
}

// ErrorCode is a stable machine-readable failure code.
type ErrorCode string

// Caller-facing codes.
const (
	CodeNotConfigured ErrorCode = "not_configured"
	CodeInvalidQuery  ErrorCode = "invalid_query"
	CodeBotDetected   ErrorCode = "bot_detected"
	CodeRateLimited   ErrorCode = "rate_limited"
	CodeNoResults     ErrorCode = "no_results"
	CodeAPIError      ErrorCode = "api_error"
)

// Internal codes. These are logged but collapsed to CodeAPIError for callers.
const (
	CodeRefusal       ErrorCode = "refusal"
	CodeFiltered      ErrorCode = "filtered"
	CodeTruncated     ErrorCode = "truncated"
	CodeUnparseable   ErrorCode = "unparseable"
	CodeEmptyResponse ErrorCode = "empty_response"

	CodeTimeout           ErrorCode = "timeout"
	CodeConnectionFailed  ErrorCode = "connection_failed"
	CodeProviderRateLimit ErrorCode = "provider_rate_limited"
	CodeUnavailable       ErrorCode = "unavailable"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeBadRequest        ErrorCode = "bad_request"
	CodeServiceError      ErrorCode = "service_error"
	CodeMalformedResponse ErrorCode = "malformed_response"
)

// Public collapses internal codes to the caller-facing taxonomy.
func (c ErrorCode) Public() ErrorCode {
	switch c {
	case CodeNotConfigured, CodeInvalidQuery, CodeBotDetected, CodeRateLimited, CodeNoResults:
		return c
	case "":
		return ""
	default:
		return CodeAPIError
	}
}

// PublicMessage returns the generic user-facing message for a public code.
func (c ErrorCode) PublicMessage() string {
	switch c.Public() {
	case CodeNotConfigured:
		return "AI search is not configured."
	case CodeInvalidQuery:
		return "Please enter a valid search query."
	case CodeBotDetected:
		return "Automated requests are not allowed."
	case CodeRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case CodeNoResults:
		return "No matching content was found for this search."
	case CodeAPIError:
		return "The AI service could not answer right now. Please try again."
	default:
		return ""
	}
}

// Outcome is the result of one summary attempt as seen by the caller.
type Outcome struct {
	// Kind is the variant tag.
	Kind OutcomeKind

	// Code is set for failures. It may be an internal code; use Code.Public() for callers.
	Code ErrorCode

	// Message is a generic user-facing message.
	Message string

	// Detail is internal diagnostics and must never be returned to callers.
	Detail string

	// Answer is set on success.
	Answer *CachedAnswer

	// CacheHit is true when the answer came from the response cache.
	CacheHit bool

	// Attempts is the number of provider calls made (0 on cache hit or short-circuit).
	Attempts int

	// RetryCount is the number of retries that preceded a success.
	RetryCount int
}

// OK returns true for successful outcomes.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// SuccessOutcome builds a success outcome.
func SuccessOutcome(answer *CachedAnswer, cacheHit bool) Outcome {
	return Outcome{Kind: OutcomeSuccess, Answer: answer, CacheHit: cacheHit}
}

// FatalOutcome builds a non-retryable failure with the code's public message.
func FatalOutcome(code ErrorCode, detail string) Outcome {
	return Outcome{Kind: OutcomeFatal, Code: code, Message: code.PublicMessage(), Detail: detail}
}

// RetryableOutcome builds a retryable failure with the code's public message.
func RetryableOutcome(code ErrorCode, detail string) Outcome {
	return Outcome{Kind: OutcomeRetryable, Code: code, Message: code.PublicMessage(), Detail: detail}
}

// ProviderError is returned by LLM clients. It wraps ErrLLMUnavailable.
type ProviderError struct {
	// Code classifies the failure.
	Code ErrorCode

	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// Retryable reports whether another attempt may succeed.
	Retryable bool

	// Message is the user message class from the classification table.
	Message string

	// Detail is the provider or transport error text.
	Detail string

	// Attempts is the number of attempts made before giving up.
	Attempts int
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm provider: %s (status %d, %d attempt(s)): %s",
			e.Code, e.StatusCode, e.Attempts, e.Detail)
	}
	return fmt.Sprintf("llm provider: %s (%d attempt(s)): %s", e.Code, e.Attempts, e.Detail)
}

// Unwrap lets errors.Is match ErrLLMUnavailable.
func (e *ProviderError) Unwrap() error {
	return ErrLLMUnavailable
}
