package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCacheMiss indicates no usable cached answer exists for a key.
	ErrCacheMiss = errors.New("cache miss")

	// Admission Errors.

	// ErrNotConfigured indicates the summary feature is disabled or has no API key.
	ErrNotConfigured = errors.New("summary service not configured")

	// ErrInvalidQuery indicates the query failed structural or content validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrBotDetected indicates the request looks automated.
	ErrBotDetected = errors.New("bot detected")

	// ErrRateLimited indicates a per-IP or global rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoResults indicates there were no candidate documents to summarise.
	ErrNoResults = errors.New("no results")

	// ErrLLMUnavailable indicates the LLM provider call failed.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)

// RejectionReason classifies why a query was refused by the validator.
type RejectionReason string

// Rejection reasons.
const (
	// RejectInvalid covers empty, too short, too long and non-UTF-8 input.
	RejectInvalid RejectionReason = "invalid"

	// RejectSQLInjection is returned when the query matches an injection heuristic.
	RejectSQLInjection RejectionReason = "sql_injection"

	// RejectSpam is returned when the query matches a spam heuristic or the blocklist.
	RejectSpam RejectionReason = "spam"
)

// RejectionError describes a validator rejection. It wraps ErrInvalidQuery.
type RejectionError struct {
	Reason RejectionReason
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid query: %s", e.Reason)
	}
	return fmt.Sprintf("invalid query: %s (%s)", e.Reason, e.Detail)
}

// Unwrap lets errors.Is match ErrInvalidQuery.
func (e *RejectionError) Unwrap() error {
	return ErrInvalidQuery
}

// RejectionReasonOf extracts the rejection reason from err, if any.
func RejectionReasonOf(err error) (RejectionReason, bool) {
	var rejErr *RejectionError
	if errors.As(err, &rejErr) {
		return rejErr.Reason, true
	}
	return "", false
}
