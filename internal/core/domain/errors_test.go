package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrCacheMiss", ErrCacheMiss},
		{"ErrNotConfigured", ErrNotConfigured},
		{"ErrInvalidQuery", ErrInvalidQuery},
		{"ErrBotDetected", ErrBotDetected},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrNoResults", ErrNoResults},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Uniqueness tests that all errors are distinct
func TestErrors_Uniqueness(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrCacheMiss,
		ErrNotConfigured,
		ErrInvalidQuery,
		ErrBotDetected,
		ErrRateLimited,
		ErrNoResults,
		ErrLLMUnavailable,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j {
				assert.False(t, errors.Is(err1, err2),
					"Error %v should not match error %v", err1, err2)
			}
		}
	}
}

func TestRejectionError_WrapsInvalidQuery(t *testing.T) {
	err := &RejectionError{Reason: RejectSpam, Detail: "url"}

	assert.True(t, errors.Is(err, ErrInvalidQuery))
	assert.Equal(t, "invalid query: spam (url)", err.Error())
}

func TestRejectionError_NoDetail(t *testing.T) {
	err := &RejectionError{Reason: RejectSQLInjection}
	assert.Equal(t, "invalid query: sql_injection", err.Error())
}

func TestRejectionReasonOf(t *testing.T) {
	wrapped := fmt.Errorf("validate: %w", &RejectionError{Reason: RejectSQLInjection})

	reason, ok := RejectionReasonOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, RejectSQLInjection, reason)

	_, ok = RejectionReasonOf(ErrNotFound)
	assert.False(t, ok)
}
