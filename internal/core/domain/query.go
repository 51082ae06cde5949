package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Query length limits.
const (
	MinQueryRunes = 2
	MaxQueryRunes = 500
	MaxQueryBytes = 2000
)

// ValidQuery is a query that passed validation.
type ValidQuery struct {
	// Raw is the query exactly as received.
	Raw string

	// Sanitized is the trimmed query with tags and control characters removed.
	// It is the form that may be stored or logged.
	Sanitized string

	// Normalized is the lowercase trimmed form used for cache keys and hashing.
	Normalized string
}

// NormalizeQuery returns the lowercase, trimmed form of q.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// HashQuery returns the hex SHA-256 of the normalized query.
func HashQuery(q string) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(q)))
	return hex.EncodeToString(sum[:])
}
