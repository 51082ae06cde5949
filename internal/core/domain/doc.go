// Package domain defines the core business entities for sercha-answers.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ValidQuery: A search query that passed validation
//   - CandidateDocument: A search hit supplied by the host
//   - CachedAnswer: A sanitized summary with cited sources
//   - Outcome: The tagged result of a summary attempt
//   - Settings: Typed per-call configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
