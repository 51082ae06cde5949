package driven

import "github.com/custodia-labs/sercha-answers/internal/core/domain"

// DocumentNormaliser cleans candidate documents before they are placed in a
// prompt. Host systems often send stored markup rather than plain text.
type DocumentNormaliser interface {
	// Normalise returns doc with its text fields reduced to plain text.
	Normalise(doc domain.CandidateDocument) domain.CandidateDocument
}
