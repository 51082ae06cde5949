package driving

import (
	"context"
	"net/http"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// AnswerRequest is one inbound AI answer request.
type AnswerRequest struct {
	// Query is the raw user query.
	Query string

	// Documents are the candidate documents, most recent first.
	Documents []domain.CandidateDocument

	// ClientIP is the resolved client address.
	ClientIP string

	// Headers are the inbound request headers used for bot detection.
	// Nil skips bot detection (trusted callers such as the CLI).
	Headers http.Header

	// ChallengeToken and ChallengeTS carry the optional HMAC challenge.
	ChallengeToken string
	ChallengeTS    int64
}

// AnswerService runs the full admission, cache and summary pipeline.
type AnswerService interface {
	// Answer validates, admits and summarises. It never returns an error:
	// every path produces a structured outcome.
	Answer(ctx context.Context, req AnswerRequest) domain.Outcome

	// RecordClientEvent logs a passive event (e.g. a client-side cache hit)
	// after light rate limiting.
	RecordClientEvent(ctx context.Context, clientIP, query string, resultsCount int) error

	// RecordFeedback accepts user feedback on an answer after light rate limiting.
	RecordFeedback(ctx context.Context, clientIP, query string, helpful bool) error

	// IssueChallenge returns a fresh challenge token and its timestamp.
	IssueChallenge() (token string, ts int64)
}

// AnswerResponse is the caller-facing rendering of an outcome shared by the
// HTTP and MCP surfaces. Internal diagnostics never appear in it.
type AnswerResponse struct {
	Success    bool                  `json:"success"`
	AnswerHTML string                `json:"answer_html,omitempty"`
	Results    []domain.SourceResult `json:"results"`
	CacheHit   bool                  `json:"cache_hit"`
	Error      domain.ErrorCode      `json:"error,omitempty"`
	Message    string                `json:"message,omitempty"`
}

// NewAnswerResponse renders outcome for callers, collapsing internal codes.
func NewAnswerResponse(outcome domain.Outcome) AnswerResponse {
	if outcome.OK() && outcome.Answer != nil {
		results := outcome.Answer.Results
		if results == nil {
			results = []domain.SourceResult{}
		}
		return AnswerResponse{
			Success:    true,
			AnswerHTML: outcome.Answer.AnswerHTML,
			Results:    results,
			CacheHit:   outcome.CacheHit,
		}
	}

	code := outcome.Code.Public()
	if code == "" {
		code = domain.CodeAPIError
	}
	return AnswerResponse{
		Results: []domain.SourceResult{},
		Error:   code,
		Message: code.PublicMessage(),
	}
}
