package services

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Provider finish reasons that explain an empty completion.
const (
	finishContentFilter = "content_filter"
	finishLength        = "length"
)

// SummaryService turns a validated query and candidate documents into a
// cached answer, calling the LLM provider on a cache miss.
type SummaryService struct {
	client  driven.ChatClient
	cache   *ResponseCache
	global  *GlobalLimiter
	prompts *PromptBuilder
}

// NewSummaryService creates a summary service.
// A nil prompts builder uses the built-in prompt.
func NewSummaryService(
	client driven.ChatClient,
	cache *ResponseCache,
	global *GlobalLimiter,
	prompts *PromptBuilder,
) *SummaryService {
	if prompts == nil {
		prompts = NewPromptBuilder(nil)
	}
	return &SummaryService{
		client:  client,
		cache:   cache,
		global:  global,
		prompts: prompts,
	}
}

// Summarize returns the answer for query over docs. It never returns an
// error; every failure is a classified outcome.
func (s *SummaryService) Summarize(
	ctx context.Context,
	query domain.ValidQuery,
	docs []domain.CandidateDocument,
	settings domain.Settings,
) domain.Outcome {
	settings = settings.Normalize()

	if !settings.IsConfigured() || s.client == nil {
		return domain.FatalOutcome(domain.CodeNotConfigured, "summary disabled or api key missing")
	}
	if len(docs) == 0 {
		return domain.FatalOutcome(domain.CodeNoResults, "no candidate documents")
	}

	key := s.cache.Key(ctx, settings, query.Normalized)
	if cached, ok := s.cache.Lookup(ctx, key); ok {
		logger.Debug("Answer cache hit: %s", key)
		return domain.SuccessOutcome(applySourceSettings(cached, settings), true)
	}

	if s.global != nil && !s.global.Allow(ctx, settings.MaxCallsPerMinute) {
		logger.Warn("Global LLM call limit reached (%d/min)", settings.MaxCallsPerMinute)
		return domain.RetryableOutcome(domain.CodeRateLimited, "global per-minute limit reached")
	}

	if len(docs) > settings.MaxPosts {
		docs = docs[:settings.MaxPosts]
	}
	system := s.prompts.SystemPrompt(settings.SiteName)
	user := s.prompts.UserPrompt(query.Sanitized, docs, settings.MaxPosts, settings.ContentLength)
	req := BuildChatRequest(settings, system, user)
	req.Timeout = settings.RequestTimeout
	req.APIKey = settings.APIKey
	req.BaseURL = settings.BaseURL

	logger.Debug("Requesting answer: model=%s docs=%d reasoning=%v", req.Model, len(docs), req.UseCompletionTokens)
	result, err := s.client.Complete(ctx, req)
	if err != nil {
		return providerFailure(err)
	}

	outcome := classifyCompletion(result)
	if !outcome.OK() {
		logger.Warn("Answer rejected: %s (%s)", outcome.Code, outcome.Detail)
		return outcome
	}
	outcome.Answer.Results = vetResults(outcome.Answer.Results, docs)

	if err := s.cache.Store(ctx, key, outcome.Answer, settings.CacheTTL); err != nil {
		logger.Warn("Failed to cache answer: %v", err)
	}
	outcome.Answer = applySourceSettings(outcome.Answer, settings)
	return outcome
}

// classifyCompletion maps a provider result to an outcome with a
// sanitized answer.
func classifyCompletion(result *driven.ChatResult) domain.Outcome {
	var outcome domain.Outcome
	switch {
	case strings.TrimSpace(result.Refusal) != "":
		outcome = domain.FatalOutcome(domain.CodeRefusal, result.Refusal)
	case strings.TrimSpace(result.Content) == "":
		switch result.FinishReason {
		case finishContentFilter:
			outcome = domain.FatalOutcome(domain.CodeFiltered, "empty content, finish_reason=content_filter")
		case finishLength:
			outcome = domain.FatalOutcome(domain.CodeTruncated, "empty content, finish_reason=length")
		default:
			outcome = domain.FatalOutcome(domain.CodeEmptyResponse, "empty content, finish_reason="+result.FinishReason)
		}
	default:
		answer, err := ParseAnswerContent(result.Content)
		if err != nil {
			outcome = domain.FatalOutcome(domain.CodeUnparseable, err.Error())
			break
		}
		answer.AnswerHTML = SanitizeHTML(answer.AnswerHTML)
		outcome = domain.SuccessOutcome(answer, false)
	}

	outcome.Attempts = result.Attempts
	outcome.RetryCount = result.RetryCount
	return outcome
}

// providerFailure converts a ChatClient error into an outcome. The detailed
// error is logged and kept in Detail only.
func providerFailure(err error) domain.Outcome {
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		logger.Warn("LLM call failed: %v", err)
		return domain.FatalOutcome(domain.CodeServiceError, err.Error())
	}

	logger.Warn("LLM call failed: %v", pe)
	var outcome domain.Outcome
	if pe.Retryable {
		outcome = domain.RetryableOutcome(pe.Code, pe.Error())
	} else {
		outcome = domain.FatalOutcome(pe.Code, pe.Error())
	}
	outcome.Attempts = pe.Attempts
	if pe.Attempts > 0 {
		outcome.RetryCount = pe.Attempts - 1
	}
	return outcome
}

// vetResults keeps only results citing a supplied document. Markup is
// stripped from text fields and unsafe links fall back to the document's URL.
func vetResults(results []domain.SourceResult, docs []domain.CandidateDocument) []domain.SourceResult {
	byID := make(map[string]domain.CandidateDocument, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	vetted := make([]domain.SourceResult, 0, len(results))
	for _, r := range results {
		doc, ok := byID[r.ID]
		if !ok || r.ID == "" {
			logger.Debug("Dropping cited source with unknown id %q", r.ID)
			continue
		}
		r.Title = SanitizeQuery(r.Title)
		if r.Title == "" {
			r.Title = SanitizeQuery(doc.Title)
		}
		r.Excerpt = SanitizeQuery(r.Excerpt)
		r.Type = SanitizeQuery(r.Type)
		if !isSafeHref(r.URL) {
			r.URL = ""
			if isSafeHref(doc.URL) {
				r.URL = doc.URL
			}
		}
		vetted = append(vetted, r)
	}
	return vetted
}

// applySourceSettings hides or caps cited sources for display. The cached
// copy is left untouched.
func applySourceSettings(answer *domain.CachedAnswer, settings domain.Settings) *domain.CachedAnswer {
	out := &domain.CachedAnswer{AnswerHTML: answer.AnswerHTML, Results: []domain.SourceResult{}}
	if !settings.ShowSources {
		return out
	}
	results := answer.Results
	if len(results) > settings.MaxSourcesDisplay {
		results = results[:settings.MaxSourcesDisplay]
	}
	out.Results = append(out.Results, results...)
	return out
}
