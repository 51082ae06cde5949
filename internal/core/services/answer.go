package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// SettingsSource supplies the settings snapshot for one request.
type SettingsSource interface {
	Get() (domain.Settings, error)
}

// AnswerService runs validation, admission, caching and summarisation for
// one request and records the resulting event.
type AnswerService struct {
	settings   SettingsSource
	summary    *SummaryService
	primary    *SlidingWindowLimiter
	light      *SlidingWindowLimiter
	challenger *Challenger
	events     driven.EventLog
	normaliser driven.DocumentNormaliser
	now        func() time.Time
}

// NewAnswerService creates an answer service. The rate limiters share kv
// with the response cache. events may be nil.
func NewAnswerService(
	settings SettingsSource,
	summary *SummaryService,
	kv driven.KVStore,
	challenger *Challenger,
	events driven.EventLog,
) *AnswerService {
	return &AnswerService{
		settings:   settings,
		summary:    summary,
		primary:    NewSlidingWindowLimiter(kv, PrimaryLimiterPrefix),
		light:      NewSlidingWindowLimiter(kv, LightLimiterPrefix),
		challenger: challenger,
		events:     events,
		now:        time.Now,
	}
}

// WithNormaliser cleans candidate documents before prompting.
func (s *AnswerService) WithNormaliser(n driven.DocumentNormaliser) *AnswerService {
	s.normaliser = n
	return s
}

// WithClock replaces the time source of the service and its limiters.
func (s *AnswerService) WithClock(now func() time.Time, sleep func(time.Duration)) *AnswerService {
	s.now = now
	s.primary.WithClock(now, sleep)
	s.light.WithClock(now, sleep)
	if s.challenger != nil {
		s.challenger.WithClock(now)
	}
	return s
}

// Answer validates, admits and summarises one request.
func (s *AnswerService) Answer(ctx context.Context, req driving.AnswerRequest) domain.Outcome {
	start := s.now()

	settings, err := s.settings.Get()
	if err != nil {
		logger.Warn("Failed to load settings: %v", err)
		return domain.FatalOutcome(domain.CodeNotConfigured, err.Error())
	}
	settings = settings.Normalize()

	if !settings.IsConfigured() {
		outcome := domain.FatalOutcome(domain.CodeNotConfigured, "summary disabled or api key missing")
		s.record(ctx, settings, domain.SearchEvent{
			Query:        SanitizeQuery(req.Query),
			ResultsCount: len(req.Documents),
			Error:        string(outcome.Code),
		})
		return outcome
	}

	query, err := NewQueryValidator(settings.BlocklistTerms()).Validate(req.Query)
	if err != nil {
		outcome := domain.FatalOutcome(domain.CodeInvalidQuery, err.Error())
		s.recordRejection(ctx, settings, req, outcome, start)
		return outcome
	}

	if outcome, ok := s.admit(ctx, req, settings); !ok {
		s.recordRejection(ctx, settings, req, outcome, start)
		return outcome
	}

	docs := prepareDocuments(req.Documents, settings.MaxPosts, s.normaliser)
	outcome := s.summary.Summarize(ctx, query, docs, settings)

	event := domain.SearchEvent{
		Query:          query.Sanitized,
		QueryHash:      domain.HashQuery(query.Normalized),
		ResultsCount:   len(req.Documents),
		AISuccess:      outcome.OK(),
		Error:          string(outcome.Code),
		ResponseTimeMS: domain.IntPtr(int(s.now().Sub(start).Milliseconds())),
	}
	switch {
	case outcome.CacheHit:
		event.CacheHit = domain.IntPtr(domain.CacheHitServer)
	case outcome.Code != domain.CodeNoResults:
		event.CacheHit = domain.IntPtr(domain.CacheHitMiss)
	}
	s.record(ctx, settings, event)

	return outcome
}

// admit applies bot detection, the challenge and the per-IP limiter.
func (s *AnswerService) admit(ctx context.Context, req driving.AnswerRequest, settings domain.Settings) (domain.Outcome, bool) {
	if req.Headers != nil && IsLikelyBot(req.Headers) {
		logger.Debug("Rejected likely bot from %s", req.ClientIP)
		return domain.FatalOutcome(domain.CodeBotDetected, "bot heuristics matched"), false
	}

	if settings.RequireChallenge || req.ChallengeToken != "" {
		if s.challenger == nil || !s.challenger.Verify(req.ChallengeToken, req.ChallengeTS) {
			logger.Debug("Rejected invalid challenge from %s", req.ClientIP)
			return domain.FatalOutcome(domain.CodeBotDetected, "challenge verification failed"), false
		}
	}

	if s.primary.Limited(ctx, req.ClientIP, settings.RateLimitPerMinute) {
		logger.Debug("Rate limited %s", req.ClientIP)
		return domain.FatalOutcome(domain.CodeRateLimited, "per-ip limit reached"), false
	}
	return domain.Outcome{}, true
}

// RecordClientEvent logs a search answered from the visitor's own cache.
func (s *AnswerService) RecordClientEvent(ctx context.Context, clientIP, query string, resultsCount int) error {
	settings, valid, err := s.admitLight(ctx, clientIP, query)
	if err != nil {
		return err
	}
	s.record(ctx, settings, domain.SearchEvent{
		Query:        valid.Sanitized,
		QueryHash:    domain.HashQuery(valid.Normalized),
		ResultsCount: resultsCount,
		AISuccess:    true,
		CacheHit:     domain.IntPtr(domain.CacheHitClient),
	})
	return nil
}

// RecordFeedback stores a visitor's verdict on an answer.
func (s *AnswerService) RecordFeedback(ctx context.Context, clientIP, query string, helpful bool) error {
	settings, valid, err := s.admitLight(ctx, clientIP, query)
	if err != nil {
		return err
	}
	s.record(ctx, settings, domain.SearchEvent{
		Query:     valid.Sanitized,
		QueryHash: domain.HashQuery(valid.Normalized),
		AISuccess: true,
		Helpful:   domain.BoolPtr(helpful),
	})
	return nil
}

// IssueChallenge returns a fresh challenge token.
func (s *AnswerService) IssueChallenge() (string, int64) {
	if s.challenger == nil {
		return "", 0
	}
	return s.challenger.Issue()
}

// admitLight validates query and applies the light limiter used by the
// low-value endpoints.
func (s *AnswerService) admitLight(ctx context.Context, clientIP, query string) (domain.Settings, domain.ValidQuery, error) {
	settings, err := s.settings.Get()
	if err != nil {
		return domain.Settings{}, domain.ValidQuery{}, fmt.Errorf("load settings: %w", err)
	}
	settings = settings.Normalize()

	if s.light.Limited(ctx, clientIP, settings.LightRateLimitPerMinute) {
		return settings, domain.ValidQuery{}, domain.ErrRateLimited
	}
	valid, err := NewQueryValidator(settings.BlocklistTerms()).Validate(query)
	if err != nil {
		return settings, domain.ValidQuery{}, err
	}
	return settings, valid, nil
}

// recordRejection logs a request turned away before summarisation.
// CacheHit stays nil because no cache was consulted.
func (s *AnswerService) recordRejection(
	ctx context.Context,
	settings domain.Settings,
	req driving.AnswerRequest,
	outcome domain.Outcome,
	start time.Time,
) {
	s.record(ctx, settings, domain.SearchEvent{
		Query:          SanitizeQuery(req.Query),
		ResultsCount:   len(req.Documents),
		Error:          string(outcome.Code),
		ResponseTimeMS: domain.IntPtr(int(s.now().Sub(start).Milliseconds())),
	})
}

// record stores event without affecting the response.
func (s *AnswerService) record(ctx context.Context, settings domain.Settings, event domain.SearchEvent) {
	event.ID = uuid.New().String()
	event.CreatedAt = s.now()
	if event.QueryHash == "" && event.Query != "" {
		event.QueryHash = domain.HashQuery(event.Query)
	}
	if settings.AnonymizeQueries {
		event.Anonymize()
	}

	if s.events == nil {
		logger.Debug("Search event: success=%v error=%q results=%d", event.AISuccess, event.Error, event.ResultsCount)
		return
	}
	if err := s.events.Record(ctx, event); err != nil {
		logger.Warn("Failed to record search event: %v", err)
	}
}

// prepareDocuments caps the document count and excerpt length.
func prepareDocuments(docs []domain.CandidateDocument, maxPosts int, normaliser driven.DocumentNormaliser) []domain.CandidateDocument {
	if len(docs) > maxPosts {
		docs = docs[:maxPosts]
	}
	out := make([]domain.CandidateDocument, len(docs))
	for i, doc := range docs {
		if normaliser != nil {
			doc = normaliser.Normalise(doc)
		}
		doc.Excerpt = SmartTruncate(doc.Excerpt, domain.MaxExcerptRunes)
		out[i] = doc
	}
	return out
}
