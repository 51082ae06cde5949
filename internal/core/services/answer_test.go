package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
)

type answerFixture struct {
	svc    *AnswerService
	client *mockChatClient
	events *memory.EventLog
	clock  *testClock
	source *staticSettings
}

func newAnswerFixture(settings domain.Settings) *answerFixture {
	clock := newTestClock()
	kv := newClockedKV(clock)
	client := &mockChatClient{}
	events := memory.NewEventLog()
	source := &staticSettings{settings: settings}
	summary := NewSummaryService(client, NewResponseCache(kv), NewGlobalLimiter(kv).WithClock(clock.Now), nil)
	svc := NewAnswerService(source, summary, kv, NewChallenger("secret"), events).
		WithClock(clock.Now, func(time.Duration) {})
	return &answerFixture{svc: svc, client: client, events: events, clock: clock, source: source}
}

func (f *answerFixture) lastEvent(t *testing.T) domain.SearchEvent {
	t.Helper()
	events, err := f.events.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	return events[0]
}

func browserRequest(query string) driving.AnswerRequest {
	return driving.AnswerRequest{
		Query:     query,
		Documents: threeDocs(),
		ClientIP:  "203.0.113.9",
		Headers:   browserHeaders(),
	}
}

func TestAnswer_Success(t *testing.T) {
	f := newAnswerFixture(configuredSettings())
	f.client.results = []*driven.ChatResult{{Content: twoResultAnswer, Attempts: 1}}

	outcome := f.svc.Answer(context.Background(), browserRequest("best electric truck range"))

	require.True(t, outcome.OK(), outcome.Detail)
	assert.False(t, outcome.CacheHit)
	assert.Len(t, outcome.Answer.Results, 2)

	event := f.lastEvent(t)
	assert.True(t, event.AISuccess)
	assert.Equal(t, "best electric truck range", event.Query)
	assert.Equal(t, domain.HashQuery("best electric truck range"), event.QueryHash)
	assert.Equal(t, 3, event.ResultsCount)
	require.NotNil(t, event.CacheHit)
	assert.Equal(t, domain.CacheHitMiss, *event.CacheHit)
	assert.NotNil(t, event.ResponseTimeMS)
	assert.NotEmpty(t, event.ID)
}

func TestAnswer_RepeatIsCacheHit(t *testing.T) {
	f := newAnswerFixture(configuredSettings())
	ctx := context.Background()

	require.True(t, f.svc.Answer(ctx, browserRequest("best electric truck range")).OK())
	second := f.svc.Answer(ctx, browserRequest("Best Electric Truck Range "))

	require.True(t, second.OK())
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, f.client.Calls())
	require.NotNil(t, f.lastEvent(t).CacheHit)
	assert.Equal(t, domain.CacheHitServer, *f.lastEvent(t).CacheHit)
}

func TestAnswer_NotConfigured(t *testing.T) {
	f := newAnswerFixture(domain.DefaultSettings())

	outcome := f.svc.Answer(context.Background(), browserRequest("truck range"))

	assert.Equal(t, domain.CodeNotConfigured, outcome.Code)
	assert.Equal(t, 0, f.client.Calls())
	event := f.lastEvent(t)
	assert.Nil(t, event.CacheHit)
	assert.Equal(t, string(domain.CodeNotConfigured), event.Error)
}

func TestAnswer_SettingsError(t *testing.T) {
	f := newAnswerFixture(configuredSettings())
	f.source.err = errors.New("config unreadable")

	outcome := f.svc.Answer(context.Background(), browserRequest("truck range"))

	assert.Equal(t, domain.CodeNotConfigured, outcome.Code)
}

func TestAnswer_InvalidQuery(t *testing.T) {
	f := newAnswerFixture(configuredSettings())

	for _, q := range []string{"x", "' UNION SELECT * FROM users--", "visit http://x.com"} {
		outcome := f.svc.Answer(context.Background(), browserRequest(q))
		assert.Equal(t, domain.CodeInvalidQuery, outcome.Code, q)
		assert.Equal(t, domain.OutcomeFatal, outcome.Kind)
	}
	assert.Equal(t, 0, f.client.Calls())
}

func TestAnswer_Blocklist(t *testing.T) {
	settings := configuredSettings()
	settings.SpamBlocklist = "Rival Motors\n"
	f := newAnswerFixture(settings)

	outcome := f.svc.Answer(context.Background(), browserRequest("is rival motors better"))

	assert.Equal(t, domain.CodeInvalidQuery, outcome.Code)
}

func TestAnswer_BotDetected(t *testing.T) {
	f := newAnswerFixture(configuredSettings())
	req := browserRequest("truck range")
	req.Headers.Set("User-Agent", "curl/8.4.0 (x86_64-pc-linux-gnu)")

	outcome := f.svc.Answer(context.Background(), req)

	assert.Equal(t, domain.CodeBotDetected, outcome.Code)
	assert.Equal(t, 0, f.client.Calls())
}

func TestAnswer_NilHeadersSkipBotCheck(t *testing.T) {
	f := newAnswerFixture(configuredSettings())
	req := browserRequest("truck range")
	req.Headers = nil

	assert.True(t, f.svc.Answer(context.Background(), req).OK())
}

func TestAnswer_Challenge(t *testing.T) {
	settings := configuredSettings()
	settings.RequireChallenge = true
	f := newAnswerFixture(settings)
	ctx := context.Background()

	missing := f.svc.Answer(ctx, browserRequest("truck range"))
	assert.Equal(t, domain.CodeBotDetected, missing.Code)

	token, ts := f.svc.IssueChallenge()
	req := browserRequest("truck range")
	req.ChallengeToken, req.ChallengeTS = token, ts
	assert.True(t, f.svc.Answer(ctx, req).OK())

	f.clock.Advance(11 * time.Minute)
	assert.Equal(t, domain.CodeBotDetected, f.svc.Answer(ctx, req).Code)
}

func TestAnswer_InvalidOptionalChallenge(t *testing.T) {
	f := newAnswerFixture(configuredSettings())
	req := browserRequest("truck range")
	req.ChallengeToken, req.ChallengeTS = "forged", f.clock.Now().Unix()

	assert.Equal(t, domain.CodeBotDetected, f.svc.Answer(context.Background(), req).Code)
}

func TestAnswer_PerIPRateLimit(t *testing.T) {
	settings := configuredSettings()
	settings.RateLimitPerMinute = 2
	f := newAnswerFixture(settings)
	ctx := context.Background()

	require.True(t, f.svc.Answer(ctx, browserRequest("first query")).OK())
	require.True(t, f.svc.Answer(ctx, browserRequest("first query")).OK())

	limited := f.svc.Answer(ctx, browserRequest("first query"))
	assert.Equal(t, domain.CodeRateLimited, limited.Code)

	other := browserRequest("first query")
	other.ClientIP = "198.51.100.2"
	assert.True(t, f.svc.Answer(ctx, other).OK())

	f.clock.Advance(time.Minute)
	assert.True(t, f.svc.Answer(ctx, browserRequest("first query")).OK())
}

func TestAnswer_RejectionsAreRecorded(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		mutate func(*driving.AnswerRequest)
		code   domain.ErrorCode
		query  string
	}{
		{
			name:   "invalid query",
			mutate: func(r *driving.AnswerRequest) { r.Query = "visit <b>http://x.com</b>" },
			code:   domain.CodeInvalidQuery,
			query:  "visit http://x.com",
		},
		{
			name:   "bot",
			mutate: func(r *driving.AnswerRequest) { r.Headers.Set("User-Agent", "curl/8.4.0") },
			code:   domain.CodeBotDetected,
			query:  "truck range",
		},
		{
			name:   "per-ip limit",
			limit:  1,
			mutate: func(*driving.AnswerRequest) {},
			code:   domain.CodeRateLimited,
			query:  "truck range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := configuredSettings()
			if tt.limit > 0 {
				settings.RateLimitPerMinute = tt.limit
			}
			f := newAnswerFixture(settings)
			ctx := context.Background()
			if tt.limit > 0 {
				require.True(t, f.svc.Answer(ctx, browserRequest("truck range")).OK())
			}

			req := browserRequest("truck range")
			tt.mutate(&req)
			outcome := f.svc.Answer(ctx, req)
			require.Equal(t, tt.code, outcome.Code)

			event := f.lastEvent(t)
			assert.Equal(t, string(tt.code), event.Error)
			assert.Equal(t, tt.query, event.Query)
			assert.False(t, event.AISuccess)
			assert.Nil(t, event.CacheHit)
			assert.Equal(t, 3, event.ResultsCount)
		})
	}
}

func TestAnswer_NoResults(t *testing.T) {
	f := newAnswerFixture(configuredSettings())
	req := browserRequest("truck range")
	req.Documents = nil

	outcome := f.svc.Answer(context.Background(), req)

	assert.Equal(t, domain.CodeNoResults, outcome.Code)
	assert.Equal(t, 0, f.client.Calls())
	event := f.lastEvent(t)
	assert.False(t, event.AISuccess)
	assert.Nil(t, event.CacheHit)
}

func TestAnswer_AnonymizesQueries(t *testing.T) {
	settings := configuredSettings()
	settings.AnonymizeQueries = true
	f := newAnswerFixture(settings)

	require.True(t, f.svc.Answer(context.Background(), browserRequest("truck range")).OK())

	event := f.lastEvent(t)
	assert.Empty(t, event.Query)
	assert.Equal(t, domain.HashQuery("truck range"), event.QueryHash)
}

func TestAnswer_EventLogFailureIgnored(t *testing.T) {
	clock := newTestClock()
	kv := newClockedKV(clock)
	summary := NewSummaryService(&mockChatClient{}, NewResponseCache(kv), NewGlobalLimiter(kv), nil)
	svc := NewAnswerService(&staticSettings{settings: configuredSettings()}, summary, kv, nil, failingEventLog{})

	assert.True(t, svc.Answer(context.Background(), browserRequest("truck range")).OK())
}

func TestAnswer_TruncatesExcerpts(t *testing.T) {
	docs := prepareDocuments([]domain.CandidateDocument{
		{ID: "1", Excerpt: strings.Repeat("a", 300)},
		{ID: "2"},
	}, 1, nil)

	require.Len(t, docs, 1)
	assert.LessOrEqual(t, len([]rune(docs[0].Excerpt)), domain.MaxExcerptRunes)
}

type upperNormaliser struct{}

func (upperNormaliser) Normalise(doc domain.CandidateDocument) domain.CandidateDocument {
	doc.Content = strings.ToUpper(doc.Content)
	return doc
}

func TestAnswer_NormalisesDocuments(t *testing.T) {
	docs := prepareDocuments([]domain.CandidateDocument{
		{ID: "1", Content: "body"},
	}, 5, upperNormaliser{})

	require.Len(t, docs, 1)
	assert.Equal(t, "BODY", docs[0].Content)
}

func TestRecordClientEvent(t *testing.T) {
	f := newAnswerFixture(configuredSettings())

	require.NoError(t, f.svc.RecordClientEvent(context.Background(), "ip", "truck range", 4))

	event := f.lastEvent(t)
	require.NotNil(t, event.CacheHit)
	assert.Equal(t, domain.CacheHitClient, *event.CacheHit)
	assert.Equal(t, 4, event.ResultsCount)
	assert.True(t, event.AISuccess)
}

func TestRecordClientEvent_LightLimit(t *testing.T) {
	settings := configuredSettings()
	settings.LightRateLimitPerMinute = 1
	f := newAnswerFixture(settings)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordClientEvent(ctx, "ip", "truck range", 1))
	assert.ErrorIs(t, f.svc.RecordClientEvent(ctx, "ip", "truck range", 1), domain.ErrRateLimited)

	// The light limiter does not consume the primary quota.
	assert.True(t, f.svc.Answer(ctx, driving.AnswerRequest{
		Query: "truck range", Documents: threeDocs(), ClientIP: "ip", Headers: browserHeaders(),
	}).OK())
}

func TestRecordFeedback(t *testing.T) {
	f := newAnswerFixture(configuredSettings())
	ctx := context.Background()

	require.NoError(t, f.svc.RecordFeedback(ctx, "ip", "truck range", true))

	event := f.lastEvent(t)
	require.NotNil(t, event.Helpful)
	assert.True(t, *event.Helpful)

	err := f.svc.RecordFeedback(ctx, "ip", "http://spam.test", false)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestIssueChallenge_NilChallenger(t *testing.T) {
	svc := NewAnswerService(&staticSettings{}, nil, memory.NewKVStore(), nil, nil)

	token, ts := svc.IssueChallenge()
	assert.Empty(t, token)
	assert.Zero(t, ts)
}
