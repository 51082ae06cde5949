package services

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

func TestSmartTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"fits", "Short text.", 20, "Short text."},
		{"exact fit", "12345", 5, "12345"},
		{"sentence end", "First sentence here. Second sentence goes on and on", 30, "First sentence here."},
		{"quoted sentence end", `He said "stop now." And then it went on`, 30, `He said "stop now."`},
		{"question mark", "Is this the one? Maybe it is not really", 25, "Is this the one?"},
		{"sentence end too early falls back to word", "Hi. This is a long run of words without stops", 30, "Hi. This is a long run of…"},
		{"word boundary", "alpha beta gamma delta epsilon zeta", 20, "alpha beta gamma…"},
		{"hard cut", "abcdefghijklmnopqrstuvwxyz", 10, "abcdefghi…"},
		{"zero limit", "anything", 0, "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SmartTruncate(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			if tt.limit > 0 {
				assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.limit)
			}
		})
	}
}

func TestSmartTruncate_MultiByte(t *testing.T) {
	text := strings.Repeat("日本語", 20)

	got := SmartTruncate(text, 10)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 10, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestSmartTruncate_Idempotent(t *testing.T) {
	texts := []string{
		"First sentence here. Second sentence goes on and on",
		"alpha beta gamma delta epsilon zeta eta theta",
		"abcdefghijklmnopqrstuvwxyz",
		strings.Repeat("é ", 300),
		"Ends with a quote.\" Then more and more text follows here",
	}
	for _, text := range texts {
		for _, limit := range []int{5, 10, 20, 37, 100} {
			once := SmartTruncate(text, limit)
			assert.Equal(t, once, SmartTruncate(once, limit), "text=%q limit=%d", text, limit)
		}
	}
}

func TestIsReasoningModel(t *testing.T) {
	for model, want := range map[string]bool{
		"o1":          true,
		"o3-mini":     true,
		"o4-mini":     true,
		"gpt-5":       true,
		"gpt-5-mini":  true,
		"GPT-5":       true,
		"gpt-4o":      false,
		"gpt-4o-mini": false,
		"gpt-4.1":     false,
		"omni":        false,
	} {
		assert.Equal(t, want, IsReasoningModel(model), model)
	}
}

func TestSupportsJSONResponse(t *testing.T) {
	assert.True(t, SupportsJSONResponse("gpt-4o-mini"))
	assert.True(t, SupportsJSONResponse("gpt-4.1-nano"))
	assert.False(t, SupportsJSONResponse("gpt-3.5-turbo"))
	assert.False(t, SupportsJSONResponse("o3"))
}

func TestBuildChatRequest_StandardModel(t *testing.T) {
	s := domain.DefaultSettings()
	s.Model = "gpt-4o-mini"
	s.MaxTokens = 1200

	req := BuildChatRequest(s, "sys", "user")

	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 1200, req.MaxTokens)
	assert.False(t, req.UseCompletionTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, answerTemperature, *req.Temperature, 0.0001)
	assert.True(t, req.JSONResponse)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
}

func TestBuildChatRequest_ReasoningModel(t *testing.T) {
	s := domain.DefaultSettings()
	s.Model = "o3-mini"
	s.MaxTokens = 1500

	req := BuildChatRequest(s, "sys", "user")

	assert.True(t, req.UseCompletionTokens)
	assert.Equal(t, reasoningMinTokens, req.MaxTokens)
	assert.Nil(t, req.Temperature)
	assert.False(t, req.JSONResponse)
}

func TestBuildChatRequest_OtherModelNoJSONFormat(t *testing.T) {
	s := domain.DefaultSettings()
	s.Model = "gpt-3.5-turbo"

	req := BuildChatRequest(s, "sys", "user")

	assert.False(t, req.JSONResponse)
	assert.NotNil(t, req.Temperature)
}

func TestPromptBuilder_SystemPrompt(t *testing.T) {
	b := NewPromptBuilder(nil)

	prompt := b.SystemPrompt("Truck Weekly")
	assert.Contains(t, prompt, "search engine for Truck Weekly")
	assert.Contains(t, prompt, "answer_html")
	assert.Contains(t, prompt, "newer")
	assert.Contains(t, prompt, "clarifying question")

	assert.Contains(t, b.SystemPrompt(""), "search engine for "+defaultSiteName)
}

func TestPromptBuilder_SystemPromptFromStore(t *testing.T) {
	store := &mockPromptStore{prompts: map[string]string{driven.PromptAnswerSystem: "Custom persona for %s."}}

	assert.Equal(t, "Custom persona for Site.", NewPromptBuilder(store).SystemPrompt("Site"))
}

func TestPromptBuilder_SystemPromptFallsBack(t *testing.T) {
	broken := &mockPromptStore{prompts: map[string]string{driven.PromptAnswerSystem: "no placeholder"}}
	failing := &mockPromptStore{err: errors.New("disk gone")}

	for _, store := range []*mockPromptStore{broken, failing} {
		prompt := NewPromptBuilder(store).SystemPrompt("Site")
		assert.Contains(t, prompt, "search engine for Site")
	}
}

func TestPromptBuilder_UserPrompt(t *testing.T) {
	docs := []domain.CandidateDocument{
		{
			ID: "42", Title: "Range test", URL: "https://example.com/range", Type: "post",
			PublishedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Content:     strings.Repeat("word ", 200),
		},
		{ID: "43", Title: "Excerpt only", URL: "https://example.com/b", Excerpt: "Short excerpt"},
		{ID: "44", Title: "Dropped", URL: "https://example.com/c", Content: "x"},
	}

	prompt := NewPromptBuilder(nil).UserPrompt("truck range", docs, 2, 100)

	assert.Contains(t, prompt, "Search query: truck range")
	assert.Contains(t, prompt, "ID: 42")
	assert.Contains(t, prompt, "Date: 2024-05-01")
	assert.Contains(t, prompt, "Type: post")
	assert.Contains(t, prompt, "Content: Short excerpt")
	assert.NotContains(t, prompt, "Dropped")
	assert.Contains(t, prompt, "…")
}
