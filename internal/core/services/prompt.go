package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

const (
	// reasoningMinTokens is the completion budget floor for reasoning models,
	// whose budget also covers hidden reasoning tokens.
	reasoningMinTokens = 16000

	answerTemperature = 0.3

	defaultSiteName = "this website"
	ellipsis        = "…"
)

var reasoningModelPattern = regexp.MustCompile(`^o\d`)

// IsReasoningModel reports whether model is a reasoning model.
func IsReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return reasoningModelPattern.MatchString(m) || strings.HasPrefix(m, "gpt-5")
}

// SupportsJSONResponse reports whether model accepts a strict JSON object
// response format.
func SupportsJSONResponse(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if IsReasoningModel(m) {
		return false
	}
	return strings.HasPrefix(m, "gpt-4o") || strings.HasPrefix(m, "gpt-4.1")
}

// SmartTruncate shortens text to at most limit runes, preferring to cut at
// a sentence end, then at a word boundary. Cuts that are not at a sentence
// end get an ellipsis, which counts towards the limit.
func SmartTruncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	slice := runes[:limit]

	if end := lastSentenceEnd(slice); end > 0 && end*2 >= limit {
		return string(slice[:end])
	}

	for i := len(slice) - 1; i > 0; i-- {
		if !unicode.IsSpace(slice[i]) {
			continue
		}
		if i*10 < limit*7 {
			break
		}
		return strings.TrimRightFunc(string(slice[:i]), unicode.IsSpace) + ellipsis
	}

	return string(runes[:limit-1]) + ellipsis
}

// lastSentenceEnd returns the index just past the last sentence terminator
// in s that is followed by whitespace, or 0 when there is none.
// Terminators may be followed by a closing quote.
func lastSentenceEnd(s []rune) int {
	end := 0
	for i := 0; i < len(s)-1; i++ {
		if !isTerminator(s[i]) {
			continue
		}
		j := i + 1
		if isClosingQuote(s[j]) {
			j++
		}
		if j < len(s) && unicode.IsSpace(s[j]) {
			end = j
		}
	}
	return end
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosingQuote(r rune) bool {
	return r == '"' || r == '\'' || r == '”' || r == '’' || r == '»'
}

// PromptBuilder renders the system and user messages of an answer request.
type PromptBuilder struct {
	prompts driven.PromptStore
}

// NewPromptBuilder creates a builder. A nil store uses the built-in prompt.
func NewPromptBuilder(prompts driven.PromptStore) *PromptBuilder {
	return &PromptBuilder{prompts: prompts}
}

// SystemPrompt returns the persona and output-format instructions.
func (b *PromptBuilder) SystemPrompt(siteName string) string {
	if strings.TrimSpace(siteName) == "" {
		siteName = defaultSiteName
	}
	template := driven.DefaultAnswerSystemPrompt
	if b.prompts != nil {
		loaded, err := b.prompts.Load(driven.PromptAnswerSystem)
		switch {
		case err != nil:
			logger.Warn("Failed to load answer prompt, using default: %v", err)
		case strings.Count(loaded, "%s") != 1:
			logger.Warn("Answer prompt must contain exactly one %%s, using default")
		default:
			template = loaded
		}
	}
	return fmt.Sprintf(template, siteName)
}

// UserPrompt lists the query and up to maxPosts documents, each with its
// content truncated to contentLength.
func (b *PromptBuilder) UserPrompt(query string, docs []domain.CandidateDocument, maxPosts, contentLength int) string {
	if maxPosts > 0 && len(docs) > maxPosts {
		docs = docs[:maxPosts]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search query: %s\n\n", query)
	fmt.Fprintf(&sb, "Documents (%d):\n", len(docs))
	for i, doc := range docs {
		fmt.Fprintf(&sb, "\n[%d]\n", i+1)
		fmt.Fprintf(&sb, "ID: %s\n", doc.ID)
		fmt.Fprintf(&sb, "Title: %s\n", doc.Title)
		fmt.Fprintf(&sb, "URL: %s\n", doc.URL)
		if doc.Type != "" {
			fmt.Fprintf(&sb, "Type: %s\n", doc.Type)
		}
		if !doc.PublishedAt.IsZero() {
			fmt.Fprintf(&sb, "Date: %s\n", doc.PublishedAt.Format("2006-01-02"))
		}
		content := doc.Content
		if strings.TrimSpace(content) == "" {
			content = doc.Excerpt
		}
		fmt.Fprintf(&sb, "Content: %s\n", SmartTruncate(strings.TrimSpace(content), contentLength))
	}
	return sb.String()
}

// BuildChatRequest assembles the provider request for settings, applying
// the reasoning-model and JSON-format rules.
func BuildChatRequest(settings domain.Settings, system, user string) driven.ChatRequest {
	req := driven.ChatRequest{
		Model: settings.Model,
		Messages: []driven.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: settings.MaxTokens,
	}

	if IsReasoningModel(settings.Model) {
		req.UseCompletionTokens = true
		if req.MaxTokens < reasoningMinTokens {
			req.MaxTokens = reasoningMinTokens
		}
		return req
	}

	temperature := answerTemperature
	req.Temperature = &temperature
	req.JSONResponse = SupportsJSONResponse(settings.Model)
	return req
}
