package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// PlaceholderAnswerHTML replaces a missing or empty answer_html.
const PlaceholderAnswerHTML = "<p>We found some relevant results, but could not write a summary for them. Please see the sources below.</p>"

var errUnparseable = errors.New("model content is not a JSON object")

// ParseAnswerContent turns model output into an answer.
// It accepts a bare JSON object or one embedded in surrounding text,
// unwraps one level of double encoding, and defaults missing fields.
// The returned HTML is not yet sanitized.
func ParseAnswerContent(content string) (*domain.CachedAnswer, error) {
	obj, err := decodeObject(content)
	if err != nil {
		return nil, err
	}

	answerHTML, _ := stringValue(obj["answer_html"])
	rawResults := obj["results"]

	if inner, ok := doubleEncoded(answerHTML); ok {
		answerHTML, _ = stringValue(inner["answer_html"])
		if _, present := inner["results"]; present {
			rawResults = inner["results"]
		}
	}

	if strings.TrimSpace(answerHTML) == "" {
		answerHTML = PlaceholderAnswerHTML
	}

	return &domain.CachedAnswer{
		AnswerHTML: answerHTML,
		Results:    decodeResults(rawResults),
	}, nil
}

// decodeObject parses content directly, then falls back to the text
// between the first '{' and the last '}'.
func decodeObject(content string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &obj); err == nil && obj != nil {
		return obj, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, errUnparseable
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &obj); err != nil || obj == nil {
		return nil, errUnparseable
	}
	return obj, nil
}

// doubleEncoded reports whether s is itself a JSON object with an
// answer_html key.
func doubleEncoded(s string) (map[string]json.RawMessage, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
		return nil, false
	}
	if _, ok := inner["answer_html"]; !ok {
		return nil, false
	}
	return inner, true
}

func decodeResults(raw json.RawMessage) []domain.SourceResult {
	results := []domain.SourceResult{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return results
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return results
	}
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		id, _ := stringValue(fields["id"])
		title, _ := stringValue(fields["title"])
		url, _ := stringValue(fields["url"])
		excerpt, _ := stringValue(fields["excerpt"])
		typ, _ := stringValue(fields["type"])
		results = append(results, domain.SourceResult{
			ID:      id,
			Title:   title,
			URL:     url,
			Excerpt: excerpt,
			Type:    typ,
		})
	}
	return results
}

// stringValue decodes a JSON string or number as a string.
func stringValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return n.String(), true
	}
	return "", false
}
