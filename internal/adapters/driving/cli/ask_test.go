package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

func writeDocs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resetAskFlags() {
	askDocs = ""
	askJSON = false
}

func TestAskCmd_PrintsAnswer(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetAskFlags()

	ts.answer.outcome = domain.SuccessOutcome(&domain.CachedAnswer{
		AnswerHTML: "<p>Trucks go <strong>far</strong>.</p><ul><li>One</li><li>Two</li></ul>",
		Results:    []domain.SourceResult{{ID: "7", Title: "Range guide", URL: "https://example.com/range"}},
	}, true)
	path := writeDocs(t, `[{"id":"7","title":"Range guide","url":"https://example.com/range",`+
		`"content":"Body","published_at":"2024-01-02T03:04:05Z"}]`)

	out, err := execute("ask", "--docs", path, "electric truck range")

	require.NoError(t, err)
	assert.Contains(t, out, "Trucks go far.")
	assert.Contains(t, out, "  - One")
	assert.Contains(t, out, "(cached)")
	assert.Contains(t, out, "[1] Range guide")
	assert.Contains(t, out, "https://example.com/range")

	req := ts.answer.lastRequest
	assert.Equal(t, "electric truck range", req.Query)
	assert.Equal(t, cliClientIP, req.ClientIP)
	assert.Nil(t, req.Headers)
	require.Len(t, req.Documents, 1)
	assert.Equal(t, 2024, req.Documents[0].PublishedAt.Year())
}

func TestAskCmd_JSONOutput(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetAskFlags()

	ts.answer.outcome = domain.FatalOutcome(domain.CodeNoResults, "")

	out, err := execute("ask", "--json", "anything at all")

	require.NoError(t, err)
	assert.Contains(t, out, `"success": false`)
	assert.Contains(t, out, `"error": "no_results"`)
}

func TestAskCmd_FailureReturnsError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer resetAskFlags()

	ts.answer.outcome = domain.RetryableOutcome(domain.CodeTimeout, "provider slow")

	_, err := execute("ask", "hello world")

	require.Error(t, err)
	assert.Contains(t, err.Error(), string(domain.CodeAPIError))
	assert.NotContains(t, err.Error(), "provider slow")
}

func TestAskCmd_InvalidDocs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer resetAskFlags()

	_, err := execute("ask", "--docs", writeDocs(t, `{"not":"an array"}`), "hello world")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse documents")

	_, err = execute("ask", "--docs", filepath.Join(t.TempDir(), "missing.json"), "hello world")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open documents")
}

func TestAskCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	answerService = nil

	_, err := execute("ask", "hello world")

	assert.ErrorIs(t, err, errNotConfigured)
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello", "hello"},
		{"paragraphs", "<p>One</p><p>Two</p>", "One\n\nTwo"},
		{"break", "a<br>b", "a\nb"},
		{"list", "<ul><li>x</li><li>y</li></ul>", "- x\n  - y"},
		{"entities", "<p>Fish &amp; chips</p>", "Fish & chips"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, htmlToText(tt.input))
		})
	}
}
