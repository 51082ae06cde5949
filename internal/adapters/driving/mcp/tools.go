package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
)

// mcpClientIP identifies MCP callers to the per-IP limiter. All MCP traffic
// shares one bucket.
const mcpClientIP = "mcp"

// SummarizeInput is the input schema for the summarize tool.
type SummarizeInput struct {
	Query     string          `json:"query" jsonschema:"the visitor's search query"`
	Documents []DocumentInput `json:"documents" jsonschema:"candidate documents, most recent first"`
}

// DocumentInput is one candidate document.
type DocumentInput struct {
	ID          string `json:"id" jsonschema:"document identifier"`
	Title       string `json:"title" jsonschema:"document title"`
	URL         string `json:"url" jsonschema:"canonical document URL"`
	Excerpt     string `json:"excerpt,omitempty" jsonschema:"short summary"`
	Content     string `json:"content" jsonschema:"document body as plain text"`
	Type        string `json:"type,omitempty" jsonschema:"content type such as post or page"`
	PublishedAt string `json:"published_at,omitempty" jsonschema:"publish date, RFC 3339 or YYYY-MM-DD"`
}

// ClearCacheOutput is the output schema for the clear_cache tool.
type ClearCacheOutput struct {
	Namespace int64 `json:"namespace"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize",
		Description: "Answer a search query using only the supplied documents",
	}, s.handleSummarize)

	if s.ports.Cache != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "clear_cache",
			Description: "Invalidate every cached answer",
		}, s.handleClearCache)
	}
}

// handleSummarize handles the summarize tool invocation. Failures are
// returned as structured responses, not tool errors.
func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SummarizeInput,
) (*mcp.CallToolResult, driving.AnswerResponse, error) {
	req := driving.AnswerRequest{
		Query:     input.Query,
		Documents: make([]domain.CandidateDocument, len(input.Documents)),
		ClientIP:  mcpClientIP,
	}
	for i, d := range input.Documents {
		req.Documents[i] = domain.CandidateDocument{
			ID:          d.ID,
			Title:       d.Title,
			URL:         d.URL,
			Excerpt:     d.Excerpt,
			Content:     d.Content,
			Type:        d.Type,
			PublishedAt: domain.ParsePublishedAt(d.PublishedAt),
		}
	}

	outcome := s.ports.Answer.Answer(ctx, req)
	return nil, driving.NewAnswerResponse(outcome), nil
}

// handleClearCache handles the clear_cache tool invocation.
func (s *Server) handleClearCache(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ClearCacheOutput, error) {
	if s.ports.Cache == nil {
		return nil, ClearCacheOutput{}, errors.New("cache service not available")
	}
	ns, err := s.ports.Cache.Clear(ctx)
	if err != nil {
		return nil, ClearCacheOutput{}, err
	}
	return nil, ClearCacheOutput{Namespace: ns}, nil
}
