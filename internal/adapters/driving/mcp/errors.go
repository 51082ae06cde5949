// Package mcp provides an MCP (Model Context Protocol) server adapter for
// sercha-answers. It lets AI assistants request grounded answers over a set
// of documents they already hold.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
