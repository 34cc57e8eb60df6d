// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets AI assistants ask questions through the query pipeline and
// inspect the configured knowledge sources.
package mcp

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("mcp: chat service is required")
