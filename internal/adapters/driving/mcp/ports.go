package mcp

import (
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat runs the question-answering pipeline.
	Chat driving.ChatService

	// Registry exposes the configured knowledge sources.
	Registry driving.SourceRegistry
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	// Registry is optional; the sources resource degrades to an empty list.
	return nil
}
