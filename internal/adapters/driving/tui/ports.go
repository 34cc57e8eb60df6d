// Package tui provides an interactive chat terminal interface for quorum.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat drives the question-answering pipeline.
	Chat driving.ChatService

	// Registry lists the registered knowledge sources. Optional; the
	// sources overlay is hidden when nil.
	Registry driving.SourceRegistry
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(chat driving.ChatService, registry driving.SourceRegistry) *Ports {
	return &Ports{
		Chat:     chat,
		Registry: registry,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
