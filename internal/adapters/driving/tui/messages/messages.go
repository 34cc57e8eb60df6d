// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

// StreamStarted carries the event channel of a freshly started answer stream.
type StreamStarted struct {
	Events <-chan domain.StreamEvent
}

// StreamEventReceived carries one pipeline event from an active stream.
type StreamEventReceived struct {
	Event domain.StreamEvent
}

// StreamClosed signals the event channel was closed without a terminal event.
type StreamClosed struct{}

// SourcesLoaded carries the registered source metadata for the overlay.
type SourcesLoaded struct {
	Sources []domain.SourceMetadata
	Err     error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
