package driving

import (
	"context"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

// ChatService drives the full question-answering pipeline:
// plan, execute, synthesize.
type ChatService interface {
	// Chat answers one message and appends the exchange to the session.
	// An empty sessionID creates a new session.
	Chat(ctx context.Context, message, sessionID string) (*domain.ChatResponse, error)

	// ChatStream runs the same pipeline but emits a StreamEvent at each
	// milestone. The returned channel is closed after a terminal done or
	// error event, or when ctx is cancelled. An aborted stream commits no
	// assistant message to the session.
	ChatStream(ctx context.Context, message, sessionID string) (<-chan domain.StreamEvent, error)

	// Session retrieves a session by ID.
	Session(ctx context.Context, id string) (*domain.ChatSession, error)

	// DeleteSession removes a session. This is the only removal path.
	DeleteSession(ctx context.Context, id string) error
}
