package driven

import (
	"context"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

// SessionStore persists chat sessions for the lifetime of the process.
type SessionStore interface {
	// Get retrieves a session by ID. Returns domain.ErrNotFound when the
	// session does not exist.
	Get(ctx context.Context, id string) (*domain.ChatSession, error)

	// Save stores or replaces a session.
	Save(ctx context.Context, session domain.ChatSession) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// List returns all sessions.
	List(ctx context.Context) ([]domain.ChatSession, error)
}

// SourceConfigStore persists configured source definitions.
type SourceConfigStore interface {
	// Save stores or updates a source configuration.
	Save(ctx context.Context, cfg domain.SourceConfig) error

	// Get retrieves a source configuration by ID.
	Get(ctx context.Context, id string) (*domain.SourceConfig, error)

	// Delete removes a source configuration.
	Delete(ctx context.Context, id string) error

	// List returns all configured sources.
	List(ctx context.Context) ([]domain.SourceConfig, error)
}

// ConfigStore provides key/value application configuration.
type ConfigStore interface {
	// Get retrieves a raw value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value, empty when unset.
	GetString(key string) string

	// GetInt retrieves an integer value, zero when unset.
	GetInt(key string) int

	// GetBool retrieves a boolean value, false when unset.
	GetBool(key string) bool

	// Set stores a value and persists it.
	Set(key string, value any) error

	// Load re-reads configuration from the backing medium.
	Load() error
}
