package driving

import (
	"context"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
)

// SourceRegistry manages the set of live knowledge sources.
type SourceRegistry interface {
	// Register adds a source, replacing any existing source with the
	// same metadata ID. Registration is idempotent by ID.
	Register(source driven.KnowledgeSource)

	// Unregister removes a source by ID. Unknown IDs are ignored.
	Unregister(id string)

	// Get returns the source with the given ID, or nil.
	Get(id string) driven.KnowledgeSource

	// List returns metadata for every registered source, sorted by
	// ascending priority.
	List() []domain.SourceMetadata

	// Available probes every source's IsAvailable concurrently and
	// returns metadata for the ones that answered true, sorted by
	// ascending priority. Probe failures exclude the source silently.
	Available(ctx context.Context) []domain.SourceMetadata
}
