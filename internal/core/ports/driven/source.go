package driven

import (
	"context"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

// KnowledgeSource answers queries against one data domain.
// Each provider type (jira, confluence, github, drive, docs) implements
// this interface.
//
// Contract: Query must never return an error across the boundary. Any
// internal failure (network, parsing, auth) is captured in the result's
// Error field with nil Data and no citations. IsAvailable likewise treats
// probe failures as "not available" rather than propagating them.
type KnowledgeSource interface {
	// Metadata returns the immutable descriptor of the source.
	Metadata() domain.SourceMetadata

	// IsAvailable probes whether the source can currently answer.
	// May hit a remote dependency; failures report false.
	IsAvailable(ctx context.Context) bool

	// Query answers one query. How the query string is interpreted
	// (keyword heuristics, structured filters, a backing search API) is
	// source-internal.
	Query(ctx context.Context, qctx domain.QueryContext) domain.SourceResult
}
