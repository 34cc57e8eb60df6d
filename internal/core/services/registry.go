package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quorum-cli/internal/logger"
)

// Ensure SourceRegistry implements the interface.
var _ driving.SourceRegistry = (*SourceRegistry)(nil)

// DefaultProbeTimeout bounds each availability probe.
const DefaultProbeTimeout = 5 * time.Second

// SourceRegistry holds the live knowledge sources, keyed by metadata ID.
type SourceRegistry struct {
	mu           sync.RWMutex
	sources      map[string]driven.KnowledgeSource
	probeTimeout time.Duration
}

// NewSourceRegistry creates an empty source registry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{
		sources:      make(map[string]driven.KnowledgeSource),
		probeTimeout: DefaultProbeTimeout,
	}
}

// Register adds a source, replacing any existing source with the same ID.
func (r *SourceRegistry) Register(source driven.KnowledgeSource) {
	if source == nil {
		return
	}
	meta := source.Metadata()
	if meta.ID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[meta.ID] = source
	logger.Debug("Registered source %q (priority %d)", meta.ID, meta.Priority)
}

// Unregister removes a source by ID. Unknown IDs are ignored.
func (r *SourceRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, id)
}

// Get returns the source with the given ID, or nil.
func (r *SourceRegistry) Get(id string) driven.KnowledgeSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[id]
}

// List returns metadata for every registered source, sorted by ascending
// priority.
func (r *SourceRegistry) List() []domain.SourceMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.SourceMetadata, 0, len(r.sources))
	for _, src := range r.sources {
		result = append(result, src.Metadata())
	}
	sortByPriority(result)
	return result
}

// Available probes every source concurrently and returns metadata for the
// ones that report available, sorted by ascending priority. A probe that
// panics or times out excludes the source without error.
func (r *SourceRegistry) Available(ctx context.Context) []domain.SourceMetadata {
	r.mu.RLock()
	sources := make([]driven.KnowledgeSource, 0, len(r.sources))
	for _, src := range r.sources {
		sources = append(sources, src)
	}
	r.mu.RUnlock()

	available := make([]domain.SourceMetadata, len(sources))
	ok := make([]bool, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src driven.KnowledgeSource) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
			defer cancel()
			ok[i] = probe(probeCtx, src)
			available[i] = src.Metadata()
		}(i, src)
	}
	wg.Wait()

	result := make([]domain.SourceMetadata, 0, len(sources))
	for i := range sources {
		if ok[i] {
			result = append(result, available[i])
		} else {
			logger.Debug("Source %q unavailable, excluded", available[i].ID)
		}
	}
	sortByPriority(result)
	return result
}

// probe calls IsAvailable, converting panics to "unavailable".
func probe(ctx context.Context, src driven.KnowledgeSource) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("Availability probe for %q panicked: %v", src.Metadata().ID, rec)
			ok = false
		}
	}()
	return src.IsAvailable(ctx)
}

func sortByPriority(metas []domain.SourceMetadata) {
	sort.SliceStable(metas, func(i, j int) bool {
		if metas[i].Priority != metas[j].Priority {
			return metas[i].Priority < metas[j].Priority
		}
		return metas[i].ID < metas[j].ID
	})
}
