package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
)

// stubSource is a configurable in-memory knowledge source.
type stubSource struct {
	meta      domain.SourceMetadata
	available bool
	result    domain.SourceResult
	panicMsg  string
	queryFn   func(ctx context.Context, qctx domain.QueryContext) domain.SourceResult

	mu      sync.Mutex
	queries []domain.QueryContext
}

func newStubSource(id string, priority int) *stubSource {
	return &stubSource{
		meta: domain.SourceMetadata{
			ID:          id,
			Name:        id,
			Description: "stub source " + id,
			Priority:    priority,
		},
		available: true,
		result:    domain.SourceResult{SourceID: id, Data: map[string]any{"from": id}},
	}
}

func (s *stubSource) Metadata() domain.SourceMetadata { return s.meta }

func (s *stubSource) IsAvailable(context.Context) bool { return s.available }

func (s *stubSource) Query(ctx context.Context, qctx domain.QueryContext) domain.SourceResult {
	s.mu.Lock()
	s.queries = append(s.queries, qctx)
	s.mu.Unlock()

	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.queryFn != nil {
		return s.queryFn(ctx, qctx)
	}
	return s.result
}

func (s *stubSource) seenQueries() []domain.QueryContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.QueryContext, len(s.queries))
	copy(out, s.queries)
	return out
}

// stubLLM returns canned completions in call order. Stream chunks the
// completion through onDelta in two pieces to exercise delta handling.
type stubLLM struct {
	mu          sync.Mutex
	completions []string
	err         error
	calls       int
}

var _ driven.LLMService = (*stubLLM)(nil)

func (l *stubLLM) next() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	if l.calls >= len(l.completions) {
		return "", fmt.Errorf("stubLLM: unexpected call %d", l.calls+1)
	}
	out := l.completions[l.calls]
	l.calls++
	return out, nil
}

func (l *stubLLM) Complete(_ context.Context, _ driven.CompletionRequest) (string, error) {
	return l.next()
}

func (l *stubLLM) Stream(_ context.Context, _ driven.CompletionRequest, onDelta func(string)) (string, error) {
	out, err := l.next()
	if err != nil {
		return "", err
	}
	if onDelta != nil && out != "" {
		mid := len(out) / 2
		onDelta(out[:mid])
		onDelta(out[mid:])
	}
	return out, nil
}

func (l *stubLLM) ModelName() string         { return "stub" }
func (l *stubLLM) Ping(context.Context) error { return nil }
func (l *stubLLM) Close() error              { return nil }

// planJSON builds a single-phase planner completion selecting the given
// source ids.
func planJSON(ids ...string) string {
	sources := ""
	for i, id := range ids {
		if i > 0 {
			sources += ","
		}
		sources += fmt.Sprintf(`{"sourceId":%q,"reason":"relevant"}`, id)
	}
	return fmt.Sprintf(`{"phases":[{"phase":1,"sources":[%s],"waitForPrevious":false}],"reasoning":"test"}`, sources)
}
