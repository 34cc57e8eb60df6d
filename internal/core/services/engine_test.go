package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

func singlePhasePlan(ids ...string) domain.QueryPlan {
	sels := make([]domain.SourceSelection, len(ids))
	for i, id := range ids {
		sels[i] = domain.SourceSelection{SourceID: id, Reason: "test"}
	}
	return domain.QueryPlan{
		Phases: []domain.QueryPhase{{Phase: 1, Sources: sels}},
	}
}

func TestEngine_Execute_FailureIsolation(t *testing.T) {
	registry := NewSourceRegistry()
	good1 := newStubSource("good1", 0)
	bad := newStubSource("bad", 1)
	bad.panicMsg = "connection refused"
	good2 := newStubSource("good2", 2)
	registry.Register(good1)
	registry.Register(bad)
	registry.Register(good2)

	engine := NewEngine(registry)
	out := engine.Execute(context.Background(), singlePhasePlan("good1", "bad", "good2"),
		domain.QueryContext{Query: "q"}, ExecutionHooks{})

	require.Len(t, out.Results, 3, "every invocation occupies a slot")

	byID := map[string]domain.SourceResult{}
	for _, r := range out.Results {
		byID[r.SourceID] = r
	}
	assert.False(t, byID["good1"].Failed())
	assert.NotNil(t, byID["good1"].Data)
	assert.True(t, byID["bad"].Failed())
	assert.Contains(t, byID["bad"].Error, "connection refused")
	assert.False(t, byID["good2"].Failed())
}

func TestEngine_Execute_MissingSourceYieldsErrorResult(t *testing.T) {
	registry := NewSourceRegistry()
	registry.Register(newStubSource("known", 0))

	engine := NewEngine(registry)
	out := engine.Execute(context.Background(), singlePhasePlan("known", "missing"),
		domain.QueryContext{Query: "q"}, ExecutionHooks{})

	require.Len(t, out.Results, 2)
	assert.False(t, out.Results[0].Failed())
	assert.True(t, out.Results[1].Failed())
	assert.Equal(t, "missing", out.Results[1].SourceID)
}

func TestEngine_Execute_PreviousResultsFlowBetweenPhases(t *testing.T) {
	registry := NewSourceRegistry()
	first := newStubSource("first", 0)
	first.result = domain.SourceResult{SourceID: "first", Data: "phase one data"}
	second := newStubSource("second", 1)
	registry.Register(first)
	registry.Register(second)

	plan := domain.QueryPlan{
		Phases: []domain.QueryPhase{
			{Phase: 1, Sources: []domain.SourceSelection{{SourceID: "first"}}},
			{Phase: 2, Sources: []domain.SourceSelection{{SourceID: "second"}}, WaitForPrevious: true},
		},
	}

	engine := NewEngine(registry)
	engine.Execute(context.Background(), plan, domain.QueryContext{Query: "q"}, ExecutionHooks{})

	firstSeen := first.seenQueries()
	require.Len(t, firstSeen, 1)
	assert.Nil(t, firstSeen[0].PreviousResults, "phase 1 never receives previous results")

	secondSeen := second.seenQueries()
	require.Len(t, secondSeen, 1)
	require.Len(t, secondSeen[0].PreviousResults, 1)
	assert.Equal(t, "first", secondSeen[0].PreviousResults[0].SourceID)
	assert.Equal(t, "phase one data", secondSeen[0].PreviousResults[0].Data)
}

func TestEngine_Execute_NoWaitOmitsPreviousResults(t *testing.T) {
	registry := NewSourceRegistry()
	first := newStubSource("first", 0)
	second := newStubSource("second", 1)
	registry.Register(first)
	registry.Register(second)

	plan := domain.QueryPlan{
		Phases: []domain.QueryPhase{
			{Phase: 1, Sources: []domain.SourceSelection{{SourceID: "first"}}},
			{Phase: 2, Sources: []domain.SourceSelection{{SourceID: "second"}}, WaitForPrevious: false},
		},
	}

	engine := NewEngine(registry)
	engine.Execute(context.Background(), plan, domain.QueryContext{Query: "q"}, ExecutionHooks{})

	seen := second.seenQueries()
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0].PreviousResults)
}

func TestEngine_Execute_CitationsAccumulateInInvocationOrder(t *testing.T) {
	registry := NewSourceRegistry()
	a := newStubSource("a", 0)
	a.result = domain.SourceResult{
		SourceID:  "a",
		Data:      "x",
		Citations: []domain.Citation{{SourceID: "a", Type: domain.CitationDocument, ID: "a-1", Title: "A1"}},
	}
	b := newStubSource("b", 1)
	b.result = domain.SourceResult{
		SourceID: "b",
		Data:     "y",
		Citations: []domain.Citation{
			{SourceID: "b", Type: domain.CitationDocument, ID: "b-1", Title: "B1"},
			{SourceID: "b", Type: domain.CitationDocument, ID: "b-2", Title: "B2"},
		},
	}
	registry.Register(a)
	registry.Register(b)

	plan := domain.QueryPlan{
		Phases: []domain.QueryPhase{
			{Phase: 1, Sources: []domain.SourceSelection{{SourceID: "a"}}},
			{Phase: 2, Sources: []domain.SourceSelection{{SourceID: "b"}}, WaitForPrevious: true},
		},
	}

	engine := NewEngine(registry)
	out := engine.Execute(context.Background(), plan, domain.QueryContext{Query: "q"}, ExecutionHooks{})

	require.Len(t, out.Citations, 3)
	assert.Equal(t, "a-1", out.Citations[0].ID)
	assert.Equal(t, "b-1", out.Citations[1].ID)
	assert.Equal(t, "b-2", out.Citations[2].ID)

	require.Len(t, out.Timings, 2)
	assert.Equal(t, 1, out.Timings[0].Phase)
	assert.Equal(t, 2, out.Timings[1].Phase)
}

func TestEngine_Execute_CitationPoolDedupesAcrossPhases(t *testing.T) {
	registry := NewSourceRegistry()
	src := newStubSource("tickets", 0)
	src.result = domain.SourceResult{
		SourceID: "tickets",
		Data:     "x",
		Citations: []domain.Citation{
			{SourceID: "tickets", Type: domain.CitationJiraIssue, ID: "X-1", Title: "X1"},
			{SourceID: "tickets", Type: domain.CitationJiraIssue, ID: "X-2", Title: "X2"},
		},
	}
	registry.Register(src)

	// The same source queried in both phases returns the same citations.
	plan := domain.QueryPlan{
		Phases: []domain.QueryPhase{
			{Phase: 1, Sources: []domain.SourceSelection{{SourceID: "tickets"}}},
			{Phase: 2, Sources: []domain.SourceSelection{{SourceID: "tickets"}}, WaitForPrevious: true},
		},
	}

	engine := NewEngine(registry)
	out := engine.Execute(context.Background(), plan, domain.QueryContext{Query: "q"}, ExecutionHooks{})

	require.Len(t, out.Results, 2, "every invocation keeps its result slot")
	require.Len(t, out.Citations, 2, "repeated citations collapse to one pool entry")
	assert.Equal(t, "X-1", out.Citations[0].ID)
	assert.Equal(t, "X-2", out.Citations[1].ID)
}

func TestEngine_Execute_HooksFirePerSource(t *testing.T) {
	registry := NewSourceRegistry()
	registry.Register(newStubSource("a", 0))
	bad := newStubSource("b", 1)
	bad.panicMsg = "boom"
	registry.Register(bad)

	var mu sync.Mutex
	started := map[string]int{}
	completed := map[string]bool{}

	hooks := ExecutionHooks{
		OnSourceStart: func(id string) {
			mu.Lock()
			started[id]++
			mu.Unlock()
		},
		OnSourceComplete: func(id string, result domain.SourceResult) {
			mu.Lock()
			completed[id] = result.Failed()
			mu.Unlock()
		},
	}

	engine := NewEngine(registry)
	engine.Execute(context.Background(), singlePhasePlan("a", "b"),
		domain.QueryContext{Query: "q"}, hooks)

	assert.Equal(t, map[string]int{"a": 1, "b": 1}, started)
	assert.False(t, completed["a"])
	assert.True(t, completed["b"], "complete hook sees the recovered error result")
}

func TestEngine_Execute_FiltersReachSource(t *testing.T) {
	registry := NewSourceRegistry()
	src := newStubSource("jira", 0)
	registry.Register(src)

	plan := domain.QueryPlan{
		Phases: []domain.QueryPhase{{
			Phase: 1,
			Sources: []domain.SourceSelection{{
				SourceID: "jira",
				Filters:  map[string]string{"project": "CORE"},
			}},
		}},
	}

	engine := NewEngine(registry)
	engine.Execute(context.Background(), plan, domain.QueryContext{Query: "q", SessionID: "s1"}, ExecutionHooks{})

	seen := src.seenQueries()
	require.Len(t, seen, 1)
	assert.Equal(t, "CORE", seen[0].Filters["project"])
	assert.Equal(t, "s1", seen[0].SessionID)
	assert.Equal(t, "q", seen[0].Query)
}
