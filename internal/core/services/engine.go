package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quorum-cli/internal/logger"
)

// ExecutionHooks observe source invocations for progress reporting.
// Hooks fire synchronously around each call and must not influence
// control flow; either field may be nil.
type ExecutionHooks struct {
	OnSourceStart    func(sourceID string)
	OnSourceComplete func(sourceID string, result domain.SourceResult)
}

// Engine executes a query plan against the registered sources.
// Phases run strictly in order; sources within a phase run concurrently;
// failures are isolated per source and never abort siblings or later
// phases.
type Engine struct {
	registry driving.SourceRegistry
}

// NewEngine creates an execution engine over the given registry.
func NewEngine(registry driving.SourceRegistry) *Engine {
	return &Engine{registry: registry}
}

// Execute runs the plan. All results and citations accumulate in
// invocation order; the citation pool keeps only the first occurrence
// of each id. Each phase's results seed the next phase's
// QueryContext.PreviousResults when that phase waits.
func (e *Engine) Execute(
	ctx context.Context, plan domain.QueryPlan, baseCtx domain.QueryContext, hooks ExecutionHooks,
) domain.ExecutionResult {
	logger.Section("Plan Execution")

	var out domain.ExecutionResult
	var previous []domain.SourceResult

	for _, phase := range plan.Phases {
		started := time.Now()

		phaseCtx := baseCtx
		phaseCtx.PreviousResults = nil
		if phase.WaitForPrevious {
			phaseCtx.PreviousResults = previous
		}

		results := e.executePhase(ctx, phase, phaseCtx, hooks)

		out.Results = append(out.Results, results...)
		for _, res := range results {
			out.Citations = append(out.Citations, res.Citations...)
		}
		out.Timings = append(out.Timings, domain.PhaseTiming{
			Phase:    phase.Phase,
			Duration: time.Since(started),
		})
		previous = results

		logger.Debug("Phase %d: %d source(s) settled in %s",
			phase.Phase, len(results), time.Since(started).Round(time.Millisecond))
	}

	// A source re-queried in a later phase repeats its citations.
	out.Citations = domain.DedupeCitations(out.Citations)

	return out
}

// executePhase fans out to all sources in the phase and joins them.
// Each goroutine writes into its own slot; one failing source never
// cancels its siblings.
func (e *Engine) executePhase(
	ctx context.Context, phase domain.QueryPhase, phaseCtx domain.QueryContext, hooks ExecutionHooks,
) []domain.SourceResult {
	results := make([]domain.SourceResult, len(phase.Sources))

	var wg sync.WaitGroup
	for i, sel := range phase.Sources {
		wg.Add(1)
		go func(i int, sel domain.SourceSelection) {
			defer wg.Done()
			results[i] = e.querySource(ctx, sel, phaseCtx, hooks)
		}(i, sel)
	}
	wg.Wait()

	return results
}

// querySource invokes one source with full failure isolation: a missing
// source id yields a synthetic error result, and a panicking source is
// recovered into an error result.
func (e *Engine) querySource(
	ctx context.Context, sel domain.SourceSelection, phaseCtx domain.QueryContext, hooks ExecutionHooks,
) (result domain.SourceResult) {
	if hooks.OnSourceStart != nil {
		hooks.OnSourceStart(sel.SourceID)
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("Source %q panicked: %v", sel.SourceID, rec)
			result = domain.SourceResult{
				SourceID: sel.SourceID,
				Error:    fmt.Sprintf("source panicked: %v", rec),
			}
		}
		if hooks.OnSourceComplete != nil {
			hooks.OnSourceComplete(sel.SourceID, result)
		}
	}()

	source := e.registry.Get(sel.SourceID)
	if source == nil {
		return domain.SourceResult{
			SourceID: sel.SourceID,
			Error:    fmt.Sprintf("source %q is not registered", sel.SourceID),
		}
	}

	qctx := phaseCtx
	qctx.Filters = sel.Filters

	result = source.Query(ctx, qctx)
	// Defend the slot invariant even if the source forgets its own id.
	if result.SourceID == "" {
		result.SourceID = sel.SourceID
	}
	return result
}
