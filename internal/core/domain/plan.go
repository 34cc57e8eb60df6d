package domain

import (
	"encoding/json"
	"time"
)

// SourceSelection records the planner's justification and parameters for
// invoking one source in one phase.
type SourceSelection struct {
	// SourceID names the source to invoke.
	SourceID string `json:"sourceId"`

	// Reason explains why the planner chose this source.
	Reason string `json:"reason"`

	// Filters are passed to the source via QueryContext.Filters.
	Filters map[string]string `json:"filters,omitempty"`
}

// QueryPhase is one step of a plan. Phase numbers are contiguous starting
// at 1 after validation.
type QueryPhase struct {
	// Phase is the 1-based sequence number.
	Phase int `json:"phase"`

	// Sources are invoked concurrently within the phase.
	Sources []SourceSelection `json:"sources"`

	// WaitForPrevious makes the prior phase's results available to this
	// phase's sources. Enforced in code: phase 1 never waits, every later
	// phase always waits.
	WaitForPrevious bool `json:"waitForPrevious"`
}

// QueryPlan is the planner's ordered schedule of which sources to query.
// It may be empty when no source is relevant or none are registered.
type QueryPlan struct {
	Phases    []QueryPhase `json:"phases"`
	Reasoning string       `json:"reasoning"`
}

// Empty reports whether the plan has no phases.
func (p QueryPlan) Empty() bool {
	return len(p.Phases) == 0
}

// SourceIDs returns every source id in the plan, in phase order.
func (p QueryPlan) SourceIDs() []string {
	var ids []string
	for _, phase := range p.Phases {
		for _, sel := range phase.Sources {
			ids = append(ids, sel.SourceID)
		}
	}
	return ids
}

// PhaseTiming records how long one phase took, for observability.
type PhaseTiming struct {
	Phase    int
	Duration time.Duration
}

// phaseTimingWire is the JSON shape of PhaseTiming. The duration is
// whole milliseconds, matching the durationMs field name.
type phaseTimingWire struct {
	Phase      int   `json:"phase"`
	DurationMs int64 `json:"durationMs"`
}

func (t PhaseTiming) MarshalJSON() ([]byte, error) {
	return json.Marshal(phaseTimingWire{
		Phase:      t.Phase,
		DurationMs: t.Duration.Milliseconds(),
	})
}

func (t *PhaseTiming) UnmarshalJSON(data []byte) error {
	var w phaseTimingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.Phase = w.Phase
	t.Duration = time.Duration(w.DurationMs) * time.Millisecond
	return nil
}

// ExecutionResult aggregates everything the engine produced.
type ExecutionResult struct {
	// Results holds one entry per source invocation across all phases,
	// in invocation order.
	Results []SourceResult `json:"results"`

	// Citations pools all result citations in invocation order, with
	// duplicate ids removed (first occurrence wins).
	Citations []Citation `json:"citations"`

	// Timings holds one record per executed phase.
	Timings []PhaseTiming `json:"timings"`
}
