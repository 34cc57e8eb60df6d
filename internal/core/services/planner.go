package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/logger"
)

// FallbackReason is attached to every selection in a fallback plan.
const FallbackReason = "Fallback: querying all available sources"

// plannerMaxTokens bounds the planning completion. Plans are small.
const plannerMaxTokens = 1024

// Planner turns a user query and the available sources into a QueryPlan.
// The LLM's output is treated as untrusted data: it is parsed leniently,
// validated strictly, and replaced with a deterministic fallback when
// unusable. CreatePlan never fails because of malformed model output.
type Planner struct {
	llm driven.LLMService
}

// NewPlanner creates a planner backed by the given LLM service.
func NewPlanner(llm driven.LLMService) *Planner {
	return &Planner{llm: llm}
}

// rawPlan mirrors the JSON shape requested from the model.
type rawPlan struct {
	Phases []struct {
		Phase   int `json:"phase"`
		Sources []struct {
			SourceID string            `json:"sourceId"`
			Reason   string            `json:"reason"`
			Filters  map[string]string `json:"filters"`
		} `json:"sources"`
		WaitForPrevious bool `json:"waitForPrevious"`
	} `json:"phases"`
	Reasoning string `json:"reasoning"`
}

// CreatePlan produces a validated query plan for the given query.
// With no available sources it returns an empty plan without calling the
// LLM. Malformed or unparseable model output falls back to a single phase
// querying every source by ascending priority.
func (p *Planner) CreatePlan(
	ctx context.Context, query string, available []domain.SourceMetadata,
) (domain.QueryPlan, error) {
	logger.Section("Query Planning")
	logger.Debug("Query: %q, available sources: %d", query, len(available))

	if len(available) == 0 {
		return domain.QueryPlan{
			Reasoning: "No knowledge sources are available to answer this query.",
		}, nil
	}

	if p.llm == nil {
		return domain.QueryPlan{}, domain.ErrLLMUnavailable
	}

	completion, err := p.llm.Complete(ctx, driven.CompletionRequest{
		SystemPrompt: buildPlannerPrompt(available),
		Messages: []driven.ChatMessage{
			{Role: "user", Content: query},
		},
		MaxTokens:   plannerMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		// Context cancellation must reach the caller; everything else is
		// recovered with the fallback plan.
		if ctx.Err() != nil {
			return domain.QueryPlan{}, ctx.Err()
		}
		logger.Warn("Planner LLM call failed: %v (using fallback plan)", err)
		return FallbackPlan(available), nil
	}

	raw, err := parsePlanJSON(completion)
	if err != nil {
		logger.Warn("Planner output unparseable: %v (using fallback plan)", err)
		return FallbackPlan(available), nil
	}

	plan := validatePlan(raw, available)
	if plan.Empty() {
		logger.Warn("Planner output yielded no valid phases (using fallback plan)")
		return FallbackPlan(available), nil
	}

	logger.Info("Plan: %d phase(s), sources %v", len(plan.Phases), plan.SourceIDs())
	return plan, nil
}

// FallbackPlan builds the deterministic plan used when planning output is
// unusable: a single phase containing every available source sorted by
// ascending priority.
func FallbackPlan(available []domain.SourceMetadata) domain.QueryPlan {
	sorted := make([]domain.SourceMetadata, len(available))
	copy(sorted, available)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	selections := make([]domain.SourceSelection, len(sorted))
	for i, meta := range sorted {
		selections[i] = domain.SourceSelection{
			SourceID: meta.ID,
			Reason:   FallbackReason,
		}
	}

	return domain.QueryPlan{
		Phases: []domain.QueryPhase{
			{Phase: 1, Sources: selections, WaitForPrevious: false},
		},
		Reasoning: "Fallback plan: the planner output was unusable, so all available sources are queried in one phase.",
	}
}

// buildPlannerPrompt enumerates every source for the model and pins the
// required JSON output shape.
func buildPlannerPrompt(available []domain.SourceMetadata) string {
	var b strings.Builder
	b.WriteString("You are a query planner for a multi-source knowledge system.\n")
	b.WriteString("Decide which sources are relevant to the user's question and in what order to query them.\n\n")
	b.WriteString("Available sources:\n")

	for _, meta := range available {
		fmt.Fprintf(&b, "- id: %s\n  name: %s\n  description: %s\n", meta.ID, meta.Name, meta.Description)
		if len(meta.Capabilities) > 0 {
			fmt.Fprintf(&b, "  capabilities: %s\n", strings.Join(meta.Capabilities, ", "))
		}
		for _, ex := range meta.ExampleQueries {
			fmt.Fprintf(&b, "  example: %s\n", ex)
		}
	}

	b.WriteString(`
Respond with ONLY a JSON object of this exact shape:
{
  "phases": [
    {
      "phase": 1,
      "sources": [
        {"sourceId": "<id>", "reason": "<why this source>", "filters": {}}
      ],
      "waitForPrevious": false
    }
  ],
  "reasoning": "<overall strategy>"
}

Rules:
- Use only the source ids listed above.
- Sources in the same phase run concurrently.
- Put a source in a later phase only when it needs the results of an earlier phase.
- Omit sources that are not relevant. An empty phases array means no source can help.`)

	return b.String()
}

// parsePlanJSON extracts and parses the first balanced JSON object from
// the completion, tolerating surrounding prose and code fences.
func parsePlanJSON(completion string) (*rawPlan, error) {
	blob, err := extractJSONObject(completion)
	if err != nil {
		return nil, err
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("parse plan JSON: %w", err)
	}
	return &raw, nil
}

// extractJSONObject returns the first balanced {...} substring.
// String literals are honoured so braces inside reasoning text don't
// unbalance the scan.
func extractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in completion")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in completion")
}

// validatePlan filters the raw plan against the known source set:
// unknown ids are dropped, phases left empty are dropped, surviving
// phases are renumbered 1..K in original relative order, and the wait
// flag is forced so that only the first phase runs without waiting,
// regardless of what the model proposed.
func validatePlan(raw *rawPlan, available []domain.SourceMetadata) domain.QueryPlan {
	known := make(map[string]bool, len(available))
	for _, meta := range available {
		known[meta.ID] = true
	}

	var phases []domain.QueryPhase
	for _, rp := range raw.Phases {
		var selections []domain.SourceSelection
		for _, rs := range rp.Sources {
			if !known[rs.SourceID] {
				logger.Debug("Dropping unknown source %q from plan", rs.SourceID)
				continue
			}
			selections = append(selections, domain.SourceSelection{
				SourceID: rs.SourceID,
				Reason:   rs.Reason,
				Filters:  rs.Filters,
			})
		}
		if len(selections) == 0 {
			continue
		}
		phases = append(phases, domain.QueryPhase{
			Phase:           len(phases) + 1,
			Sources:         selections,
			WaitForPrevious: len(phases) > 0,
		})
	}

	return domain.QueryPlan{Phases: phases, Reasoning: raw.Reasoning}
}
