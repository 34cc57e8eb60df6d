package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/logger"
)

// synthesisMaxTokens bounds the answer completion.
const synthesisMaxTokens = 2048

// citationMarker matches positional [n] references in synthesized text.
var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// SynthesisResult is the synthesizer's output: the answer text and the
// subset of the citation pool the text actually references.
type SynthesisResult struct {
	Content   string
	Citations []domain.Citation
}

// Synthesizer turns aggregated source results and the citation pool into
// a cited natural-language answer. Unlike planning, a synthesis LLM
// failure is fatal to the request.
type Synthesizer struct {
	llm driven.LLMService
}

// NewSynthesizer creates a synthesizer backed by the given LLM service.
func NewSynthesizer(llm driven.LLMService) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Synthesize produces the answer in one shot.
func (s *Synthesizer) Synthesize(
	ctx context.Context, query string, results []domain.SourceResult, citations []domain.Citation,
) (*SynthesisResult, error) {
	return s.synthesize(ctx, query, results, citations, nil)
}

// SynthesizeStream produces the answer incrementally, invoking onContent
// for each text delta, and returns the same final shape once complete.
func (s *Synthesizer) SynthesizeStream(
	ctx context.Context, query string, results []domain.SourceResult, citations []domain.Citation,
	onContent func(delta string),
) (*SynthesisResult, error) {
	return s.synthesize(ctx, query, results, citations, onContent)
}

func (s *Synthesizer) synthesize(
	ctx context.Context, query string, results []domain.SourceResult, citations []domain.Citation,
	onContent func(delta string),
) (*SynthesisResult, error) {
	logger.Section("Answer Synthesis")

	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	req := driven.CompletionRequest{
		SystemPrompt: synthesisSystemPrompt,
		Messages: []driven.ChatMessage{
			{Role: "user", Content: buildSynthesisContext(query, results, citations)},
		},
		MaxTokens:   synthesisMaxTokens,
		Temperature: 0.2,
	}

	var content string
	var err error
	if onContent != nil {
		content, err = s.llm.Stream(ctx, req, onContent)
	} else {
		content, err = s.llm.Complete(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, err)
	}

	used := extractCitations(content, citations)
	logger.Info("Synthesized %d chars, %d of %d citations referenced",
		len(content), len(used), len(citations))

	return &SynthesisResult{Content: content, Citations: used}, nil
}

const synthesisSystemPrompt = `You are an assistant that answers questions using evidence gathered from multiple knowledge sources.

Write a concise answer in prose. Support every claim with a citation marker [n] placed immediately after the claim, where n is the citation's number from the provided citation list. Use only the citations listed. Do not add a references section, the markers are enough. If some sources failed, acknowledge the gap briefly rather than guessing.`

// buildSynthesisContext renders one labeled section per source result plus
// the positional citation list the model references.
func buildSynthesisContext(
	query string, results []domain.SourceResult, citations []domain.Citation,
) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", query)
	b.WriteString("Source results:\n")

	for _, res := range results {
		if res.Failed() {
			fmt.Fprintf(&b, "\n## %s (FAILED)\nThis source could not be queried: %s\n", res.SourceID, res.Error)
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n%s\n", res.SourceID, serializeData(res.Data))
	}

	if len(citations) > 0 {
		b.WriteString("\nCitations:\n")
		for i, c := range citations {
			fmt.Fprintf(&b, "[%d] %s (%s: %s)", i+1, c.Title, c.Type, c.ID)
			if c.Snippet != "" {
				fmt.Fprintf(&b, " - %s", c.Snippet)
			}
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// serializeData renders the opaque payload verbatim as JSON; strings pass
// through unchanged.
func serializeData(data any) string {
	switch v := data.(type) {
	case nil:
		return "(no data)"
	case string:
		return v
	default:
		blob, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(blob)
	}
}

// extractCitations scans the text for [k] markers and returns the distinct
// referenced citations in ascending index order. Markers outside the pool
// range are ignored; citations the model never referenced are dropped.
func extractCitations(content string, pool []domain.Citation) []domain.Citation {
	matches := citationMarker.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var indices []int
	for _, m := range matches {
		k, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		idx := k - 1
		if idx < 0 || idx >= len(pool) || seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	result := make([]domain.Citation, 0, len(indices))
	for _, idx := range indices {
		result = append(result, pool[idx])
	}
	return result
}
