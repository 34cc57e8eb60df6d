// Package confluence provides a knowledge source backed by the
// Confluence Cloud CQL search API.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/sources/queryutil"
)

// Ensure Source implements the interface.
var _ driven.KnowledgeSource = (*Source)(nil)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxResults = 15
	DefaultPriority   = 2

	snippetLength = 200
)

// Config holds configuration for the Confluence source.
type Config struct {
	// ID is the registry key (default: "confluence").
	ID string

	// BaseURL is the Confluence site URL, e.g.
	// https://acme.atlassian.net/wiki (required).
	BaseURL string

	// Email is the account email for basic auth (required).
	Email string

	// APIToken is the Atlassian API token (required).
	APIToken string

	// Space restricts searches to one space key. Empty searches all.
	Space string

	// MaxResults caps pages returned per query (default: 15).
	MaxResults int

	// Priority orders the source in fallback plans.
	Priority int

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Source queries Confluence pages via CQL built from query keywords.
type Source struct {
	client     *http.Client
	baseURL    string
	email      string
	apiToken   string
	space      string
	maxResults int
	meta       domain.SourceMetadata
}

// searchResponse is the Confluence /rest/api/content/search response format.
type searchResponse struct {
	Results []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Space struct {
			Key string `json:"key"`
		} `json:"space"`
		Links struct {
			WebUI string `json:"webui"`
		} `json:"_links"`
		Excerpt string `json:"excerpt,omitempty"`
	} `json:"results"`
	Size int `json:"size"`
}

// New creates a Confluence source.
func New(cfg Config) (*Source, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("confluence: base URL is required")
	}
	if cfg.Email == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("confluence: email and API token are required")
	}
	if cfg.ID == "" {
		cfg.ID = "confluence"
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Priority == 0 {
		cfg.Priority = DefaultPriority
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Source{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		email:      cfg.Email,
		apiToken:   cfg.APIToken,
		space:      cfg.Space,
		maxResults: cfg.MaxResults,
		meta: domain.SourceMetadata{
			ID:          cfg.ID,
			Name:        "Confluence",
			Description: "Confluence wiki pages: design docs, runbooks, meeting notes, and team documentation",
			Capabilities: []string{
				"documentation and design doc search",
				"runbook and process lookup",
			},
			ExampleQueries: []string{
				"Where is the incident response runbook?",
				"What did we decide about the payments architecture?",
			},
			Priority: cfg.Priority,
		},
	}, nil
}

// Metadata returns the source descriptor.
func (s *Source) Metadata() domain.SourceMetadata {
	return s.meta
}

// IsAvailable probes the instance with a minimal space listing.
func (s *Source) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/api/space?limit=1", http.NoBody)
	if err != nil {
		return false
	}
	req.SetBasicAuth(s.email, s.apiToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Query searches pages matching the query keywords. Failures are
// reported in the result, never returned.
func (s *Source) Query(ctx context.Context, qctx domain.QueryContext) domain.SourceResult {
	result := domain.SourceResult{SourceID: s.meta.ID}

	searchResp, err := s.search(ctx, s.buildCQL(qctx))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	pages := make([]map[string]any, 0, len(searchResp.Results))
	for _, page := range searchResp.Results {
		pages = append(pages, map[string]any{
			"id":    page.ID,
			"title": page.Title,
			"space": page.Space.Key,
		})

		result.Citations = append(result.Citations, domain.Citation{
			SourceID: s.meta.ID,
			Type:     domain.CitationConfluencePage,
			ID:       page.ID,
			Title:    page.Title,
			URL:      s.baseURL + page.Links.WebUI,
			Snippet:  queryutil.Truncate(page.Excerpt, snippetLength),
			Metadata: map[string]any{"space": page.Space.Key},
		})
	}

	result.Data = map[string]any{
		"pages": pages,
		"total": searchResp.Size,
	}
	return result
}

// buildCQL translates the query into CQL. A planner-supplied space
// filter takes precedence over the configured default.
func (s *Source) buildCQL(qctx domain.QueryContext) string {
	clauses := []string{"type = page"}

	space := s.space
	if v := qctx.Filters["space"]; v != "" {
		space = v
	}
	if space != "" {
		clauses = append(clauses, fmt.Sprintf("space = %q", space))
	}

	if keywords := queryutil.Keywords(qctx.Query); len(keywords) > 0 {
		terms := strings.Join(keywords, " ")
		clauses = append(clauses, fmt.Sprintf("text ~ %q", terms))
	}

	return strings.Join(clauses, " AND ")
}

// search calls the Confluence content search endpoint.
func (s *Source) search(ctx context.Context, cql string) (*searchResponse, error) {
	params := url.Values{}
	params.Set("cql", cql)
	params.Set("limit", strconv.Itoa(s.maxResults))
	params.Set("expand", "space")

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		s.baseURL+"/rest/api/content/search?"+params.Encode(),
		http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(s.email, s.apiToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("confluence error (status %d): %s", resp.StatusCode, string(body))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &searchResp, nil
}
