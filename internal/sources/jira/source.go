// Package jira provides a knowledge source backed by the Jira Cloud
// search API.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
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
	DefaultMaxResults = 20
	DefaultPriority   = 1

	snippetLength = 200
)

// Config holds configuration for the Jira source.
type Config struct {
	// ID is the registry key (default: "jira").
	ID string

	// BaseURL is the Jira site URL, e.g. https://acme.atlassian.net (required).
	BaseURL string

	// Email is the account email for basic auth (required).
	Email string

	// APIToken is the Atlassian API token (required).
	APIToken string

	// Project restricts searches to one project key. Empty searches all.
	Project string

	// MaxResults caps issues returned per query (default: 20).
	MaxResults int

	// Priority orders the source in fallback plans.
	Priority int

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Source queries Jira issues via JQL built from query keywords.
type Source struct {
	client     *http.Client
	baseURL    string
	email      string
	apiToken   string
	project    string
	maxResults int
	meta       domain.SourceMetadata
}

// searchResponse is the Jira /rest/api/3/search response format.
type searchResponse struct {
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
			Status  struct {
				Name string `json:"name"`
			} `json:"status"`
			Assignee *struct {
				DisplayName string `json:"displayName"`
			} `json:"assignee"`
			Priority *struct {
				Name string `json:"name"`
			} `json:"priority"`
			Updated string `json:"updated"`
		} `json:"fields"`
	} `json:"issues"`
	Total int `json:"total"`
}

// New creates a Jira source.
func New(cfg Config) (*Source, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jira: base URL is required")
	}
	if cfg.Email == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("jira: email and API token are required")
	}
	if cfg.ID == "" {
		cfg.ID = "jira"
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
		project:    cfg.Project,
		maxResults: cfg.MaxResults,
		meta: domain.SourceMetadata{
			ID:          cfg.ID,
			Name:        "Jira",
			Description: "Jira issues and tickets: status, assignees, blockers, and sprint work",
			Capabilities: []string{
				"issue status and assignee lookup",
				"blocked and in-progress work",
				"bug and task search by keyword",
			},
			ExampleQueries: []string{
				"What is blocking the payments release?",
				"Which bugs are assigned to the platform team?",
			},
			Priority: cfg.Priority,
		},
	}, nil
}

// Metadata returns the source descriptor.
func (s *Source) Metadata() domain.SourceMetadata {
	return s.meta
}

// IsAvailable probes the Jira instance with a lightweight myself lookup.
func (s *Source) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/api/3/myself", http.NoBody)
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

// Query searches issues matching the query keywords. Failures are
// reported in the result, never returned.
func (s *Source) Query(ctx context.Context, qctx domain.QueryContext) domain.SourceResult {
	result := domain.SourceResult{SourceID: s.meta.ID}

	searchResp, err := s.search(ctx, s.buildJQL(qctx))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	issues := make([]map[string]any, 0, len(searchResp.Issues))
	for _, issue := range searchResp.Issues {
		item := map[string]any{
			"key":     issue.Key,
			"summary": issue.Fields.Summary,
			"status":  issue.Fields.Status.Name,
			"updated": issue.Fields.Updated,
		}
		if issue.Fields.Assignee != nil {
			item["assignee"] = issue.Fields.Assignee.DisplayName
		}
		if issue.Fields.Priority != nil {
			item["priority"] = issue.Fields.Priority.Name
		}
		issues = append(issues, item)

		result.Citations = append(result.Citations, domain.Citation{
			SourceID: s.meta.ID,
			Type:     domain.CitationJiraIssue,
			ID:       issue.Key,
			Title:    fmt.Sprintf("[%s] %s", issue.Key, issue.Fields.Summary),
			URL:      s.baseURL + "/browse/" + issue.Key,
			Snippet:  queryutil.Truncate(issue.Fields.Summary, snippetLength),
			Metadata: map[string]any{"status": issue.Fields.Status.Name},
		})
	}

	result.Data = map[string]any{
		"issues": issues,
		"total":  searchResp.Total,
	}
	return result
}

// buildJQL translates the query into JQL. Planner filters take
// precedence over keyword heuristics.
func (s *Source) buildJQL(qctx domain.QueryContext) string {
	var clauses []string

	if project := firstNonEmpty(qctx.Filters["project"], s.project); project != "" {
		clauses = append(clauses, fmt.Sprintf("project = %q", project))
	}
	if status := qctx.Filters["status"]; status != "" {
		clauses = append(clauses, fmt.Sprintf("status = %q", status))
	}
	if assignee := qctx.Filters["assignee"]; assignee != "" {
		clauses = append(clauses, fmt.Sprintf("assignee = %q", assignee))
	}

	if keywords := queryutil.Keywords(qctx.Query); len(keywords) > 0 {
		terms := strings.Join(keywords, " ")
		clauses = append(clauses, fmt.Sprintf("text ~ %q", terms))
	}

	jql := strings.Join(clauses, " AND ")
	if jql == "" {
		jql = "order by updated desc"
	} else {
		jql += " order by updated desc"
	}
	return jql
}

// search calls the Jira search endpoint.
func (s *Source) search(ctx context.Context, jql string) (*searchResponse, error) {
	body, err := json.Marshal(map[string]any{
		"jql":        jql,
		"maxResults": s.maxResults,
		"fields":     []string{"summary", "status", "assignee", "priority", "updated"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/rest/api/3/search",
		strings.NewReader(string(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.email, s.apiToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("jira error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &searchResp, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
