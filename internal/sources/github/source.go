// Package github provides a knowledge source over GitHub issues and
// pull requests using the search API.
package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

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
	DefaultPriority   = 3

	snippetLength = 200
)

// Config holds configuration for the GitHub source.
type Config struct {
	// ID is the registry key (default: "github").
	ID string

	// Token is a personal access or OAuth token (required).
	Token string

	// Repos restricts searches to the listed "owner/name" repositories.
	// Empty searches everything the token can see.
	Repos []string

	// MaxResults caps items returned per query (default: 20).
	MaxResults int

	// Priority orders the source in fallback plans.
	Priority int

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Source queries GitHub issues and pull requests.
type Source struct {
	gh         *gh.Client
	limiter    *rateLimiter
	repos      []string
	maxResults int
	meta       domain.SourceMetadata
}

// New creates a GitHub source with a static token.
func New(cfg Config) (*Source, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github: token is required")
	}
	if cfg.ID == "" {
		cfg.ID = "github"
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

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = cfg.Timeout

	return &Source{
		gh:         gh.NewClient(tc),
		limiter:    newRateLimiter(),
		repos:      cfg.Repos,
		maxResults: cfg.MaxResults,
		meta: domain.SourceMetadata{
			ID:          cfg.ID,
			Name:        "GitHub",
			Description: "GitHub issues and pull requests: open work, reviews, and recent changes",
			Capabilities: []string{
				"issue and pull request search",
				"open review and merge status lookup",
			},
			ExampleQueries: []string{
				"Which pull requests are waiting for review?",
				"Are there open issues about the rate limiter?",
			},
			Priority: cfg.Priority,
		},
	}, nil
}

// Metadata returns the source descriptor.
func (s *Source) Metadata() domain.SourceMetadata {
	return s.meta
}

// IsAvailable validates the token with a lightweight user lookup.
func (s *Source) IsAvailable(ctx context.Context) bool {
	if err := s.limiter.wait(ctx); err != nil {
		return false
	}
	_, resp, err := s.gh.Users.Get(ctx, "")
	if resp != nil {
		s.limiter.updateFromResponse(resp.Response)
	}
	return err == nil
}

// Query searches issues and pull requests matching the query keywords.
// Failures are reported in the result, never returned.
func (s *Source) Query(ctx context.Context, qctx domain.QueryContext) domain.SourceResult {
	result := domain.SourceResult{SourceID: s.meta.ID}

	if err := s.limiter.wait(ctx); err != nil {
		result.Error = fmt.Sprintf("rate limit wait: %v", err)
		return result
	}

	searchResult, resp, err := s.gh.Search.Issues(ctx, s.buildQuery(qctx), &gh.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: s.maxResults},
	})
	if resp != nil {
		s.limiter.updateFromResponse(resp.Response)
	}
	if err != nil {
		result.Error = fmt.Sprintf("search issues: %v", err)
		return result
	}

	items := make([]map[string]any, 0, len(searchResult.Issues))
	for _, issue := range searchResult.Issues {
		kind := domain.CitationGitHubIssue
		if issue.IsPullRequest() {
			kind = domain.CitationGitHubPull
		}

		items = append(items, map[string]any{
			"number": issue.GetNumber(),
			"title":  issue.GetTitle(),
			"state":  issue.GetState(),
			"url":    issue.GetHTMLURL(),
			"isPull": issue.IsPullRequest(),
		})

		result.Citations = append(result.Citations, domain.Citation{
			SourceID: s.meta.ID,
			Type:     kind,
			ID:       fmt.Sprintf("%s#%d", repoFromURL(issue.GetHTMLURL()), issue.GetNumber()),
			Title:    issue.GetTitle(),
			URL:      issue.GetHTMLURL(),
			Snippet:  queryutil.Truncate(issue.GetBody(), snippetLength),
			Metadata: map[string]any{"state": issue.GetState()},
		})
	}

	result.Data = map[string]any{
		"items": items,
		"total": searchResult.GetTotal(),
	}
	return result
}

// buildQuery translates the query into GitHub search syntax. Planner
// filters narrow the search further.
func (s *Source) buildQuery(qctx domain.QueryContext) string {
	var parts []string

	if keywords := queryutil.Keywords(qctx.Query); len(keywords) > 0 {
		parts = append(parts, strings.Join(keywords, " "))
	}

	repos := s.repos
	if v := qctx.Filters["repo"]; v != "" {
		repos = []string{v}
	}
	for _, repo := range repos {
		parts = append(parts, "repo:"+repo)
	}

	if state := qctx.Filters["state"]; state != "" {
		parts = append(parts, "state:"+state)
	}
	switch qctx.Filters["type"] {
	case "issue":
		parts = append(parts, "is:issue")
	case "pull":
		parts = append(parts, "is:pr")
	}

	return strings.Join(parts, " ")
}

// repoFromURL extracts "owner/name" from an issue HTML URL.
func repoFromURL(htmlURL string) string {
	parts := strings.Split(htmlURL, "/")
	// https://github.com/owner/name/issues/42
	if len(parts) >= 5 {
		return parts[3] + "/" + parts[4]
	}
	return ""
}
