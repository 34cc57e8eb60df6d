// Package drive provides a knowledge source over Google Drive files
// using full-text search.
package drive

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/sources/queryutil"
)

// Ensure Source implements the interface.
var _ driven.KnowledgeSource = (*Source)(nil)

// Default configuration values.
const (
	DefaultMaxResults = 15
	DefaultPriority   = 4
)

// Config holds configuration for the Drive source.
type Config struct {
	// ID is the registry key (default: "drive").
	ID string

	// Token is an OAuth access token with drive.readonly scope (required
	// unless Options supplies credentials).
	Token string

	// FolderID restricts searches to one folder. Empty searches all.
	FolderID string

	// MaxResults caps files returned per query (default: 15).
	MaxResults int

	// Priority orders the source in fallback plans.
	Priority int

	// Options are extra client options, used by tests to redirect the
	// endpoint and disable authentication.
	Options []option.ClientOption
}

// Source queries Google Drive files.
type Source struct {
	svc        *driveapi.Service
	folderID   string
	maxResults int
	meta       domain.SourceMetadata
}

// New creates a Drive source.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Token == "" && len(cfg.Options) == 0 {
		return nil, fmt.Errorf("drive: token is required")
	}
	if cfg.ID == "" {
		cfg.ID = "drive"
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Priority == 0 {
		cfg.Priority = DefaultPriority
	}

	opts := cfg.Options
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}

	svc, err := driveapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: create service: %w", err)
	}

	return &Source{
		svc:        svc,
		folderID:   cfg.FolderID,
		maxResults: cfg.MaxResults,
		meta: domain.SourceMetadata{
			ID:          cfg.ID,
			Name:        "Google Drive",
			Description: "Google Drive documents and spreadsheets: specs, reports, and shared files",
			Capabilities: []string{
				"document full-text search",
				"file lookup by title",
			},
			ExampleQueries: []string{
				"Find the Q3 capacity planning doc",
			},
			Priority: cfg.Priority,
		},
	}, nil
}

// Metadata returns the source descriptor.
func (s *Source) Metadata() domain.SourceMetadata {
	return s.meta
}

// IsAvailable probes Drive with a minimal listing.
func (s *Source) IsAvailable(ctx context.Context) bool {
	_, err := s.svc.Files.List().PageSize(1).Fields("files(id)").Context(ctx).Do()
	return err == nil
}

// Query runs a full-text search. Failures are reported in the result,
// never returned.
func (s *Source) Query(ctx context.Context, qctx domain.QueryContext) domain.SourceResult {
	result := domain.SourceResult{SourceID: s.meta.ID}

	list, err := s.svc.Files.List().
		Q(s.buildQuery(qctx)).
		PageSize(int64(s.maxResults)).
		Fields("files(id,name,mimeType,webViewLink,modifiedTime)").
		Context(ctx).
		Do()
	if err != nil {
		result.Error = fmt.Sprintf("list files: %v", err)
		return result
	}

	files := make([]map[string]any, 0, len(list.Files))
	for _, f := range list.Files {
		files = append(files, map[string]any{
			"id":       f.Id,
			"name":     f.Name,
			"mimeType": f.MimeType,
			"modified": f.ModifiedTime,
		})

		result.Citations = append(result.Citations, domain.Citation{
			SourceID: s.meta.ID,
			Type:     domain.CitationDriveFile,
			ID:       f.Id,
			Title:    f.Name,
			URL:      f.WebViewLink,
			Metadata: map[string]any{"mimeType": f.MimeType},
		})
	}

	result.Data = map[string]any{"files": files}
	return result
}

// buildQuery translates the query into the Drive files.list query syntax.
func (s *Source) buildQuery(qctx domain.QueryContext) string {
	clauses := []string{"trashed = false"}

	if keywords := queryutil.Keywords(qctx.Query); len(keywords) > 0 {
		terms := strings.ReplaceAll(strings.Join(keywords, " "), "'", `\'`)
		clauses = append(clauses, fmt.Sprintf("fullText contains '%s'", terms))
	}

	folder := s.folderID
	if v := qctx.Filters["folder"]; v != "" {
		folder = v
	}
	if folder != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", folder))
	}

	return strings.Join(clauses, " and ")
}
