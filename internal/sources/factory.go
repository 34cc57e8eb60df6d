// Package sources wires persisted source configurations to live
// knowledge source implementations.
package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/sources/confluence"
	"github.com/custodia-labs/quorum-cli/internal/sources/docs"
	"github.com/custodia-labs/quorum-cli/internal/sources/drive"
	"github.com/custodia-labs/quorum-cli/internal/sources/github"
	"github.com/custodia-labs/quorum-cli/internal/sources/jira"
)

// Source type names accepted by Build.
const (
	TypeJira       = "jira"
	TypeConfluence = "confluence"
	TypeGitHub     = "github"
	TypeDrive      = "drive"
	TypeDocs       = "docs"
)

// Types lists the supported source type names.
func Types() []string {
	return []string{TypeJira, TypeConfluence, TypeGitHub, TypeDrive, TypeDocs}
}

// Build constructs a live knowledge source from its persisted
// configuration. Type-specific settings travel in cfg.Settings under
// snake_case keys.
func Build(ctx context.Context, cfg domain.SourceConfig) (driven.KnowledgeSource, error) {
	switch cfg.Type {
	case TypeJira:
		return jira.New(jira.Config{
			ID:         cfg.ID,
			BaseURL:    cfg.Setting("base_url", ""),
			Email:      cfg.Setting("email", ""),
			APIToken:   cfg.Setting("api_token", ""),
			Project:    cfg.Setting("project", ""),
			MaxResults: intSetting(cfg, "max_results"),
			Priority:   cfg.Priority,
		})

	case TypeConfluence:
		return confluence.New(confluence.Config{
			ID:         cfg.ID,
			BaseURL:    cfg.Setting("base_url", ""),
			Email:      cfg.Setting("email", ""),
			APIToken:   cfg.Setting("api_token", ""),
			Space:      cfg.Setting("space", ""),
			MaxResults: intSetting(cfg, "max_results"),
			Priority:   cfg.Priority,
		})

	case TypeGitHub:
		return github.New(github.Config{
			ID:         cfg.ID,
			Token:      cfg.Setting("token", ""),
			Repos:      listSetting(cfg, "repos"),
			MaxResults: intSetting(cfg, "max_results"),
			Priority:   cfg.Priority,
		})

	case TypeDrive:
		return drive.New(ctx, drive.Config{
			ID:         cfg.ID,
			Token:      cfg.Setting("token", ""),
			FolderID:   cfg.Setting("folder_id", ""),
			MaxResults: intSetting(cfg, "max_results"),
			Priority:   cfg.Priority,
		})

	case TypeDocs:
		return docs.New(docs.Config{
			ID:         cfg.ID,
			Root:       cfg.Setting("root", ""),
			MaxResults: intSetting(cfg, "max_results"),
			Priority:   cfg.Priority,
			Watch:      boolSetting(cfg, "watch"),
		})

	default:
		return nil, fmt.Errorf("source type %q: %w", cfg.Type, domain.ErrUnsupportedType)
	}
}

// intSetting parses an integer setting, zero when unset or malformed.
func intSetting(cfg domain.SourceConfig, key string) int {
	v, err := strconv.Atoi(cfg.Setting(key, "0"))
	if err != nil {
		return 0
	}
	return v
}

// boolSetting parses a boolean setting, false when unset or malformed.
func boolSetting(cfg domain.SourceConfig, key string) bool {
	v, err := strconv.ParseBool(cfg.Setting(key, "false"))
	if err != nil {
		return false
	}
	return v
}

// listSetting splits a comma-separated setting into trimmed entries.
func listSetting(cfg domain.SourceConfig, key string) []string {
	raw := cfg.Setting(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
