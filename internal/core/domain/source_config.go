package domain

import "time"

// SourceConfig is the persisted definition of a configured knowledge
// source. It describes how to construct the source, not the live source
// itself.
type SourceConfig struct {
	// ID is the unique source identifier, also used as the registry key.
	ID string `json:"id"`

	// Type names the source implementation (jira, confluence, github,
	// drive, docs).
	Type string `json:"type"`

	// Name is the display name. Defaults to the type's name when empty.
	Name string `json:"name,omitempty"`

	// Priority orders the source in fallback plans. Lower is earlier.
	Priority int `json:"priority"`

	// Settings holds type-specific configuration (base URLs, project
	// filters, paths). Credentials travel here under well-known keys.
	Settings map[string]string `json:"settings,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Setting returns the named setting or the fallback when unset.
func (c SourceConfig) Setting(key, fallback string) string {
	if v, ok := c.Settings[key]; ok && v != "" {
		return v
	}
	return fallback
}
