package domain

// SourceMetadata is the immutable descriptor of a knowledge source.
// It is created once at registration time and never mutated.
type SourceMetadata struct {
	// ID is the unique key of the source (e.g. "jira", "confluence").
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Description tells the planner what the source knows about.
	Description string `json:"description"`

	// Capabilities lists what the source can answer, in declaration order.
	Capabilities []string `json:"capabilities"`

	// ExampleQueries are sample questions the source handles well.
	// They are shown to the planner to guide source selection.
	ExampleQueries []string `json:"exampleQueries,omitempty"`

	// Priority orders sources when no explicit plan ordering applies.
	// Lower values are queried first.
	Priority int `json:"priority"`
}

// QueryContext carries everything a source needs for one invocation.
// It is constructed fresh per source call and never mutated.
type QueryContext struct {
	// Query is the raw user question.
	Query string `json:"query"`

	// SessionID identifies the conversation this query belongs to.
	SessionID string `json:"sessionId"`

	// Filters are planner-supplied parameters for this specific source.
	Filters map[string]string `json:"filters,omitempty"`

	// PreviousResults holds the prior phase's results. Present only when
	// the phase declared WaitForPrevious.
	PreviousResults []SourceResult `json:"previousResults,omitempty"`
}

// SourceResult is the outcome of querying one source.
// Exactly one of Data/Error is meaningful. A failed result still occupies
// its slot in the aggregate so the synthesizer can report degraded coverage.
type SourceResult struct {
	// SourceID identifies which source produced this result.
	SourceID string `json:"sourceId"`

	// Data is the opaque structured payload. Nil on failure.
	Data any `json:"data"`

	// Citations are the verifiable pieces of evidence backing Data.
	Citations []Citation `json:"citations"`

	// Error describes the failure when the source could not answer.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the result represents a source failure.
func (r SourceResult) Failed() bool {
	return r.Error != ""
}

// Citation types. Each source emits citations only for entities it can
// uniquely address by a stable ID and URL.
const (
	CitationJiraIssue      = "jira-issue"
	CitationConfluencePage = "confluence-page"
	CitationGitHubIssue    = "github-issue"
	CitationGitHubPull     = "github-pull"
	CitationDriveFile      = "drive-file"
	CitationDocument       = "document"
	CitationWeb            = "web"
	CitationCustom         = "custom"
)

// Citation is a uniquely addressable piece of evidence returned by a source.
// The positional [n] marker shown to the user is assigned at emission time
// and is never stored on the citation itself.
type Citation struct {
	// SourceID identifies the source that produced the citation.
	SourceID string `json:"sourceId"`

	// Type is the citation kind (jira-issue, confluence-page, ...).
	Type string `json:"type"`

	// ID is the cited entity's natural key (issue key, page id, path).
	ID string `json:"id"`

	// Title is the display title of the cited entity.
	Title string `json:"title"`

	// URL links to the entity. Empty when no web address exists.
	URL string `json:"url,omitempty"`

	// Snippet is a short excerpt supporting the citation.
	Snippet string `json:"snippet,omitempty"`

	// Metadata carries type-specific details (status, author, ...).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DedupeCitations removes citations with duplicate IDs, keeping the first
// occurrence and preserving order.
func DedupeCitations(citations []Citation) []Citation {
	seen := make(map[string]bool, len(citations))
	result := make([]Citation, 0, len(citations))
	for _, c := range citations {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		result = append(result, c)
	}
	return result
}
