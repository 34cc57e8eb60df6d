package confluence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	src, err := New(Config{
		BaseURL:  server.URL,
		Email:    "dev@example.com",
		APIToken: "token",
		Space:    "ENG",
	})
	require.NoError(t, err)
	return src
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{BaseURL: "https://acme.atlassian.net/wiki"})
	assert.Error(t, err)
}

func TestQuery_BuildsCQLAndEmitsCitations(t *testing.T) {
	var gotCQL string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/content/search", r.URL.Path)
		gotCQL = r.URL.Query().Get("cql")

		json.NewEncoder(w).Encode(map[string]any{
			"size": 1,
			"results": []map[string]any{{
				"id":      "98765",
				"title":   "Incident Response Runbook",
				"space":   map[string]string{"key": "ENG"},
				"_links":  map[string]string{"webui": "/spaces/ENG/pages/98765"},
				"excerpt": "When an incident is declared...",
			}},
		})
	})

	result := src.Query(context.Background(), domain.QueryContext{
		Query: "Where is the incident runbook?",
	})

	require.False(t, result.Failed(), result.Error)
	assert.Contains(t, gotCQL, "type = page")
	assert.Contains(t, gotCQL, `space = "ENG"`)
	assert.Contains(t, gotCQL, "incident")

	require.Len(t, result.Citations, 1)
	c := result.Citations[0]
	assert.Equal(t, domain.CitationConfluencePage, c.Type)
	assert.Equal(t, "98765", c.ID)
	assert.Contains(t, c.URL, "/spaces/ENG/pages/98765")
	assert.Equal(t, "Incident Response Runbook", c.Title)
}

func TestQuery_SpaceFilterOverridesDefault(t *testing.T) {
	var gotCQL string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotCQL = r.URL.Query().Get("cql")
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}, "size": 0})
	})

	result := src.Query(context.Background(), domain.QueryContext{
		Query:   "architecture",
		Filters: map[string]string{"space": "ARCH"},
	})

	require.False(t, result.Failed())
	assert.Contains(t, gotCQL, `space = "ARCH"`)
	assert.NotContains(t, gotCQL, `space = "ENG"`)
}

func TestQuery_ServerErrorIsIsolated(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	result := src.Query(context.Background(), domain.QueryContext{Query: "anything"})

	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "status 502")
}

func TestIsAvailable(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/space", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.True(t, src.IsAvailable(context.Background()))
}
