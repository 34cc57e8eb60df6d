package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRegistry_RegisterAndGet(t *testing.T) {
	registry := NewSourceRegistry()
	src := newStubSource("jira", 1)

	registry.Register(src)

	got := registry.Get("jira")
	require.NotNil(t, got)
	assert.Equal(t, "jira", got.Metadata().ID)
	assert.Nil(t, registry.Get("missing"))
}

func TestSourceRegistry_RegisterIdempotent(t *testing.T) {
	registry := NewSourceRegistry()
	first := newStubSource("jira", 1)
	second := newStubSource("jira", 9)

	registry.Register(first)
	registry.Register(second)

	metas := registry.List()
	require.Len(t, metas, 1)
	assert.Equal(t, 9, metas[0].Priority, "re-registration replaces the source")
}

func TestSourceRegistry_RegisterIgnoresInvalid(t *testing.T) {
	registry := NewSourceRegistry()

	registry.Register(nil)
	registry.Register(&stubSource{}) // empty metadata ID

	assert.Empty(t, registry.List())
}

func TestSourceRegistry_Unregister(t *testing.T) {
	registry := NewSourceRegistry()
	registry.Register(newStubSource("jira", 0))

	registry.Unregister("jira")
	registry.Unregister("jira") // unknown id is ignored

	assert.Empty(t, registry.List())
}

func TestSourceRegistry_ListSortedByPriority(t *testing.T) {
	registry := NewSourceRegistry()
	registry.Register(newStubSource("slow", 10))
	registry.Register(newStubSource("fast", 1))
	registry.Register(newStubSource("mid", 5))

	metas := registry.List()

	require.Len(t, metas, 3)
	assert.Equal(t, "fast", metas[0].ID)
	assert.Equal(t, "mid", metas[1].ID)
	assert.Equal(t, "slow", metas[2].ID)
}

func TestSourceRegistry_Available_FiltersUnavailable(t *testing.T) {
	registry := NewSourceRegistry()
	up := newStubSource("up", 1)
	down := newStubSource("down", 0)
	down.available = false
	registry.Register(up)
	registry.Register(down)

	metas := registry.Available(context.Background())

	require.Len(t, metas, 1)
	assert.Equal(t, "up", metas[0].ID)
}

func TestSourceRegistry_Available_PanickingProbeExcluded(t *testing.T) {
	registry := NewSourceRegistry()
	registry.Register(newStubSource("good", 0))
	registry.Register(&panickyProbeSource{stubSource: *newStubSource("bad", 1)})

	metas := registry.Available(context.Background())

	require.Len(t, metas, 1)
	assert.Equal(t, "good", metas[0].ID)
}

// panickyProbeSource panics during availability probing.
type panickyProbeSource struct {
	stubSource
}

func (s *panickyProbeSource) IsAvailable(context.Context) bool {
	panic("probe exploded")
}
