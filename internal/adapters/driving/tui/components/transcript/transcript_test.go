package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

func TestView_StreamedAnswerLifecycle(t *testing.T) {
	v := NewView(nil)
	v.SetDimensions(80, 20)

	v.AppendUser("what is blocked?")
	v.BeginAssistant()
	assert.True(t, v.Streaming())

	v.AppendDelta("PAY-42 ")
	v.AppendDelta("is blocked [1].")
	assert.Equal(t, "PAY-42 is blocked [1].", v.StreamedContent())

	v.FinishAssistant(&domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Content: "PAY-42 is blocked [1].",
		Citations: []domain.Citation{
			{ID: "PAY-42", Title: "Gateway timeout", URL: "https://example.com/PAY-42"},
		},
	})

	assert.False(t, v.Streaming())
	entries := v.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.RoleUser, entries[0].Role)
	assert.Equal(t, domain.RoleAssistant, entries[1].Role)
	require.Len(t, entries[1].Citations, 1)
}

func TestView_FinishWithoutMessageKeepsBuffer(t *testing.T) {
	v := NewView(nil)

	v.BeginAssistant()
	v.AppendDelta("partial answer")
	v.FinishAssistant(nil)

	entries := v.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "partial answer", entries[0].Content)
}

func TestView_AbortDiscardsPartialAnswer(t *testing.T) {
	v := NewView(nil)

	v.AppendUser("question")
	v.BeginAssistant()
	v.AppendDelta("half an ans")
	v.AbortAssistant()

	assert.False(t, v.Streaming())
	assert.Empty(t, v.StreamedContent())
	require.Len(t, v.Entries(), 1)
}

func TestView_RendersCitationMarkers(t *testing.T) {
	v := NewView(nil)
	v.SetDimensions(120, 30)

	v.AppendUser("q")
	v.BeginAssistant()
	v.FinishAssistant(&domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Content: "answer [1]",
		Citations: []domain.Citation{
			{ID: "PAY-42", Title: "Gateway timeout"},
		},
	})

	out := v.View()
	assert.Contains(t, out, "[1] Gateway timeout")
}

func TestView_Clear(t *testing.T) {
	v := NewView(nil)
	v.AppendUser("one")
	v.AppendUser("two")
	v.Clear()
	assert.Empty(t, v.Entries())
}
