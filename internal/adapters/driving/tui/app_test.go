package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
)

// stubChatService scripts the event stream returned by ChatStream.
type stubChatService struct {
	events []domain.StreamEvent
	err    error

	lastMessage   string
	lastSessionID string
}

var _ driving.ChatService = (*stubChatService)(nil)

func (s *stubChatService) Chat(_ context.Context, message, sessionID string) (*domain.ChatResponse, error) {
	s.lastMessage = message
	s.lastSessionID = sessionID
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ChatResponse{}, nil
}

func (s *stubChatService) ChatStream(_ context.Context, message, sessionID string) (<-chan domain.StreamEvent, error) {
	s.lastMessage = message
	s.lastSessionID = sessionID
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan domain.StreamEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (s *stubChatService) Session(context.Context, string) (*domain.ChatSession, error) {
	return nil, domain.ErrSessionNotFound
}

func (s *stubChatService) DeleteSession(context.Context, string) error {
	return nil
}

// stubRegistry returns canned source metadata.
type stubRegistry struct {
	metas []domain.SourceMetadata
}

var _ driving.SourceRegistry = (*stubRegistry)(nil)

func (s *stubRegistry) Register(driven.KnowledgeSource)   {}
func (s *stubRegistry) Unregister(string)                 {}
func (s *stubRegistry) Get(string) driven.KnowledgeSource { return nil }
func (s *stubRegistry) List() []domain.SourceMetadata     { return s.metas }
func (s *stubRegistry) Available(context.Context) []domain.SourceMetadata {
	return s.metas
}

// pump feeds a message into the app and keeps executing returned commands
// until the app goes idle. It returns the final model.
func pump(t *testing.T, app *App, msg tea.Msg) *App {
	t.Helper()

	for msg != nil {
		model, cmd := app.Update(msg)
		var ok bool
		app, ok = model.(*App)
		require.True(t, ok)

		if cmd == nil {
			return app
		}
		msg = cmd()
	}
	return app
}

func newTestApp(t *testing.T, chat driving.ChatService, registry driving.SourceRegistry) *App {
	t.Helper()

	app, err := NewApp(&Ports{Chat: chat, Registry: registry})
	require.NoError(t, err)

	// Establish dimensions so the app renders.
	model, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return model.(*App)
}

func TestNewApp(t *testing.T) {
	t.Run("nil chat service returns error", func(t *testing.T) {
		app, err := NewApp(&Ports{})
		require.Error(t, err)
		assert.Nil(t, app)
		assert.ErrorIs(t, err, ErrMissingChatService)
	})

	t.Run("valid ports creates app with session", func(t *testing.T) {
		app, err := NewApp(&Ports{Chat: &stubChatService{}})
		require.NoError(t, err)
		assert.NotEmpty(t, app.SessionID())
		assert.False(t, app.Streaming())
	})
}

func TestApp_SubmitStreamsAnswer(t *testing.T) {
	chat := &stubChatService{
		events: []domain.StreamEvent{
			domain.PlanningStarted(),
			domain.QueryingStarted("jira"),
			domain.QueryingCompleted("jira"),
			domain.CitationCollected(domain.Citation{ID: "PAY-42", Title: "Gateway timeout"}, 1),
			domain.Synthesizing(),
			domain.ContentDelta("The gateway fix "),
			domain.ContentDelta("is blocked [1]."),
			domain.Done(domain.ChatMessage{
				Role:    domain.RoleAssistant,
				Content: "The gateway fix is blocked [1].",
				Citations: []domain.Citation{
					{ID: "PAY-42", Title: "Gateway timeout"},
				},
			}),
		},
	}
	app := newTestApp(t, chat, nil)

	app.input.SetValue("What is blocked?")
	app = pump(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "What is blocked?", chat.lastMessage)
	assert.Equal(t, app.SessionID(), chat.lastSessionID)
	assert.False(t, app.Streaming())
	assert.NoError(t, app.Err())

	entries := app.Transcript()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.RoleUser, entries[0].Role)
	assert.Equal(t, "What is blocked?", entries[0].Content)
	assert.Equal(t, domain.RoleAssistant, entries[1].Role)
	assert.Equal(t, "The gateway fix is blocked [1].", entries[1].Content)
	require.Len(t, entries[1].Citations, 1)
	assert.Equal(t, "PAY-42", entries[1].Citations[0].ID)
}

func TestApp_EmptyPromptIgnored(t *testing.T) {
	chat := &stubChatService{}
	app := newTestApp(t, chat, nil)

	app.input.SetValue("   ")
	app = pump(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, chat.lastMessage)
	assert.Empty(t, app.Transcript())
}

func TestApp_ErrorEventSurfaces(t *testing.T) {
	chat := &stubChatService{
		events: []domain.StreamEvent{
			domain.PlanningStarted(),
			domain.ErrorEvent("planner unavailable"),
		},
	}
	app := newTestApp(t, chat, nil)

	app.input.SetValue("anything")
	app = pump(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), "planner unavailable")
	assert.False(t, app.Streaming())

	// The user turn stays, the aborted answer does not.
	entries := app.Transcript()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RoleUser, entries[0].Role)
}

func TestApp_StreamStartFailureSurfaces(t *testing.T) {
	chat := &stubChatService{err: errors.New("llm not configured")}
	app := newTestApp(t, chat, nil)

	app.input.SetValue("anything")
	app = pump(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), "llm not configured")
}

func TestApp_NewSessionResets(t *testing.T) {
	chat := &stubChatService{
		events: []domain.StreamEvent{
			domain.Synthesizing(),
			domain.ContentDelta("hi"),
			domain.Done(domain.ChatMessage{Role: domain.RoleAssistant, Content: "hi"}),
		},
	}
	app := newTestApp(t, chat, nil)

	app.input.SetValue("hello")
	app = pump(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, app.Transcript(), 2)

	before := app.SessionID()
	app = pump(t, app, tea.KeyMsg{Type: tea.KeyCtrlN})

	assert.NotEqual(t, before, app.SessionID())
	assert.Empty(t, app.Transcript())
	assert.NoError(t, app.Err())
}

func TestApp_SourcesOverlay(t *testing.T) {
	registry := &stubRegistry{metas: []domain.SourceMetadata{
		{ID: "jira", Name: "Jira", Description: "Issue tracker"},
		{ID: "docs", Name: "Docs", Description: "Local markdown"},
	}}
	app := newTestApp(t, &stubChatService{}, registry)

	app = pump(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})

	view := app.View()
	assert.Contains(t, view, "jira")
	assert.Contains(t, view, "Issue tracker")

	// Esc closes the overlay.
	app = pump(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, app.View(), "Issue tracker")
}

func TestApp_ViewBeforeResize(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &stubChatService{}})
	require.NoError(t, err)
	assert.Equal(t, "Initialising...", app.View())
}
