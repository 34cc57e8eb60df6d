package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quorum-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
)

func newChatService(llm driven.LLMService, sources ...driven.KnowledgeSource) (*ChatService, *memory.SessionStore) {
	registry := NewSourceRegistry()
	for _, src := range sources {
		registry.Register(src)
	}
	store := memory.NewSessionStore()
	svc := NewChatService(
		registry,
		NewPlanner(llm),
		NewEngine(registry),
		NewSynthesizer(llm),
		store,
	)
	return svc, store
}

func blockedIssueSource() *stubSource {
	src := newStubSource("tickets", 0)
	src.result = domain.SourceResult{
		SourceID: "tickets",
		Data:     map[string]any{"items": []string{"X-1"}},
		Citations: []domain.Citation{{
			SourceID: "tickets",
			Type:     domain.CitationJiraIssue,
			ID:       "X-1",
			Title:    "[X-1] Fix bug",
			URL:      "https://x/X-1",
		}},
	}
	return src
}

func TestChatService_Chat_EndToEnd(t *testing.T) {
	llm := &stubLLM{completions: []string{
		planJSON("tickets"),    // planner call
		"X-1 is blocked [1].",  // synthesis call
	}}
	svc, store := newChatService(llm, blockedIssueSource())

	resp, err := svc.Chat(context.Background(), "What is blocked?", "")

	require.NoError(t, err)
	assert.Contains(t, resp.Message.Content, "[1]")
	require.Len(t, resp.Message.Citations, 1)
	assert.Equal(t, "X-1", resp.Message.Citations[0].ID)
	assert.Equal(t, []string{"tickets"}, resp.Sources)
	assert.Greater(t, resp.ExecutionTime, time.Duration(0))

	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Messages, 2)
	assert.Equal(t, domain.RoleUser, sessions[0].Messages[0].Role)
	assert.Equal(t, "What is blocked?", sessions[0].Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, sessions[0].Messages[1].Role)
}

func TestChatService_Chat_EmptyMessage(t *testing.T) {
	svc, _ := newChatService(&stubLLM{})

	_, err := svc.Chat(context.Background(), "   ", "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatService_Chat_ReusesSession(t *testing.T) {
	llm := &stubLLM{completions: []string{
		planJSON("tickets"), "First [1].",
		planJSON("tickets"), "Second [1].",
	}}
	svc, _ := newChatService(llm, blockedIssueSource())
	ctx := context.Background()

	resp1, err := svc.Chat(ctx, "first question", "")
	require.NoError(t, err)

	sessions, _ := svc.sessions.List(ctx)
	require.Len(t, sessions, 1)
	sessionID := sessions[0].ID

	_, err = svc.Chat(ctx, "second question", sessionID)
	require.NoError(t, err)

	session, err := svc.Session(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, session.Messages, 4)
	assert.NotEqual(t, resp1.Message.ID, session.Messages[3].ID)
}

func TestChatService_Chat_UnknownSessionIDAdopted(t *testing.T) {
	llm := &stubLLM{completions: []string{planJSON("tickets"), "Answer [1]."}}
	svc, store := newChatService(llm, blockedIssueSource())

	_, err := svc.Chat(context.Background(), "q", "client-minted-id")

	require.NoError(t, err)
	sessions, _ := store.List(context.Background())
	require.Len(t, sessions, 1)
	// Unknown non-empty ids become the session id so clients can mint
	// their own and keep continuity across calls.
	assert.Equal(t, "client-minted-id", sessions[0].ID)
}

func TestChatService_Chat_UnavailableSourceExcluded(t *testing.T) {
	llm := &stubLLM{completions: []string{"no json -> fallback", "No sources answered."}}
	down := newStubSource("down", 0)
	down.available = false
	up := blockedIssueSource()
	svc, _ := newChatService(llm, down, up)

	resp, err := svc.Chat(context.Background(), "q", "")

	require.NoError(t, err)
	// The fallback plan contains only the available source.
	assert.Equal(t, []string{"tickets"}, resp.Sources)
	assert.Empty(t, down.seenQueries())
}

func TestChatService_Chat_SynthesisFailureIsFatalAndUncommitted(t *testing.T) {
	llm := &failAfterLLM{stubLLM: stubLLM{completions: []string{planJSON("tickets")}}}
	svc, store := newChatService(llm, blockedIssueSource())

	_, err := svc.Chat(context.Background(), "q", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSynthesisFailed)

	sessions, _ := store.List(context.Background())
	require.Len(t, sessions, 1, "the empty session exists")
	assert.Empty(t, sessions[0].Messages, "no partial exchange is committed")
}

func TestChatService_ChatStream_EventSequence(t *testing.T) {
	llm := &stubLLM{completions: []string{planJSON("tickets"), "X-1 is blocked [1]."}}
	svc, _ := newChatService(llm, blockedIssueSource())

	events, err := svc.ChatStream(context.Background(), "What is blocked?", "")
	require.NoError(t, err)

	var collected []domain.StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}

	types := make([]string, len(collected))
	for i, ev := range collected {
		types[i] = ev.Type
	}

	require.NotEmpty(t, collected)
	assert.Equal(t, domain.EventPlanning, collected[0].Type)
	assert.Equal(t, domain.StatusStarted, collected[0].Status)

	// planning(resolved) carries the plan.
	assert.Equal(t, domain.EventPlanning, collected[1].Type)
	require.NotNil(t, collected[1].Plan)
	assert.Equal(t, []string{"tickets"}, collected[1].Plan.SourceIDs())

	assert.Contains(t, types, domain.EventQuerying)
	assert.Contains(t, types, domain.EventSynthesizing)
	assert.Contains(t, types, domain.EventContent)

	// One citation event with a 1-based index.
	var citations []domain.StreamEvent
	for _, ev := range collected {
		if ev.Type == domain.EventCitation {
			citations = append(citations, ev)
		}
	}
	require.Len(t, citations, 1)
	assert.Equal(t, 1, citations[0].Index)
	assert.Equal(t, "X-1", citations[0].Citation.ID)

	// Terminal done event carries the finished message.
	last := collected[len(collected)-1]
	require.Equal(t, domain.EventDone, last.Type)
	require.NotNil(t, last.Message)
	assert.Contains(t, last.Message.Content, "[1]")
	require.Len(t, last.Message.Citations, 1)
	assert.Equal(t, "X-1", last.Message.Citations[0].ID)
}

func TestChatService_ChatStream_ContentDeltasReassemble(t *testing.T) {
	llm := &stubLLM{completions: []string{planJSON("tickets"), "X-1 is blocked [1]."}}
	svc, _ := newChatService(llm, blockedIssueSource())

	events, err := svc.ChatStream(context.Background(), "q", "")
	require.NoError(t, err)

	var text string
	var final *domain.ChatMessage
	for ev := range events {
		switch ev.Type {
		case domain.EventContent:
			text += ev.Delta
		case domain.EventDone:
			final = ev.Message
		}
	}

	require.NotNil(t, final)
	assert.Equal(t, final.Content, text)
}

func TestChatService_ChatStream_AbortBeforeDoneCommitsNothing(t *testing.T) {
	llm := &hangingStreamLLM{plan: planJSON("tickets")}
	svc, store := newChatService(llm, blockedIssueSource())

	ctx, cancel := context.WithCancel(context.Background())
	events, err := svc.ChatStream(ctx, "q", "")
	require.NoError(t, err)

	// Consume until synthesis starts, then abort the request.
	for ev := range events {
		if ev.Type == domain.EventSynthesizing {
			cancel()
			break
		}
		require.NotEqual(t, domain.EventDone, ev.Type)
	}
	for range events {
		// Drain; the channel must close without a done event.
	}

	sessions, _ := store.List(context.Background())
	require.Len(t, sessions, 1)
	assert.Empty(t, sessions[0].Messages, "aborted stream appends no messages")
	cancel()
}

func TestChatService_ChatStream_SynthesisErrorEmitsErrorEvent(t *testing.T) {
	llm := &failAfterLLM{stubLLM: stubLLM{completions: []string{planJSON("tickets")}}}
	svc, store := newChatService(llm, blockedIssueSource())

	events, err := svc.ChatStream(context.Background(), "q", "")
	require.NoError(t, err)

	var last domain.StreamEvent
	for ev := range events {
		last = ev
	}

	require.Equal(t, domain.EventError, last.Type)
	assert.NotEmpty(t, last.Error)

	sessions, _ := store.List(context.Background())
	require.Len(t, sessions, 1)
	assert.Empty(t, sessions[0].Messages)
}

func TestChatService_RegisterUnregisterSource(t *testing.T) {
	svc, _ := newChatService(&stubLLM{})

	src := newStubSource("jira", 0)
	svc.RegisterSource(src)
	svc.RegisterSource(src) // idempotent

	metas := svc.registry.List()
	require.Len(t, metas, 1)
	assert.Equal(t, "jira", metas[0].ID)

	svc.UnregisterSource("jira")
	assert.Empty(t, svc.registry.List())
}

// failAfterLLM serves its canned completions then fails every later call.
// Used to make planning succeed and synthesis fail.
type failAfterLLM struct {
	stubLLM
}

func (l *failAfterLLM) next() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.calls >= len(l.completions) {
		return "", assert.AnError
	}
	out := l.completions[l.calls]
	l.calls++
	return out, nil
}

func (l *failAfterLLM) Complete(_ context.Context, _ driven.CompletionRequest) (string, error) {
	return l.next()
}

func (l *failAfterLLM) Stream(_ context.Context, _ driven.CompletionRequest, _ func(string)) (string, error) {
	return l.next()
}

// hangingStreamLLM answers planning immediately but blocks during the
// synthesis stream until the context is cancelled.
type hangingStreamLLM struct {
	plan string
}

var _ driven.LLMService = (*hangingStreamLLM)(nil)

func (l *hangingStreamLLM) Complete(_ context.Context, _ driven.CompletionRequest) (string, error) {
	return l.plan, nil
}

func (l *hangingStreamLLM) Stream(ctx context.Context, _ driven.CompletionRequest, _ func(string)) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (l *hangingStreamLLM) ModelName() string          { return "hanging" }
func (l *hangingStreamLLM) Ping(context.Context) error { return nil }
func (l *hangingStreamLLM) Close() error               { return nil }
