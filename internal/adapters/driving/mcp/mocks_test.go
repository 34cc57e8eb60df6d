package mcp

import (
	"context"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
)

// mockChatService is a canned driving.ChatService for tests.
type mockChatService struct {
	resp *domain.ChatResponse
	err  error

	lastMessage   string
	lastSessionID string
}

var _ driving.ChatService = (*mockChatService)(nil)

func (m *mockChatService) Chat(_ context.Context, message, sessionID string) (*domain.ChatResponse, error) {
	m.lastMessage = message
	m.lastSessionID = sessionID
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockChatService) ChatStream(context.Context, string, string) (<-chan domain.StreamEvent, error) {
	ch := make(chan domain.StreamEvent)
	close(ch)
	return ch, nil
}

func (m *mockChatService) Session(context.Context, string) (*domain.ChatSession, error) {
	return nil, domain.ErrSessionNotFound
}

func (m *mockChatService) DeleteSession(context.Context, string) error {
	return nil
}

// mockRegistry is a canned driving.SourceRegistry for tests.
type mockRegistry struct {
	metas []domain.SourceMetadata
}

var _ driving.SourceRegistry = (*mockRegistry)(nil)

func (m *mockRegistry) Register(driven.KnowledgeSource)   {}
func (m *mockRegistry) Unregister(string)                 {}
func (m *mockRegistry) Get(string) driven.KnowledgeSource { return nil }
func (m *mockRegistry) List() []domain.SourceMetadata     { return m.metas }
func (m *mockRegistry) Available(context.Context) []domain.SourceMetadata {
	return m.metas
}
