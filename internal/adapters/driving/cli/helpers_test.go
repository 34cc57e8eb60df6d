package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
)

// stubChatService returns canned responses for command tests.
type stubChatService struct {
	resp   *domain.ChatResponse
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
	if s.resp != nil {
		return s.resp, nil
	}
	return &domain.ChatResponse{
		Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: "stub answer"},
	}, nil
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

// memSourceConfigStore is an in-memory driven.SourceConfigStore.
type memSourceConfigStore struct {
	configs map[string]domain.SourceConfig
}

var _ driven.SourceConfigStore = (*memSourceConfigStore)(nil)

func newMemSourceConfigStore() *memSourceConfigStore {
	return &memSourceConfigStore{configs: make(map[string]domain.SourceConfig)}
}

func (m *memSourceConfigStore) Save(_ context.Context, cfg domain.SourceConfig) error {
	m.configs[cfg.ID] = cfg
	return nil
}

func (m *memSourceConfigStore) Get(_ context.Context, id string) (*domain.SourceConfig, error) {
	cfg, ok := m.configs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cfg, nil
}

func (m *memSourceConfigStore) Delete(_ context.Context, id string) error {
	delete(m.configs, id)
	return nil
}

func (m *memSourceConfigStore) List(_ context.Context) ([]domain.SourceConfig, error) {
	out := make([]domain.SourceConfig, 0, len(m.configs))
	for _, cfg := range m.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memConfigStore is an in-memory driven.ConfigStore.
type memConfigStore struct {
	values map[string]any
}

var _ driven.ConfigStore = (*memConfigStore)(nil)

func newMemConfigStore() *memConfigStore {
	return &memConfigStore{values: make(map[string]any)}
}

func (m *memConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *memConfigStore) GetString(key string) string {
	if v, ok := m.values[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func (m *memConfigStore) GetInt(key string) int {
	if v, ok := m.values[key].(int); ok {
		return v
	}
	return 0
}

func (m *memConfigStore) GetBool(key string) bool {
	if v, ok := m.values[key].(bool); ok {
		return v
	}
	return false
}

func (m *memConfigStore) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *memConfigStore) Load() error { return nil }

// setupTestServices wires stub services and returns a cleanup restoring
// the previous wiring.
func setupTestServices() func() {
	prevChat := chatService
	prevRegistry := sourceRegistry
	prevConfig := configStore
	prevSourceConfigs := sourceConfigStore

	chatService = &stubChatService{
		resp: &domain.ChatResponse{
			Message: domain.ChatMessage{
				Role:    domain.RoleAssistant,
				Content: "PAY-42 is blocked [1].",
				Citations: []domain.Citation{
					{ID: "PAY-42", Title: "Gateway timeout", URL: "https://acme.atlassian.net/browse/PAY-42"},
				},
				Timestamp: time.Now(),
			},
			Sources: []string{"jira"},
		},
	}
	sourceRegistry = nil
	configStore = newMemConfigStore()
	sourceConfigStore = newMemSourceConfigStore()

	return func() {
		chatService = prevChat
		sourceRegistry = prevRegistry
		configStore = prevConfig
		sourceConfigStore = prevSourceConfigs
	}
}

// containsLine reports whether any output line contains all fragments.
func containsLine(output string, fragments ...string) bool {
	for _, line := range strings.Split(output, "\n") {
		match := true
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
