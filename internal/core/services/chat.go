package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quorum-cli/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// streamBuffer sizes the event channel. Large enough that a slow reader
// does not stall source fan-out under normal loads.
const streamBuffer = 64

// ChatService is the façade driving the full pipeline:
// planner -> engine -> synthesizer, with session bookkeeping.
type ChatService struct {
	registry    driving.SourceRegistry
	planner     *Planner
	engine      *Engine
	synthesizer *Synthesizer
	sessions    driven.SessionStore
}

// NewChatService wires the pipeline components together.
func NewChatService(
	registry driving.SourceRegistry,
	planner *Planner,
	engine *Engine,
	synthesizer *Synthesizer,
	sessions driven.SessionStore,
) *ChatService {
	return &ChatService{
		registry:    registry,
		planner:     planner,
		engine:      engine,
		synthesizer: synthesizer,
		sessions:    sessions,
	}
}

// RegisterSource adds a knowledge source. Idempotent by metadata ID.
func (s *ChatService) RegisterSource(source driven.KnowledgeSource) {
	s.registry.Register(source)
}

// UnregisterSource removes a knowledge source by ID.
func (s *ChatService) UnregisterSource(id string) {
	s.registry.Unregister(id)
}

// AvailableSources probes every registered source concurrently and
// returns the ones currently able to answer.
func (s *ChatService) AvailableSources(ctx context.Context) []domain.SourceMetadata {
	return s.registry.Available(ctx)
}

// Chat answers one message and appends the exchange to the session.
func (s *ChatService) Chat(ctx context.Context, message, sessionID string) (*domain.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	started := time.Now()

	session, err := s.getOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	plan, exec, err := s.runPipeline(ctx, message, session.ID, ExecutionHooks{})
	if err != nil {
		return nil, err
	}

	synth, err := s.synthesizer.Synthesize(ctx, message, exec.Results, exec.Citations)
	if err != nil {
		return nil, err
	}

	assistant := s.commitExchange(ctx, session, message, synth)

	return &domain.ChatResponse{
		Message:       assistant,
		Sources:       plan.SourceIDs(),
		ExecutionTime: time.Since(started),
	}, nil
}

// ChatStream runs the same pipeline but emits a StreamEvent at each
// milestone. The channel closes after a terminal event or when ctx is
// cancelled; an aborted stream commits nothing to the session.
func (s *ChatService) ChatStream(ctx context.Context, message, sessionID string) (<-chan domain.StreamEvent, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	session, err := s.getOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.StreamEvent, streamBuffer)
	go s.streamPipeline(ctx, message, session, events)
	return events, nil
}

// streamPipeline drives the pipeline on its own goroutine, translating
// milestones into events. It closes the channel on return.
func (s *ChatService) streamPipeline(
	ctx context.Context, message string, session *domain.ChatSession, events chan<- domain.StreamEvent,
) {
	defer close(events)

	emit := func(ev domain.StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(domain.PlanningStarted()) {
		return
	}

	hooks := ExecutionHooks{
		OnSourceStart: func(sourceID string) {
			emit(domain.QueryingStarted(sourceID))
		},
		OnSourceComplete: func(sourceID string, _ domain.SourceResult) {
			emit(domain.QueryingCompleted(sourceID))
		},
	}

	// The plan event must carry the resolved plan, so planning happens
	// here rather than inside runPipeline's caller-agnostic path.
	available := s.registry.Available(ctx)
	plan, err := s.planner.CreatePlan(ctx, message, available)
	if err != nil {
		if ctx.Err() == nil {
			emit(domain.ErrorEvent(err.Error()))
		}
		return
	}
	if !emit(domain.PlanningResolved(plan)) {
		return
	}

	exec := s.engine.Execute(ctx, plan, domain.QueryContext{
		Query:     message,
		SessionID: session.ID,
	}, hooks)
	if ctx.Err() != nil {
		return
	}

	for i, c := range exec.Citations {
		if !emit(domain.CitationCollected(c, i+1)) {
			return
		}
	}

	if !emit(domain.Synthesizing()) {
		return
	}

	synth, err := s.synthesizer.SynthesizeStream(ctx, message, exec.Results, exec.Citations,
		func(delta string) {
			emit(domain.ContentDelta(delta))
		})
	if err != nil {
		if ctx.Err() == nil {
			emit(domain.ErrorEvent(err.Error()))
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	assistant := s.commitExchange(ctx, session, message, synth)
	emit(domain.Done(assistant))
}

// runPipeline executes probe -> plan -> execute for the one-shot path.
func (s *ChatService) runPipeline(
	ctx context.Context, message, sessionID string, hooks ExecutionHooks,
) (domain.QueryPlan, domain.ExecutionResult, error) {
	available := s.registry.Available(ctx)
	logger.Debug("Available sources: %d", len(available))

	plan, err := s.planner.CreatePlan(ctx, message, available)
	if err != nil {
		return domain.QueryPlan{}, domain.ExecutionResult{}, err
	}

	exec := s.engine.Execute(ctx, plan, domain.QueryContext{
		Query:     message,
		SessionID: sessionID,
	}, hooks)

	return plan, exec, nil
}

// commitExchange appends the user and assistant messages to the session
// and persists it. Called only for completed (non-aborted) requests, so
// partial state from failed or cancelled requests never lands.
func (s *ChatService) commitExchange(
	ctx context.Context, session *domain.ChatSession, userMessage string, synth *SynthesisResult,
) domain.ChatMessage {
	now := time.Now()
	assistant := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   synth.Content,
		Citations: synth.Citations,
		Timestamp: now,
	}

	session.Messages = append(session.Messages,
		domain.ChatMessage{
			ID:        uuid.NewString(),
			Role:      domain.RoleUser,
			Content:   userMessage,
			Timestamp: now,
		},
		assistant,
	)
	session.UpdatedAt = now

	if err := s.sessions.Save(ctx, *session); err != nil {
		// The answer is already synthesized; losing the session append is
		// logged rather than failing the request.
		logger.Warn("Failed to save session %s: %v", session.ID, err)
	}

	return assistant
}

// getOrCreateSession loads the session or creates a fresh one when the id
// is empty or unknown. Unknown non-empty ids are adopted as the new
// session's id so callers can mint their own and keep continuity.
func (s *ChatService) getOrCreateSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	if id != "" {
		session, err := s.sessions.Get(ctx, id)
		if err == nil {
			return session, nil
		}
	}

	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	session := domain.ChatSession{
		ID:        id,
		Messages:  []domain.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

// Session retrieves a session by ID.
func (s *ChatService) Session(ctx context.Context, id string) (*domain.ChatSession, error) {
	return s.sessions.Get(ctx, id)
}

// DeleteSession removes a session.
func (s *ChatService) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}
