package domain

// Stream event types. Events are ephemeral and never persisted.
const (
	EventPlanning     = "planning"
	EventQuerying     = "querying"
	EventSynthesizing = "synthesizing"
	EventCitation     = "citation"
	EventContent      = "content"
	EventDone         = "done"
	EventError        = "error"
)

// Event statuses used by planning and querying events.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
)

// StreamEvent is one entry in the streaming chat protocol. Type decides
// which payload fields are set; unset fields are omitted on the wire.
type StreamEvent struct {
	Type string `json:"type"`

	// Status accompanies planning ("started") and querying
	// ("started"/"completed") events.
	Status string `json:"status,omitempty"`

	// SourceID accompanies querying events.
	SourceID string `json:"sourceId,omitempty"`

	// Plan accompanies the planning event once the plan is resolved.
	Plan *QueryPlan `json:"plan,omitempty"`

	// Citation and Index accompany citation events. Index is the 1-based
	// emission position of the citation in the pool.
	Citation *Citation `json:"citation,omitempty"`
	Index    int       `json:"index,omitempty"`

	// Delta accompanies content events.
	Delta string `json:"delta,omitempty"`

	// Message accompanies the terminal done event.
	Message *ChatMessage `json:"message,omitempty"`

	// Error accompanies the terminal error event.
	Error string `json:"error,omitempty"`
}

// PlanningStarted signals the planner LLM call is about to begin.
func PlanningStarted() StreamEvent {
	return StreamEvent{Type: EventPlanning, Status: StatusStarted}
}

// PlanningResolved carries the validated plan.
func PlanningResolved(plan QueryPlan) StreamEvent {
	return StreamEvent{Type: EventPlanning, Plan: &plan}
}

// QueryingStarted signals one source invocation has begun.
func QueryingStarted(sourceID string) StreamEvent {
	return StreamEvent{Type: EventQuerying, SourceID: sourceID, Status: StatusStarted}
}

// QueryingCompleted signals one source invocation has settled.
func QueryingCompleted(sourceID string) StreamEvent {
	return StreamEvent{Type: EventQuerying, SourceID: sourceID, Status: StatusCompleted}
}

// Synthesizing signals the synthesis LLM call is about to begin.
func Synthesizing() StreamEvent {
	return StreamEvent{Type: EventSynthesizing}
}

// CitationCollected carries one citation with its 1-based emission index.
func CitationCollected(c Citation, index int) StreamEvent {
	return StreamEvent{Type: EventCitation, Citation: &c, Index: index}
}

// ContentDelta carries an incremental chunk of synthesized text.
func ContentDelta(delta string) StreamEvent {
	return StreamEvent{Type: EventContent, Delta: delta}
}

// Done carries the finished assistant message and terminates the stream.
func Done(msg ChatMessage) StreamEvent {
	return StreamEvent{Type: EventDone, Message: &msg}
}

// ErrorEvent carries a fatal pipeline error and terminates the stream.
func ErrorEvent(err string) StreamEvent {
	return StreamEvent{Type: EventError, Error: err}
}

// Terminal reports whether the event ends the stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}
