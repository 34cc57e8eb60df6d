package domain

import (
	"encoding/json"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one exchange entry in a session. Immutable once appended.
type ChatMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`

	// Citations holds only the citations the synthesizer actually
	// referenced in Content, in ascending marker order.
	Citations []Citation `json:"citations,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is a server-held, append-only conversation history.
type ChatSession struct {
	ID        string        `json:"id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ChatResponse is the non-streaming answer to one chat call.
type ChatResponse struct {
	// Message is the assistant message appended to the session.
	Message ChatMessage

	// Sources lists the source ids the plan selected, flattened in
	// phase order.
	Sources []string

	// ExecutionTime is the wall-clock duration of the full pipeline.
	ExecutionTime time.Duration
}

// chatResponseWire is the JSON shape of ChatResponse. Clients read
// executionTime as whole milliseconds.
type chatResponseWire struct {
	Message       ChatMessage `json:"message"`
	Sources       []string    `json:"sources"`
	ExecutionTime int64       `json:"executionTime"`
}

func (r ChatResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(chatResponseWire{
		Message:       r.Message,
		Sources:       r.Sources,
		ExecutionTime: r.ExecutionTime.Milliseconds(),
	})
}

func (r *ChatResponse) UnmarshalJSON(data []byte) error {
	var w chatResponseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Message = w.Message
	r.Sources = w.Sources
	r.ExecutionTime = time.Duration(w.ExecutionTime) * time.Millisecond
	return nil
}
