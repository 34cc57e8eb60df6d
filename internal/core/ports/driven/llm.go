package driven

import "context"

// LLMService provides language model completions for query planning and
// answer synthesis.
//
// Implementations may include:
//   - OpenAI (GPT-4, GPT-4o)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Complete produces a single-shot completion.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Stream produces a completion incrementally, invoking onDelta for
	// each text chunk as it arrives. Returns the full text once the
	// stream completes.
	Stream(ctx context.Context, req CompletionRequest, onDelta func(delta string)) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage is a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// CompletionRequest configures one completion call.
type CompletionRequest struct {
	// SystemPrompt is the optional system instruction.
	SystemPrompt string

	// Messages is the conversation so far, oldest first.
	Messages []ChatMessage

	// MaxTokens limits generation length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
