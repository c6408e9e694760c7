package driven

import "context"

// LLMService provides text completion for report synthesis.
// This is an optional service - when nil, reports come from the
// deterministic fallback generator.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini)
//   - Anthropic (Claude)
//   - Gemini
//   - Ollama (local models)
type LLMService interface {
	// Chat sends an ordered conversation and returns the generated text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VisionService reads text out of images. Implemented by multimodal LLM adapters.
type VisionService interface {
	// DescribeImage sends an image with an instruction and returns the model's text.
	DescribeImage(ctx context.Context, mimeType string, data []byte, prompt string) (string, error)
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSON asks for a single JSON object as the answer. Providers without a
	// JSON mode are steered towards one.
	JSON bool
}
